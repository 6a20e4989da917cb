package handlers

import (
	"net/http"
)

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		MaxUploadMB int64
	}{
		MaxUploadMB: h.maxUploadBytes / (1024 * 1024),
	}
	if err := h.index.Execute(w, data); err != nil {
		h.logger.Error("Unable to render index", "error", err)
	}
}
