package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/lehigh-university-libraries/solarscan/internal/models"
)

// multipartOverhead is allowed on top of the upload limit for form fields and
// part headers.
const multipartOverhead = 1 << 20

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to parse form: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				h.logger.Error("Failed to remove multipart temp files", "error", err)
			}
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "file is required", http.StatusUnprocessableEntity)
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(fileData)) > h.maxUploadBytes {
		h.writeError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp, err := h.analyzer.Analyze(r.Context(), models.AnalysisRequest{
		Upload: models.UploadedImage{
			Filename: header.Filename,
			Data:     fileData,
		},
		AdditionalText: r.FormValue("additional_text"),
	})
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, resp)
}
