package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/solarscan/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Analyzer runs a single rooftop analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
}

type Handler struct {
	analyzer       Analyzer
	logger         *slog.Logger
	maxUploadBytes int64
	index          *template.Template
}

func New(analyzer Analyzer, logger *slog.Logger, maxUploadBytes int64) (*Handler, error) {
	index, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}
	return &Handler{
		analyzer:       analyzer,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		index:          index,
	}, nil
}

// Routes returns the full HTTP surface wrapped in CORS and request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			h.logger.Error("Unable to write healthcheck", "error", err)
		}
	})
	return requestLogger(h.logger, cors(mux))
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "error", err)
	}
}

// writeError writes {"detail": message}, the single error shape of the API.
func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Error(message, "status", code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": message}); err != nil {
		h.logger.Error("Unable to encode error response", "error", err)
	}
}
