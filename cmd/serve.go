package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/solarscan/internal/config"
	"github.com/lehigh-university-libraries/solarscan/internal/handlers"
	"github.com/lehigh-university-libraries/solarscan/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var model string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rooftop analysis web server",
		Long: `Starts the Solarscan web interface and JSON API.

GET / serves an upload page. POST /analyze accepts a multipart form with a
"file" image and optional "additional_text" and returns the feasibility
report with the uploaded and annotated images as base64.`,
		Example: `  # Start server on the address from LISTEN_ADDR (default :8000)
  solarscan serve

  # Start server on a custom port with a different model
  solarscan serve --port 3000 --model gemini-2.5-flash-image`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.ListenAddr = ":" + port
			}
			if model != "" {
				cfg.GeminiModel = model
			}

			logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			handler, err := handlers.New(a.service, logger, cfg.MaxUploadBytes)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Solarscan interface available",
					"addr", cfg.ListenAddr,
					"model", cfg.GeminiModel,
					"temp_dir", a.store.Dir(),
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			defer func() {
				if n := a.store.Sweep(); n > 0 {
					logger.Warn("Removed leftover transient files", "count", n)
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				logger.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "error", err)
					return err
				}
				logger.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model name (overrides GEMINI_MODEL)")

	return cmd
}
