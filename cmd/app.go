package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/solarscan/internal/analysis"
	"github.com/lehigh-university-libraries/solarscan/internal/config"
	"github.com/lehigh-university-libraries/solarscan/internal/gemini"
	"github.com/lehigh-university-libraries/solarscan/internal/solar"
	"github.com/lehigh-university-libraries/solarscan/internal/storage"
)

// app holds the components shared by the serve and analyze commands.
type app struct {
	store   *storage.TransientStore
	service *analysis.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	provider, err := gemini.New(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	orchestrator := solar.New(provider, store, solar.Options{
		Model:   cfg.GeminiModel,
		Timeout: cfg.ProviderTimeout,
	})

	return &app{
		store:   store,
		service: analysis.NewService(orchestrator, store, logger),
	}, nil
}
