package solar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/solarscan/internal/images"
	"github.com/lehigh-university-libraries/solarscan/internal/models"
	"github.com/lehigh-university-libraries/solarscan/internal/providers"
	"github.com/lehigh-university-libraries/solarscan/internal/storage"
)

// generatedPrefix names files holding images returned by the provider. The
// store adds a unique component; the trailing index is always 0 because only
// the first image of a stream is kept.
const generatedPrefix = "generated"

type Options struct {
	Model string
	// Timeout bounds the provider call. Zero means no timeout.
	Timeout time.Duration
}

// Orchestrator turns a persisted rooftop image into a StreamedResult by
// streaming one request through a provider.
type Orchestrator struct {
	provider providers.Provider
	store    *storage.TransientStore
	opts     Options
}

func New(provider providers.Provider, store *storage.TransientStore, opts Options) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		store:    store,
		opts:     opts,
	}
}

// Generate reads the image at imagePath, asks the provider for a rooftop
// solar analysis and returns the accumulated text and, when the provider
// produced one, the path of the generated image. The caller owns that file.
func (o *Orchestrator) Generate(ctx context.Context, imagePath, additionalText string) (*models.StreamedResult, error) {
	imageData, err := o.store.ReadFile(imagePath)
	if err != nil {
		return nil, models.NewError(models.KindMissingFile, "failed to read image", err)
	}

	mimeType, ok := images.DetectMIME(imageData)
	if !ok {
		return nil, models.NewError(models.KindInvalidImage,
			"uploaded file is not a supported image (expected JPEG, PNG, GIF or WebP)", nil)
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	req := providers.Request{
		Model:              o.opts.Model,
		Prompt:             BuildPrompt(additionalText),
		Image:              imageData,
		MIMEType:           mimeType,
		ResponseModalities: []string{providers.ModalityImage, providers.ModalityText},
	}

	start := time.Now()
	var acc accumulator
	for chunk, err := range o.provider.GenerateStream(ctx, req) {
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, models.NewError(models.KindProvider, fmt.Sprintf("provider call timed out after %s", o.opts.Timeout), err)
			}
			return nil, models.NewError(models.KindProvider, "provider call failed", err)
		}
		accumulate(&acc, chunk)
	}

	if acc.dropped > 0 {
		slog.Warn("Provider returned more than one image, keeping the first", "dropped", acc.dropped)
	}

	result := &models.StreamedResult{TextResponse: acc.text.String()}
	if acc.blocked != "" {
		result.Error = "provider blocked the request: " + acc.blocked
	}

	if acc.image != nil {
		ext := images.ExtensionFor(acc.image.MIMEType)
		path, err := o.store.Create(generatedPrefix, "_0"+ext, acc.image.Data)
		if err != nil {
			return nil, models.NewError(models.KindStorage, "failed to save generated image", err)
		}
		result.ImagePath = path
	}

	slog.Info("Rooftop analysis generated",
		"model", o.opts.Model,
		"mime_type", mimeType,
		"chunks", acc.chunks,
		"text_length", len(result.TextResponse),
		"generated_image", result.ImagePath != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
