package analysis

import (
	"context"
	"encoding/base64"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/solarscan/internal/models"
	"github.com/lehigh-university-libraries/solarscan/internal/storage"
)

const uploadPrefix = "upload"

// Generator produces a StreamedResult for an image already on disk.
type Generator interface {
	Generate(ctx context.Context, imagePath, additionalText string) (*models.StreamedResult, error)
}

// Service runs one analysis per call: it persists the upload, hands it to the
// generator, encodes both images and removes every transient file it created
// before returning.
type Service struct {
	generator Generator
	store     *storage.TransientStore
	logger    *slog.Logger
}

func NewService(generator Generator, store *storage.TransientStore, logger *slog.Logger) *Service {
	return &Service{
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Analyze returns the merged response for req. Errors are *models.Error.
func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	var uploadPath string
	result := &models.StreamedResult{}

	defer func() {
		s.cleanup(uploadPath)
		s.cleanup(result.ImagePath)
	}()

	uploadPath, err := s.store.Create(uploadPrefix, uploadExt(req.Upload.Filename), req.Upload.Data)
	if err != nil {
		return nil, models.NewError(models.KindUpload, "failed to save upload", err)
	}

	generated, err := s.generator.Generate(ctx, uploadPath, req.AdditionalText)
	if err != nil {
		return nil, err
	}
	if generated != nil {
		result = generated
	}

	uploaded, err := s.store.ReadFile(uploadPath)
	if err != nil {
		return nil, models.NewError(models.KindMissingFile, "failed to read upload", err)
	}

	resp := &models.AnalysisResponse{
		TextResponse:  result.TextResponse,
		UploadedImage: base64.StdEncoding.EncodeToString(uploaded),
	}

	if result.ImagePath != "" && s.store.Exists(result.ImagePath) {
		img, err := s.store.ReadFile(result.ImagePath)
		if err != nil {
			return nil, models.NewError(models.KindMissingFile, "failed to read generated image", err)
		}
		resp.GeneratedImage = base64.StdEncoding.EncodeToString(img)
		s.cleanup(result.ImagePath)
		result.ImagePath = ""
	}

	s.cleanup(uploadPath)
	uploadPath = ""

	if result.Error != "" {
		return nil, models.NewError(models.KindReport, result.Error, nil)
	}

	s.logger.Info("Analysis complete",
		"filename", req.Upload.Filename,
		"text_length", len(resp.TextResponse),
		"generated_image", resp.GeneratedImage != "",
	)
	return resp, nil
}

func (s *Service) cleanup(path string) {
	if path == "" {
		return
	}
	if err := s.store.Remove(path); err != nil {
		s.logger.Error("Failed to remove transient file", "path", path, "error", err)
	}
}

// uploadExt keeps a short, safe extension from the client filename.
func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
