package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/solarscan/internal/config"
	"github.com/lehigh-university-libraries/solarscan/internal/handlers"
	"github.com/lehigh-university-libraries/solarscan/internal/logging"
	"github.com/lehigh-university-libraries/solarscan/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type analyzeOptions struct {
	additionalText string
	format         string
	saveImage      string
}

// analyzeOutput is the document printed by the analyze command. When the
// annotated image is saved to disk the base64 payloads are left out.
type analyzeOutput struct {
	TextResponse       string `json:"text_response" yaml:"text_response"`
	UploadedImage      string `json:"uploaded_image,omitempty" yaml:"uploaded_image,omitempty"`
	GeneratedImage     string `json:"generated_image,omitempty" yaml:"generated_image,omitempty"`
	GeneratedImagePath string `json:"generated_image_path,omitempty" yaml:"generated_image_path,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	var model string

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze a single rooftop image from the command line",
		Long: `Runs one rooftop solar feasibility analysis without starting the server.

The report is printed as JSON (default) or YAML. Use --save-image to write the
annotated image returned by the model to disk.`,
		Example: `  # Analyze a rooftop and print the report as YAML
  solarscan analyze roof.png --format yaml

  # Add context and keep the annotated image
  solarscan analyze roof.jpg --context "Jaipur, flat RCC roof" --save-image roof_annotated.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "yaml" {
				return fmt.Errorf("invalid --format %q: must be json or yaml", opts.format)
			}

			cfg := config.Load()
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

			return runAnalyze(cmd.Context(), a.service, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.additionalText, "context", "", "Additional context for the analysis (location, roof type, ...)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format (json or yaml)")
	cmd.Flags().StringVar(&opts.saveImage, "save-image", "", "Write the annotated image to this path")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model name (overrides GEMINI_MODEL)")

	return cmd
}

func runAnalyze(ctx context.Context, analyzer handlers.Analyzer, imagePath string, opts analyzeOptions, out io.Writer) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := analyzer.Analyze(ctx, models.AnalysisRequest{
		Upload:         models.UploadedImage{Filename: filepath.Base(imagePath), Data: data},
		AdditionalText: opts.additionalText,
	})
	if err != nil {
		return err
	}

	doc := analyzeOutput{
		TextResponse:   resp.TextResponse,
		UploadedImage:  resp.UploadedImage,
		GeneratedImage: resp.GeneratedImage,
	}

	if opts.saveImage != "" {
		doc.UploadedImage = ""
		doc.GeneratedImage = ""
		if resp.GeneratedImage != "" {
			img, err := base64.StdEncoding.DecodeString(resp.GeneratedImage)
			if err != nil {
				return fmt.Errorf("failed to decode generated image: %w", err)
			}
			if err := os.WriteFile(opts.saveImage, img, 0644); err != nil {
				return fmt.Errorf("failed to save generated image: %w", err)
			}
			doc.GeneratedImagePath = opts.saveImage
		}
	}

	switch opts.format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(&doc)
	}
}
