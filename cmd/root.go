package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solarscan",
		Short: "Rooftop solar feasibility analysis powered by Gemini",
		Long: `Solarscan analyzes rooftop images with a multimodal Gemini model.

It returns a structured solar feasibility report (usable area, panel count,
system size, output, cost and payback) together with an annotated image that
marks usable and obstructed roof areas.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAnalyzeCmd())

	return cmd
}
