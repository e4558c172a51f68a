package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/llm/together"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

// app is shared by every subcommand once the root PersistentPreRunE ran.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "ocr-cli",
		Short:         "Handwriting OCR with a hosted vision model",
		Long:          `Extract text from handwritten or printed images, score it against ground truth and export PDFs and XLSX reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			a.cfg = cfg
			// stdout carries results; logs go to stderr
			a.logger = common.NewLogger(cfg.Log, os.Stderr)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newExtractCmd(a),
		newScoreCmd(a),
		newEvalCmd(a),
		newIngestCmd(a),
	)
	return root
}

func (a *app) extractor() (*ocr.Extractor, error) {
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("TOGETHER_API_KEY is required: %w", common.ErrInvalidInput)
	}
	client := together.NewClient(together.Config{
		APIKey:  a.cfg.LLM.APIKey,
		BaseURL: a.cfg.LLM.BaseURL,
		Model:   a.cfg.LLM.Model,
		Timeout: a.cfg.LLM.Timeout,
	}, a.logger)
	return ocr.NewExtractor(ocr.Config{}, client, a.logger), nil
}
