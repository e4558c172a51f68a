package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
)

func newScoreCmd(_ *app) *cobra.Command {
	var (
		predictedPath string
		truthPath     string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a transcript against ground truth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			predicted, err := os.ReadFile(predictedPath)
			if err != nil {
				return err
			}
			truth, err := os.ReadFile(truthPath)
			if err != nil {
				return err
			}
			report, err := evaluation.Score(string(predicted), string(truth))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&predictedPath, "predicted", "", "file with the OCR output")
	cmd.Flags().StringVar(&truthPath, "truth", "", "file with the ground truth transcript")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("predicted")
	_ = cmd.MarkFlagRequired("truth")
	return cmd
}

func printReport(w io.Writer, r accuracy.Report) {
	fmt.Fprintf(w, "Word-Level Accuracy: %.2f%% (%d/%d correct)\n", r.Accuracy, r.Correct, r.Total)
	if len(r.Mismatches) > 0 {
		fmt.Fprintf(w, "Mismatched words: %s\n", r.MismatchDisplay())
	}
}
