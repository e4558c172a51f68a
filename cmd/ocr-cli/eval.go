package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/export"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/manifest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

type caseOutcome struct {
	c      manifest.Case
	result ocr.Result
	report accuracy.Report
	err    error
}

func newEvalCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		xlsxPath     string
		concurrency  int
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "OCR and score every case of a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}
			ex, err := a.extractor()
			if err != nil {
				return err
			}
			maxBytes := int64(a.cfg.OCR.MaxImageBytes)

			outcomes := make([]caseOutcome, len(m.Cases))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for idx, c := range m.Cases {
				g.Go(func() error {
					o := caseOutcome{c: c}
					data, err := os.ReadFile(c.Image)
					if err == nil {
						var img ocr.Image
						if img, err = ocr.ValidateImage(filepath.Base(c.Image), data, maxBytes); err == nil {
							o.result = ex.Extract(gctx, img)
							o.report, err = evaluation.Score(o.result.Text, c.GroundTruth)
						}
					}
					o.err = err
					outcomes[idx] = o
					return nil
				})
			}
			_ = g.Wait()

			rows := printEvalSummary(cmd.OutOrStdout(), outcomes)
			if xlsxPath == "" {
				return nil
			}
			b, err := export.BuildEvaluationsWorkbook(rows)
			if err != nil {
				return err
			}
			if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest JSON listing images and ground truth")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the evaluation report to this XLSX file")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "cases processed in parallel")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

// printEvalSummary prints a line per case plus the mean accuracy and returns
// the scored cases as report rows.
func printEvalSummary(w io.Writer, outcomes []caseOutcome) []export.EvaluationRow {
	now := time.Now().UTC()
	rows := make([]export.EvaluationRow, 0, len(outcomes))
	var sum float64
	for _, o := range outcomes {
		if o.err != nil {
			fmt.Fprintf(w, "%-32s error: %v\n", o.c.Title, o.err)
			continue
		}
		status := "SUCCEEDED"
		if o.result.Failed {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-32s %6.2f%% (%d/%d)\n", o.c.Title, o.report.Accuracy, o.report.Correct, o.report.Total)
		sum += o.report.Accuracy
		rows = append(rows, export.EvaluationRow{
			Filename:    o.c.Title,
			Status:      status,
			Model:       o.result.Model,
			Accuracy:    o.report.Accuracy,
			Correct:     o.report.Correct,
			Total:       o.report.Total,
			Mismatches:  o.report.Mismatches,
			EvaluatedAt: now,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintf(w, "mean accuracy: %.2f%% over %d of %d cases\n", accuracy.Round2(sum/float64(len(rows))), len(rows), len(outcomes))
	}
	return rows
}
