package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/export"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

type extractOutcome struct {
	path    string
	result  ocr.Result
	pdfPath string
	err     error
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		pdfDir      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "extract IMAGE...",
		Short: "Extract text from one or more images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.extractor()
			if err != nil {
				return err
			}
			var pdf *export.PDFRenderer
			if pdfDir != "" {
				pdf = export.NewPDFRenderer(a.cfg.PDF.FontPath)
				if err := pdf.Available(); err != nil {
					return err
				}
				if err := os.MkdirAll(pdfDir, 0o755); err != nil {
					return err
				}
			}

			outcomes := make([]extractOutcome, len(args))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for idx, path := range args {
				g.Go(func() error {
					outcomes[idx] = extractOne(gctx, ex, pdf, pdfDir, int64(a.cfg.OCR.MaxImageBytes), path)
					return nil
				})
			}
			_ = g.Wait()

			failed := printExtractOutcomes(cmd.OutOrStdout(), outcomes)
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfDir, "pdf-dir", "", "write <name>_llama.pdf for each image into this directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "images processed in parallel")
	return cmd
}

func extractOne(ctx context.Context, ex *ocr.Extractor, pdf *export.PDFRenderer, pdfDir string, maxBytes int64, path string) extractOutcome {
	out := extractOutcome{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		out.err = err
		return out
	}
	img, err := ocr.ValidateImage(filepath.Base(path), data, maxBytes)
	if err != nil {
		out.err = err
		return out
	}
	out.result = ex.Extract(ctx, img)
	if pdf == nil {
		return out
	}
	b, err := pdf.Render(img.Filename, out.result.Text)
	if err != nil {
		out.err = err
		return out
	}
	out.pdfPath = filepath.Join(pdfDir, export.PDFFilename(img.Filename))
	out.err = os.WriteFile(out.pdfPath, b, 0o644)
	return out
}

// printExtractOutcomes writes one block per image in argument order and returns
// how many could not be processed. A failed model call still prints its marked text.
func printExtractOutcomes(w io.Writer, outcomes []extractOutcome) int {
	failed := 0
	for idx, o := range outcomes {
		fmt.Fprintf(w, "=== File %d: %s\n", idx+1, o.path)
		if o.err != nil {
			failed++
			fmt.Fprintf(w, "error: %v\n\n", o.err)
			continue
		}
		if o.result.Failed {
			failed++
		}
		fmt.Fprintln(w, o.result.Text)
		if o.pdfPath != "" {
			fmt.Fprintf(w, "pdf: %s\n", o.pdfPath)
		}
		fmt.Fprintln(w)
	}
	return failed
}
