package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ingest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/pipeline"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		force      bool
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "ingest DIR",
		Short: "Store and OCR every image under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ex, err := a.extractor()
			if err != nil {
				return err
			}
			db, err := repository.Open(ctx, repository.Config{
				DSN:             a.cfg.Database.DSN,
				MaxConns:        a.cfg.Database.MaxConns,
				MinConns:        a.cfg.Database.MinConns,
				MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
				MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime,
				DialTimeout:     a.cfg.Database.DialTimeout,
			}, a.logger)
			if err != nil {
				return err
			}
			defer db.Close(a.logger)

			docs := repository.NewDocumentRepository(db, a.logger)
			queue := async.NewProcessorQueue(pipeline.NewProcessor(docs, ex, a.logger), a.logger,
				async.WithWorkers(a.cfg.OCR.Workers),
				async.WithQueueSize(a.cfg.OCR.QueueSize),
				async.WithProcessTimeout(a.cfg.OCR.JobTimeout),
			)
			ing := ingest.NewIngestor(docs, queue, int64(a.cfg.OCR.MaxImageBytes), a.logger)

			results, stats, err := ing.IngestDirectory(ctx, args[0], skipHidden, force)
			// Drain OCR for everything that was queued before reporting.
			queue.Shutdown(ctx)
			if err != nil {
				return err
			}
			refreshStatuses(ctx, docs, results)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"results": results, "stats": stats}); err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d files failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-run OCR for images already stored")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	return cmd
}

// refreshStatuses replaces the at-ingest status with the one stored after OCR.
func refreshStatuses(ctx context.Context, docs repository.DocumentRepository, results []ingest.Result) {
	ids := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		if r.DocumentID != uuid.Nil {
			ids = append(ids, r.DocumentID)
		}
	}
	found, err := docs.ListByIDs(ctx, ids)
	if err != nil {
		return
	}
	for i := range results {
		if d, ok := found[results[i].DocumentID]; ok {
			results[i].Status = d.Status
		}
	}
}
