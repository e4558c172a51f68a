package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

// Ingestor validates uploads, stores them deduplicated by content hash and
// hands them to the OCR queue.
type Ingestor struct {
	docs     repository.DocumentRepository
	queue    async.Queue // nil: store only
	maxBytes int64
	logger   *slog.Logger
}

func NewIngestor(docs repository.DocumentRepository, queue async.Queue, maxBytes int64, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxImageBytes
	}
	return &Ingestor{docs: docs, queue: queue, maxBytes: maxBytes, logger: logger}
}

// Ingest stores one upload. Identical bytes resolve to the existing document;
// force re-runs OCR for it.
func (i *Ingestor) Ingest(ctx context.Context, filename string, data []byte, force bool) (Result, error) {
	log := common.LoggerFromContext(ctx, i.logger)
	out := Result{Filename: filename}

	img, err := ocr.ValidateImage(filename, data, i.maxBytes)
	if err != nil {
		log.Warn("ingest.rejected", "filename", filename, "bytes", len(data), "error", err)
		return out, err
	}

	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	doc, dedup, err := i.upsert(ctx, img, out.HashHex)
	if err != nil {
		return out, err
	}
	out.DocumentID = doc.ID
	out.Status = doc.Status
	out.Deduplicated = dedup

	if dedup && force {
		if err := i.docs.Requeue(ctx, doc.ID); err != nil {
			return out, fmt.Errorf("requeue: %w", err)
		}
		out.Status = constants.DocumentStatusQueued
	}

	if out.Status == constants.DocumentStatusQueued && i.queue != nil {
		job := async.Job{DocumentID: doc.ID, Force: force, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)}
		if err := i.queue.Enqueue(ctx, job); err != nil {
			return out, fmt.Errorf("enqueue: %w", err)
		}
		out.Queued = true
	}

	log.Info("ingest.ok",
		"document_id", doc.ID,
		"filename", filename,
		"bytes", len(data),
		"deduplicated", dedup,
		"queued", out.Queued,
	)
	return out, nil
}

func (i *Ingestor) upsert(ctx context.Context, img ocr.Image, hashHex string) (*entity.Document, bool, error) {
	if existing, err := i.docs.GetByHash(ctx, hashHex); err == nil {
		return existing, true, nil
	} else if !repository.IsNotFound(err) {
		return nil, false, err
	}

	created, err := i.docs.Create(ctx, &entity.Document{
		Filename:    filepath.Base(img.Filename),
		MIMEType:    img.MIMEType,
		ContentHash: hashHex,
		Image:       img.Data,
	})
	if err != nil {
		// Lost a race with an identical concurrent upload.
		if existing, gerr := i.docs.GetByHash(ctx, hashHex); gerr == nil {
			return existing, true, nil
		}
		return nil, false, err
	}
	return created, false, nil
}

// IngestPath reads a local file and ingests it.
func (i *Ingestor) IngestPath(ctx context.Context, path string, force bool) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{SourcePath: path}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{SourcePath: abs}, err
	}
	if info.Size() > i.maxBytes {
		return Result{SourcePath: abs, Filename: filepath.Base(abs)}, ocr.ErrImageTooLarge
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{SourcePath: abs}, err
	}
	r, err := i.Ingest(ctx, filepath.Base(abs), data, force)
	r.SourcePath = abs
	return r, err
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each image. Returns per-file results + aggregate stats.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, skipHidden, force bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedPath(path) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path, force)
		if err != nil {
			r.SourcePath = path
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// ResumePending re-enqueues documents left QUEUED or RUNNING by a previous
// process. RUNNING ones are reset first.
func (i *Ingestor) ResumePending(ctx context.Context) (int, error) {
	if i.queue == nil {
		return 0, nil
	}
	docs, err := i.docs.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		switch d.Status {
		case constants.DocumentStatusRunning:
			if err := i.docs.Requeue(ctx, d.ID); err != nil {
				return n, err
			}
		case constants.DocumentStatusQueued:
		default:
			continue
		}
		if err := i.queue.Enqueue(ctx, async.Job{DocumentID: d.ID, SubmittedAt: time.Now()}); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		i.logger.Info("ingest.resume", "documents", n)
	}
	return n, nil
}
