package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

// TextExtractor runs one image through OCR. Failures are reported in the Result.
type TextExtractor interface {
	Extract(ctx context.Context, img ocr.Image) ocr.Result
}

var _ async.DocumentProcessor = (*Processor)(nil)

// Processor runs OCR for stored documents and records the outcome.
type Processor struct {
	docs      repository.DocumentRepository
	extractor TextExtractor
	logger    *slog.Logger
}

func NewProcessor(docs repository.DocumentRepository, extractor TextExtractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{docs: docs, extractor: extractor, logger: logger}
}

// ProcessDocument claims a queued document, OCRs it and stores the text.
// Finished documents are skipped unless force is set; a document another
// worker already claimed is skipped.
func (p *Processor) ProcessDocument(ctx context.Context, id uuid.UUID, force bool) error {
	start := time.Now()
	log := common.LoggerFromContext(common.WithDocumentID(ctx, id.String()), p.logger)

	doc, err := p.docs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if doc.Status != constants.DocumentStatusQueued {
		if !force || doc.Status == constants.DocumentStatusRunning {
			log.Info("pipeline.skip", "status", doc.Status, "force", force)
			return nil
		}
		if err := p.docs.Requeue(ctx, id); err != nil {
			return fmt.Errorf("requeue: %w", err)
		}
	}

	claimed, err := p.docs.MarkRunning(ctx, id)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	if !claimed {
		log.Info("pipeline.skip", "reason", "claimed elsewhere")
		return nil
	}

	log.Info("pipeline.ocr.start", "filename", doc.Filename, "bytes", len(doc.Image))
	res := p.extractor.Extract(ctx, ocr.Image{Filename: doc.Filename, MIMEType: doc.MIMEType, Data: doc.Image})

	outcome := repository.FinishOCRParams{
		Status:    constants.DocumentStatusOCROK,
		Text:      res.Text,
		ModelName: res.Model,
	}
	if res.Failed {
		outcome.Status = constants.DocumentStatusFailed
		outcome.ErrorMessage = res.Error
	}

	// Persist even if the job context expired during the model call.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.docs.FinishOCR(saveCtx, id, outcome); err != nil {
		log.Error("pipeline.persist.failed", "error", err)
		return fmt.Errorf("finish ocr: %w", err)
	}

	log.Info("pipeline.ocr.done",
		"status", outcome.Status,
		"text_len", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
