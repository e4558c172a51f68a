package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

// Service is a small façade over repositories that produces export bytes.
type Service struct {
	docs   repository.DocumentRepository
	evals  repository.EvaluationRepository
	pdf    *PDFRenderer
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, evals repository.EvaluationRepository, pdf *PDFRenderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, evals: evals, pdf: pdf, logger: logger}
}

// DocumentPDF renders a document's extracted text. It returns the download
// filename with the bytes.
func (s *Service) DocumentPDF(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	start := time.Now()
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if !doc.Status.Terminal() {
		return "", nil, fmt.Errorf("document %s is %s: %w", id, doc.Status, ErrNotReady)
	}
	b, err := s.pdf.Render(doc.Filename, doc.PredictedText)
	if err != nil {
		s.logger.Error("export.pdf.failed", "document_id", id, "error", err)
		return "", nil, err
	}
	s.logger.Info("export.pdf.ok",
		"document_id", id,
		"bytes", len(b),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return PDFFilename(doc.Filename), b, nil
}

// ExportEvaluationsXLSX returns an XLSX workbook (as bytes) for the date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all evaluations.
func (s *Service) ExportEvaluationsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	lo, hi := DateWindow(from, to, time.Now())
	evs, err := s.evals.List(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(evs))
	seen := make(map[uuid.UUID]struct{}, len(evs))
	for _, ev := range evs {
		if _, ok := seen[ev.DocumentID]; !ok {
			seen[ev.DocumentID] = struct{}{}
			ids = append(ids, ev.DocumentID)
		}
	}
	docs, err := s.docs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	rows := make([]EvaluationRow, 0, len(evs))
	for _, ev := range evs {
		row := EvaluationRow{
			Accuracy:    ev.Accuracy,
			Correct:     ev.Correct,
			Total:       ev.Total,
			Mismatches:  ev.Mismatches,
			EvaluatedAt: ev.CreatedAt,
		}
		if d, ok := docs[ev.DocumentID]; ok {
			row.Filename = d.Filename
			row.Status = string(d.Status)
			row.Model = d.ModelName
		}
		rows = append(rows, row)
	}

	b, err := BuildEvaluationsWorkbook(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// DateWindow turns inclusive calendar dates into a half-open [lo, hi) range in UTC.
// Zero results are open bounds.
func DateWindow(from, to *time.Time, now time.Time) (lo, hi time.Time) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	if from != nil {
		lo = day(*from)
		if to == nil {
			hi = day(now.UTC()).AddDate(0, 0, 1)
		}
	}
	if to != nil {
		hi = day(*to).AddDate(0, 0, 1)
	}
	return lo, hi
}
