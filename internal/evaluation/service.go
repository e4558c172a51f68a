package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

var (
	// ErrGroundTruthRequired is returned when no ground truth was entered.
	ErrGroundTruthRequired = errors.New("please enter ground truth first")
	// ErrNotReady is returned while a document is still waiting for OCR.
	ErrNotReady = errors.New("document has no extracted text yet")
)

// Outcome is one scored evaluation.
type Outcome struct {
	Evaluation *entity.Evaluation `json:"evaluation"`
	Report     accuracy.Report    `json:"report"`
	Display    string             `json:"mismatch_display"`
}

type Service struct {
	docs   repository.DocumentRepository
	evals  repository.EvaluationRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, evals repository.EvaluationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, evals: evals, logger: logger}
}

// Evaluate scores a document's predicted text against groundTruth and records it.
// Failed extractions are scored too: their text is the marked error string.
func (s *Service) Evaluate(ctx context.Context, documentID uuid.UUID, groundTruth string) (*Outcome, error) {
	if strings.TrimSpace(groundTruth) == "" {
		return nil, ErrGroundTruthRequired
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.Terminal() {
		return nil, fmt.Errorf("%w (status %s)", ErrNotReady, doc.Status)
	}

	report := accuracy.Evaluate(doc.PredictedText, groundTruth)
	ev, err := s.evals.Create(ctx, &entity.Evaluation{
		DocumentID:  documentID,
		GroundTruth: groundTruth,
		Predicted:   doc.PredictedText,
		Accuracy:    report.Accuracy,
		Correct:     report.Correct,
		Total:       report.Total,
		Mismatches:  report.Mismatches,
	})
	if err != nil {
		return nil, err
	}

	common.LoggerFromContext(ctx, s.logger).Info("evaluation.scored",
		"document_id", documentID,
		"accuracy", report.Accuracy,
		"correct", report.Correct,
		"total", report.Total,
		"mismatches", len(report.Mismatches),
	)
	return &Outcome{Evaluation: ev, Report: report, Display: report.MismatchDisplay()}, nil
}

// History returns a document's evaluations, newest first.
func (s *Service) History(ctx context.Context, documentID uuid.UUID) ([]*entity.Evaluation, error) {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.evals.ListByDocument(ctx, documentID)
}

// List returns evaluations created in [from, to). Zero bounds are open.
func (s *Service) List(ctx context.Context, from, to time.Time) ([]*entity.Evaluation, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", common.ErrInvalidInput)
	}
	return s.evals.List(ctx, from, to)
}

// Score is the stateless form: nothing is stored.
func Score(predicted, groundTruth string) (accuracy.Report, error) {
	if strings.TrimSpace(groundTruth) == "" {
		return accuracy.Report{}, ErrGroundTruthRequired
	}
	return accuracy.Evaluate(predicted, groundTruth), nil
}
