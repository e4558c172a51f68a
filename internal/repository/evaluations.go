package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
)

const evaluationsTable = "evaluations"

var evaluationColumns = []string{
	"id", "document_id", "ground_truth", "predicted", "accuracy", "correct", "total", "mismatches", "created_at",
}

type EvaluationRepository interface {
	Create(ctx context.Context, ev *entity.Evaluation) (*entity.Evaluation, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Evaluation, error)
	// List returns evaluations with from <= created_at < to, oldest first.
	// A zero bound is open.
	List(ctx context.Context, from, to time.Time) ([]*entity.Evaluation, error)
}

type evaluationRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewEvaluationRepository(db *DB, logger *slog.Logger) EvaluationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &evaluationRepo{db: db, logger: logger, now: time.Now}
}

func (r *evaluationRepo) Create(ctx context.Context, ev *entity.Evaluation) (*entity.Evaluation, error) {
	out := *ev
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Mismatches == nil {
		out.Mismatches = []string{}
	}
	out.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	mm, err := json.Marshal(out.Mismatches)
	if err != nil {
		return nil, fmt.Errorf("encode mismatches: %w", err)
	}
	q, args := r.db.builder().Insert(evaluationsTable).
		Columns(evaluationColumns...).
		Values(out.ID.String(), out.DocumentID.String(), out.GroundTruth, out.Predicted,
			out.Accuracy, out.Correct, out.Total, string(mm), toMillis(out.CreatedAt)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to create evaluation", "document_id", out.DocumentID, "error", err)
		return nil, common.WrapError(err, "create evaluation")
	}
	r.logger.Info("evaluation created",
		"evaluation_id", out.ID,
		"document_id", out.DocumentID,
		"accuracy", out.Accuracy,
		"correct", out.Correct,
		"total", out.Total,
	)
	return &out, nil
}

func (r *evaluationRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Evaluation, error) {
	q, args := r.db.builder().Select(evaluationColumns...).
		From(entsql.Table(evaluationsTable)).
		Where(entsql.EQ("document_id", documentID.String())).
		OrderBy(entsql.Desc("created_at")).
		Query()
	evs, err := r.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list evaluations", "document_id", documentID, "error", err)
		return nil, common.WrapError(err, "list evaluations")
	}
	return evs, nil
}

func (r *evaluationRepo) List(ctx context.Context, from, to time.Time) ([]*entity.Evaluation, error) {
	var preds []*entsql.Predicate
	if !from.IsZero() {
		preds = append(preds, entsql.GTE("created_at", toMillis(from)))
	}
	if !to.IsZero() {
		preds = append(preds, entsql.LT("created_at", toMillis(to)))
	}
	sel := r.db.builder().Select(evaluationColumns...).
		From(entsql.Table(evaluationsTable)).
		OrderBy("created_at")
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	q, args := sel.Query()
	evs, err := r.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to list evaluations", "from", from, "to", to, "error", err)
		return nil, common.WrapError(err, "list evaluations")
	}
	return evs, nil
}

func (r *evaluationRepo) query(ctx context.Context, q string, args []any) ([]*entity.Evaluation, error) {
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Evaluation
	for rows.Next() {
		var (
			ev            entity.Evaluation
			id, docID, mm string
			created       int64
		)
		if err := rows.Scan(&id, &docID, &ev.GroundTruth, &ev.Predicted, &ev.Accuracy,
			&ev.Correct, &ev.Total, &mm, &created); err != nil {
			return nil, err
		}
		var err error
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad evaluation id %q: %w", id, err)
		}
		if ev.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, fmt.Errorf("bad document id %q: %w", docID, err)
		}
		if err := json.Unmarshal([]byte(mm), &ev.Mismatches); err != nil {
			return nil, fmt.Errorf("decode mismatches: %w", err)
		}
		ev.CreatedAt = fromMillis(created)
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
