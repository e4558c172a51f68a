package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
)

const documentsTable = "documents"

// documentListColumns excludes the image bytes.
var documentListColumns = []string{
	"id", "filename", "mime_type", "size_bytes", "content_hash", "status",
	"predicted_text", "error_message", "model_name", "attempts",
	"created_at", "updated_at", "started_at", "finished_at",
}

// FinishOCRParams is the outcome of one extraction.
type FinishOCRParams struct {
	Status       constants.DocumentStatus
	Text         string
	ModelName    string
	ErrorMessage string
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) (*entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hashHex string) (*entity.Document, error)
	List(ctx context.Context, limit int) ([]*entity.Document, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Document, error)
	MarkRunning(ctx context.Context, id uuid.UUID) (bool, error)
	FinishOCR(ctx context.Context, id uuid.UUID, p FinishOCRParams) error
	Requeue(ctx context.Context, id uuid.UUID) error
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger, now: time.Now}
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	out := *doc
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Status == "" {
		out.Status = constants.DocumentStatusQueued
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	out.CreatedAt, out.UpdatedAt = now, now
	out.SizeBytes = int64(len(out.Image))

	q, args := r.db.builder().Insert(documentsTable).
		Columns("id", "filename", "mime_type", "size_bytes", "content_hash", "image", "status",
			"predicted_text", "error_message", "model_name", "attempts", "created_at", "updated_at").
		Values(out.ID.String(), out.Filename, out.MIMEType, out.SizeBytes, out.ContentHash, out.Image, string(out.Status),
			out.PredictedText, out.ErrorMessage, out.ModelName, out.Attempts, toMillis(now), toMillis(now)).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to create document", "filename", out.Filename, "content_hash", out.ContentHash, "error", err)
		return nil, common.WrapError(err, "create document")
	}
	r.logger.Info("document created", "document_id", out.ID, "filename", out.Filename, "bytes", out.SizeBytes)
	return &out, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.getOne(ctx, entsql.EQ("id", id.String()), "id", id.String())
}

func (r *documentRepo) GetByHash(ctx context.Context, hashHex string) (*entity.Document, error) {
	return r.getOne(ctx, entsql.EQ("content_hash", hashHex), "content_hash", hashHex)
}

func (r *documentRepo) getOne(ctx context.Context, p *entsql.Predicate, key, val string) (*entity.Document, error) {
	cols := append(append([]string{}, documentListColumns...), "image")
	q, args := r.db.builder().Select(cols...).
		From(entsql.Table(documentsTable)).
		Where(p).
		Limit(1).
		Query()
	docs, err := r.query(ctx, q, args, true)
	if err != nil {
		r.logger.Error("failed to get document", key, val, "error", err)
		return nil, common.WrapError(err, "get document")
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s=%s: %w", key, val, common.ErrNotFound)
	}
	return docs[0], nil
}

// List returns newest documents first, without image bytes. limit <= 0 means no limit.
func (r *documentRepo) List(ctx context.Context, limit int) ([]*entity.Document, error) {
	sel := r.db.builder().Select(documentListColumns...).
		From(entsql.Table(documentsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()
	docs, err := r.query(ctx, q, args, false)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, common.WrapError(err, "list documents")
	}
	return docs, nil
}

// ListByIDs loads documents (without image bytes) keyed by id. Unknown ids are absent.
func (r *documentRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Document, error) {
	out := make(map[uuid.UUID]*entity.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id.String()
	}
	q, args := r.db.builder().Select(documentListColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.In("id", vals...)).
		Query()
	docs, err := r.query(ctx, q, args, false)
	if err != nil {
		r.logger.Error("failed to list documents by id", "count", len(ids), "error", err)
		return nil, common.WrapError(err, "list documents")
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// MarkRunning claims a QUEUED document. It reports false when another worker
// already claimed it or it is no longer queued.
func (r *documentRepo) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	now := toMillis(r.now())
	q, args := r.db.builder().Update(documentsTable).
		Set("status", string(constants.DocumentStatusRunning)).
		Set("started_at", now).
		Set("updated_at", now).
		Add("attempts", 1).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.EQ("status", string(constants.DocumentStatusQueued)),
		)).
		Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to mark document running", "document_id", id, "error", err)
		return false, common.WrapError(err, "mark running")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.WrapError(err, "mark running")
	}
	return n == 1, nil
}

func (r *documentRepo) FinishOCR(ctx context.Context, id uuid.UUID, p FinishOCRParams) error {
	if !p.Status.Terminal() {
		return fmt.Errorf("finish ocr with status %q: %w", p.Status, common.ErrInvalidInput)
	}
	now := toMillis(r.now())
	q, args := r.db.builder().Update(documentsTable).
		Set("status", string(p.Status)).
		Set("predicted_text", p.Text).
		Set("model_name", p.ModelName).
		Set("error_message", p.ErrorMessage).
		Set("finished_at", now).
		Set("updated_at", now).
		Where(entsql.EQ("id", id.String())).
		Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to finish document", "document_id", id, "status", p.Status, "error", err)
		return common.WrapError(err, "finish ocr")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if p.Status == constants.DocumentStatusFailed {
		r.logger.Warn("document finished (FAILED)", "document_id", id, "error", p.ErrorMessage)
	} else {
		r.logger.Info("document finished (OCR_OK)", "document_id", id, "model", p.ModelName, "text_len", len(p.Text))
	}
	return nil
}

// Requeue resets a document to QUEUED and clears its previous outcome.
func (r *documentRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	q, args := r.db.builder().Update(documentsTable).
		Set("status", string(constants.DocumentStatusQueued)).
		Set("predicted_text", "").
		Set("error_message", "").
		Set("updated_at", toMillis(r.now())).
		SetNull("started_at").
		SetNull("finished_at").
		Where(entsql.EQ("id", id.String())).
		Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		r.logger.Error("failed to requeue document", "document_id", id, "error", err)
		return common.WrapError(err, "requeue")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	r.logger.Info("document requeued", "document_id", id)
	return nil
}

func (r *documentRepo) query(ctx context.Context, q string, args []any, withImage bool) ([]*entity.Document, error) {
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		var (
			d                 entity.Document
			id, status        string
			created, updated  int64
			started, finished sql.NullInt64
		)
		dest := []any{
			&id, &d.Filename, &d.MIMEType, &d.SizeBytes, &d.ContentHash, &status,
			&d.PredictedText, &d.ErrorMessage, &d.ModelName, &d.Attempts,
			&created, &updated, &started, &finished,
		}
		if withImage {
			dest = append(dest, &d.Image)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bad document id %q: %w", id, err)
		}
		d.ID = parsed
		d.Status = constants.DocumentStatus(status)
		d.CreatedAt = fromMillis(created)
		d.UpdatedAt = fromMillis(updated)
		d.StartedAt = fromNullMillis(started)
		d.FinishedAt = fromNullMillis(finished)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether err is a repository miss.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
