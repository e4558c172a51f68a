package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := Open(context.Background(), Config{DSN: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(logger) })
	return db
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newDoc(name, hash string) *entity.Document {
	return &entity.Document{
		Filename:    name,
		MIMEType:    "image/png",
		ContentHash: hash,
		Image:       []byte("img-" + hash),
	}
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
	assert.Equal(t, "sqlite3", db.Dialect())
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u@h/db"))
	assert.True(t, IsPostgres("postgresql://u@h/db"))
	assert.False(t, IsPostgres("file:ocr.db"))
}

func TestDocuments_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)

	created, err := repo.Create(ctx, newDoc("a.png", "h1"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, constants.DocumentStatusQueued, created.Status)
	assert.EqualValues(t, len("img-h1"), created.SizeBytes)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.png", got.Filename)
	assert.Equal(t, []byte("img-h1"), got.Image)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.Nil(t, got.StartedAt)

	byHash, err := repo.GetByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byHash.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
	_, err = repo.GetByHash(ctx, "nope")
	assert.True(t, IsNotFound(err))

	_, err = repo.Create(ctx, newDoc("dup.png", "h1"))
	assert.Error(t, err, "content hash is unique")
}

func TestDocuments_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)
	doc, err := repo.Create(ctx, newDoc("a.png", "h1"))
	require.NoError(t, err)

	ok, err := repo.MarkRunning(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkRunning(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok, "already claimed")

	require.NoError(t, repo.FinishOCR(ctx, doc.ID, FinishOCRParams{
		Status: constants.DocumentStatusOCROK, Text: "hello world", ModelName: "m",
	}))
	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusOCROK, got.Status)
	assert.Equal(t, "hello world", got.PredictedText)
	assert.Equal(t, 1, got.Attempts)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)

	err = repo.FinishOCR(ctx, doc.ID, FinishOCRParams{Status: constants.DocumentStatusRunning})
	assert.Error(t, err)

	require.NoError(t, repo.Requeue(ctx, doc.ID))
	got, err = repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusQueued, got.Status)
	assert.Empty(t, got.PredictedText)
	assert.Nil(t, got.FinishedAt)

	assert.True(t, IsNotFound(repo.Requeue(ctx, uuid.New())))
	assert.True(t, IsNotFound(repo.FinishOCR(ctx, uuid.New(), FinishOCRParams{Status: constants.DocumentStatusFailed})))
}

func TestDocuments_List(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil).(*documentRepo)
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo.now = c.now

	a, err := repo.Create(ctx, newDoc("a.png", "h1"))
	require.NoError(t, err)
	b, err := repo.Create(ctx, newDoc("b.png", "h2"))
	require.NoError(t, err)

	docs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, b.ID, docs[0].ID)
	assert.Equal(t, a.ID, docs[1].ID)
	assert.Nil(t, docs[0].Image)

	docs, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	byID, err := repo.ListByIDs(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Equal(t, "a.png", byID[a.ID].Filename)
}

func TestEvaluations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	docs := NewDocumentRepository(db, nil)
	repo := NewEvaluationRepository(db, nil).(*evaluationRepo)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo.now = c.now

	doc, err := docs.Create(ctx, newDoc("a.png", "h1"))
	require.NoError(t, err)

	first, err := repo.Create(ctx, &entity.Evaluation{
		DocumentID: doc.ID, GroundTruth: "a b c", Predicted: "a b",
		Accuracy: 66.67, Correct: 2, Total: 3, Mismatches: []string{"c"},
	})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &entity.Evaluation{
		DocumentID: doc.ID, GroundTruth: "a", Predicted: "a",
		Accuracy: 100, Correct: 1, Total: 1,
	})
	require.NoError(t, err)

	byDoc, err := repo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, byDoc, 2)
	assert.Equal(t, second.ID, byDoc[0].ID)
	assert.Equal(t, []string{}, byDoc[0].Mismatches)
	assert.Equal(t, []string{"c"}, byDoc[1].Mismatches)
	assert.InDelta(t, 66.67, byDoc[1].Accuracy, 1e-9)

	all, err := repo.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	onlySecond, err := repo.List(ctx, second.CreatedAt, time.Time{})
	require.NoError(t, err)
	require.Len(t, onlySecond, 1)
	assert.Equal(t, second.ID, onlySecond[0].ID)

	none, err := repo.List(ctx, time.Time{}, first.CreatedAt)
	require.NoError(t, err)
	assert.Empty(t, none)
}
