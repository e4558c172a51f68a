package evaluation

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
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/entity"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

func setup(t *testing.T) (*Service, repository.DocumentRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), repository.Config{
		DSN: "file:" + filepath.Join(t.TempDir(), "e.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(logger) })

	docs := repository.NewDocumentRepository(db, logger)
	return NewService(docs, repository.NewEvaluationRepository(db, logger), logger), docs
}

func finishedDoc(t *testing.T, docs repository.DocumentRepository, status constants.DocumentStatus, text string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	d, err := docs.Create(ctx, &entity.Document{
		Filename: "n.png", MIMEType: "image/png", ContentHash: uuid.NewString(), Image: []byte("x"),
	})
	require.NoError(t, err)
	if status.Terminal() {
		require.NoError(t, docs.FinishOCR(ctx, d.ID, repository.FinishOCRParams{Status: status, Text: text}))
	}
	return d.ID
}

func TestEvaluate(t *testing.T) {
	svc, docs := setup(t)
	ctx := context.Background()
	id := finishedDoc(t, docs, constants.DocumentStatusOCROK, "The quick brown fox")

	out, err := svc.Evaluate(ctx, id, "the quick red fox jumps")
	require.NoError(t, err)
	assert.Equal(t, 60.0, out.Report.Accuracy)
	assert.Equal(t, 3, out.Report.Correct)
	assert.Equal(t, 5, out.Report.Total)
	assert.Equal(t, []string{"red", "jumps"}, out.Report.Mismatches)
	assert.Equal(t, "red, jumps", out.Display)
	assert.Equal(t, "The quick brown fox", out.Evaluation.Predicted)

	hist, err := svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, out.Evaluation.ID, hist[0].ID)

	all, err := svc.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEvaluate_Errors(t *testing.T) {
	svc, docs := setup(t)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, uuid.New(), "  \n ")
	assert.ErrorIs(t, err, ErrGroundTruthRequired)

	_, err = svc.Evaluate(ctx, uuid.New(), "words")
	assert.ErrorIs(t, err, common.ErrNotFound)

	queued := finishedDoc(t, docs, constants.DocumentStatusQueued, "")
	_, err = svc.Evaluate(ctx, queued, "words")
	assert.ErrorIs(t, err, ErrNotReady)

	now := time.Now()
	_, err = svc.List(ctx, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestEvaluate_FailedExtractionIsScored(t *testing.T) {
	svc, docs := setup(t)
	id := finishedDoc(t, docs, constants.DocumentStatusFailed, ocr.ErrorMarker+"timeout")

	out, err := svc.Evaluate(context.Background(), id, "hello world")
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Report.Accuracy)
	assert.Equal(t, []string{"hello", "world"}, out.Report.Mismatches)
}

func TestScore(t *testing.T) {
	r, err := Score("a b", "a b c")
	require.NoError(t, err)
	assert.Equal(t, 66.67, r.Accuracy)

	_, err = Score("a", "")
	assert.ErrorIs(t, err, ErrGroundTruthRequired)
}
