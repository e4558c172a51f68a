package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-one")

type fakeQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func setup(t *testing.T) (*Ingestor, repository.DocumentRepository, *fakeQueue) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), repository.Config{
		DSN: "file:" + filepath.Join(t.TempDir(), "i.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(logger) })

	docs := repository.NewDocumentRepository(db, logger)
	q := &fakeQueue{}
	return NewIngestor(docs, q, 0, logger), docs, q
}

func TestIngest_CreatesAndQueues(t *testing.T) {
	ing, docs, q := setup(t)
	ctx := context.Background()

	r, err := ing.Ingest(ctx, "page.png", pngBytes, false)
	require.NoError(t, err)
	assert.False(t, r.Deduplicated)
	assert.True(t, r.Queued)
	assert.Len(t, r.HashHex, 64)
	assert.Equal(t, constants.DocumentStatusQueued, r.Status)
	require.Equal(t, 1, q.len())
	assert.Equal(t, r.DocumentID, q.jobs[0].DocumentID)

	doc, err := docs.GetByID(ctx, r.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MIMEType)
	assert.Equal(t, pngBytes, doc.Image)
}

func TestIngest_DeduplicatesByContent(t *testing.T) {
	ing, docs, q := setup(t)
	ctx := context.Background()

	first, err := ing.Ingest(ctx, "a.png", pngBytes, false)
	require.NoError(t, err)
	require.NoError(t, docs.FinishOCR(ctx, first.DocumentID, repository.FinishOCRParams{
		Status: constants.DocumentStatusOCROK, Text: "done",
	}))

	second, err := ing.Ingest(ctx, "renamed.png", pngBytes, false)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.False(t, second.Queued)
	assert.Equal(t, 1, q.len())

	forced, err := ing.Ingest(ctx, "renamed.png", pngBytes, true)
	require.NoError(t, err)
	assert.True(t, forced.Deduplicated)
	assert.True(t, forced.Queued)
	assert.Equal(t, 2, q.len())
	assert.True(t, q.jobs[1].Force)
}

func TestIngest_Rejects(t *testing.T) {
	ing, _, q := setup(t)
	_, err := ing.Ingest(context.Background(), "a.txt", pngBytes, false)
	assert.ErrorIs(t, err, ocr.ErrUnsupportedFormat)

	big := make([]byte, constants.MaxImageBytes+1)
	copy(big, pngBytes)
	_, err = ing.Ingest(context.Background(), "big.png", big, false)
	assert.ErrorIs(t, err, ocr.ErrImageTooLarge)
	assert.Equal(t, 0, q.len())
}

func TestIngestDirectory(t *testing.T) {
	ing, _, _ := setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), pngBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.png"), pngBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.jpg"), []byte("not a jpeg"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden", "c.png"), pngBytes, 0o644))

	results, stats, err := ing.IngestDirectory(context.Background(), root, true, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 2, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.EqualValues(t, 1, stats.Failed)

	_, _, err = ing.IngestDirectory(context.Background(), " ", true, false)
	assert.Error(t, err)
}

func TestResumePending(t *testing.T) {
	ing, docs, q := setup(t)
	ctx := context.Background()

	a, err := ing.Ingest(ctx, "a.png", pngBytes, false)
	require.NoError(t, err)
	ok, err := docs.MarkRunning(ctx, a.DocumentID)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := ing.ResumePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, q.len())

	doc, err := docs.GetByID(ctx, a.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusQueued, doc.Status)
}

func TestWatchAndIngest(t *testing.T) {
	ing, docs, _ := setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.png"), pngBytes, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ing.WatchAndIngest(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	}()

	require.Eventually(t, func() bool {
		list, err := docs.List(context.Background(), 0)
		return err == nil && len(list) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
