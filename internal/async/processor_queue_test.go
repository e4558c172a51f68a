package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
)

type recordingProcessor struct {
	mu     sync.Mutex
	seen   map[uuid.UUID]bool
	docIDs []string
	calls  atomic.Int32
	block  chan struct{}
	err    error
}

func (p *recordingProcessor) ProcessDocument(ctx context.Context, id uuid.UUID, force bool) error {
	p.calls.Add(1)
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = map[uuid.UUID]bool{}
	}
	p.seen[id] = force
	p.docIDs = append(p.docIDs, common.DocumentIDFromContext(ctx))
	return p.err
}

func TestProcessorQueue_ProcessesAllJobs(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("ignored")}
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(2))

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: ids[i], Force: i%2 == 0}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.EqualValues(t, 10, proc.calls.Load())
	for i, id := range ids {
		force, ok := proc.seen[id]
		require.True(t, ok)
		assert.Equal(t, i%2 == 0, force)
	}
	assert.Len(t, proc.docIDs, 10)
	assert.NotContains(t, proc.docIDs, "")
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
	assert.EqualValues(t, 2, proc.calls.Load())
}

func TestProcessorQueue_JobTimeout(t *testing.T) {
	var deadline atomic.Bool
	proc := processorFunc(func(ctx context.Context, _ uuid.UUID, _ bool) error {
		_, ok := ctx.Deadline()
		deadline.Store(ok)
		<-ctx.Done()
		return ctx.Err()
	})
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	q.Shutdown(context.Background())
	assert.True(t, deadline.Load())
}

type processorFunc func(ctx context.Context, id uuid.UUID, force bool) error

func (f processorFunc) ProcessDocument(ctx context.Context, id uuid.UUID, force bool) error {
	return f(ctx, id, force)
}
