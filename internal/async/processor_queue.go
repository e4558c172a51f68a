package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
)

var _ Queue = (*ProcessorQueue)(nil)

// ProcessorQueue runs OCR jobs on a fixed pool of workers fed by a buffered channel.
type ProcessorQueue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	jobs     chan Job
	inflight sync.WaitGroup
	started  sync.Once

	// mu guards jobs against a send after close.
	mu      sync.RWMutex
	stopped bool
}

// Option configures a ProcessorQueue.
type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.jobs = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		jobs:    make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.started.Do(func() {
		q.inflight.Add(q.workers)
		for id := 1; id <= q.workers; id++ {
			go q.work(id)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.inflight.Done()
	log := q.logger.With("worker_id", workerID)
	log.Debug("queue.worker.started")
	for job := range q.jobs {
		q.run(log, job)
	}
	log.Debug("queue.worker.stopped")
}

func (q *ProcessorQueue) run(log *slog.Logger, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	ctx = common.WithDocumentID(ctx, job.DocumentID.String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("queue.job.panic", "document_id", job.DocumentID, "panic", r)
		}
	}()

	if err := q.proc.ProcessDocument(ctx, job.DocumentID, job.Force); err != nil {
		log.Error("queue.job.failed",
			"document_id", job.DocumentID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	log.Info("queue.job.done",
		"document_id", job.DocumentID,
		"wait_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue hands a job to the workers. When the buffer is full it blocks
// until a worker frees a slot or ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		q.logger.Warn("queue.enqueue.rejected", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if len(q.jobs) == cap(q.jobs) {
		q.logger.Warn("queue.full", "document_id", job.DocumentID, "capacity", cap(q.jobs))
	}
	select {
	case q.jobs <- job:
		q.logger.Info("queue.job.enqueued", "document_id", job.DocumentID, "force", job.Force, "depth", len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes intake and waits for queued and running jobs, or for ctx.
// Calling it again is a no-op.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		q.logger.Info("queue.shutdown.drained")
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.timeout", "pending", len(q.jobs), "error", ctx.Err())
	}
}
