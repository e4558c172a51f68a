package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks a worker to OCR one document.
type Job struct {
	DocumentID  uuid.UUID
	Force       bool // re-run even if the document already finished
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DocumentProcessor is what a worker runs for each job.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, id uuid.UUID, force bool) error
}
