package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/docfields/internal/core"
	"github.com/joseph-ayodele/docfields/internal/core/format"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to process.
type Job struct {
	Request     core.ProcessingRequest
	SubmittedAt time.Time
}

// JobResult is what a worker hands to the result handler.
type JobResult struct {
	Job      Job
	Response *format.Response
	Err      error
	Duration time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// RequestProcessor is the part of core.Processor the workers need.
type RequestProcessor interface {
	Process(ctx context.Context, req core.ProcessingRequest) (*format.Response, error)
}
