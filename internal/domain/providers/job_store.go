package providers

import (
	"context"
	"errors"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// ErrJobNotFound is returned when a request ID has no job record.
var ErrJobNotFound = errors.New("job not found")

// ErrJobTerminal is returned when mutating a job that already reached a
// terminal status.
var ErrJobTerminal = errors.New("job already terminal")

// JobStore tracks one record per external request. Two interchangeable
// backends (in-process map, shared Redis) implement it.
type JobStore interface {
	// Create registers a new RUNNING job for the request
	Create(ctx context.Context, requestID string) (*entities.SearchJob, error)

	// SetProgress updates progress (0-100) on a running job
	SetProgress(ctx context.Context, requestID string, progress int) error

	// SetDone marks the job terminal with a result
	SetDone(ctx context.Context, requestID string, status entities.JobStatus, result *entities.SearchResponse) error

	// SetError marks the job DONE_FAILED with an error code and message
	SetError(ctx context.Context, requestID string, code, message string) error

	// Get returns the job for a request
	Get(ctx context.Context, requestID string) (*entities.SearchJob, error)

	// ListRunning enumerates all non-terminal jobs, for drain-on-shutdown
	ListRunning(ctx context.Context) ([]*entities.SearchJob, error)

	// Close releases backend resources
	Close() error
}
