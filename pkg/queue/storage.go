package queue

import (
	"context"
	"time"
)

// InspectorRepository exposes read and operator actions over stored jobs.
type InspectorRepository interface {
	// GetJob returns a copy of the job or ErrJobNotFound.
	GetJob(ctx context.Context, queue, id string) (*Job, error)

	// RemoveJob deletes a job in any state.
	RemoveJob(ctx context.Context, queue, id string) error

	// RetryJob moves a failed job, or an active job whose lock expired,
	// back to waiting with a fresh attempt budget.
	RetryJob(ctx context.Context, queue, id string) error

	// Counts reports the number of jobs per state at the given instant.
	Counts(ctx context.Context, queue string, now time.Time) (Counts, error)

	// Queues lists every queue name that has ever stored a job or a repeatable.
	Queues(ctx context.Context) ([]string, error)
}

// Storage is the full persistence contract the manager runs on.
type Storage interface {
	EnqueuerRepository
	SchedulerRepository
	WorkerRepository
	InspectorRepository
}
