package queue

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadMarshal is returned when payload marshaling fails
	ErrPayloadMarshal = errors.New("failed to marshal payload to JSON")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrJobNameRequired is returned when a job is enqueued without a name
	ErrJobNameRequired = errors.New("job name is required")

	// ErrJobExists is returned by storage when a job with the same ID already exists
	ErrJobExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job does not exist in the queue
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNil is returned when the processor receives no job
	ErrJobNil = errors.New("job is undefined")

	// ErrJobNotActive is returned when a state transition requires an active job
	ErrJobNotActive = errors.New("job is not active")

	// ErrJobNotRetryable is returned when a manual retry targets a job that is not failed or stalled
	ErrJobNotRetryable = errors.New("job is neither failed nor stalled")

	// ErrNoJobToClaim is returned by storage when no eligible job is waiting
	ErrNoJobToClaim = errors.New("no job to claim")

	// ErrHandlerNotFound is returned when no handler is registered for a job name
	ErrHandlerNotFound = errors.New("no handler registered for job name")

	// ErrNoHandlers is returned when a worker is created without a handler
	ErrNoHandlers = errors.New("no job handlers registered")

	// ErrInvalidSchedule is returned when a repeat schedule cannot be parsed
	ErrInvalidSchedule = errors.New("invalid schedule format")

	// ErrNoScheduleSpecified is returned when repeat options carry neither pattern nor interval
	ErrNoScheduleSpecified = errors.New("no schedule specified for repeatable job")

	// ErrRepeatableNotFound is returned when a repeatable definition does not exist
	ErrRepeatableNotFound = errors.New("repeatable job not found")

	// ErrManagerClosed is returned when the manager has been closed
	ErrManagerClosed = errors.New("queue manager is closed")

	// ErrWorkerAlreadyStarted is returned when starting a running worker
	ErrWorkerAlreadyStarted = errors.New("worker already started")

	// ErrStorageConflict is returned when an optimistic storage transaction keeps losing races
	ErrStorageConflict = errors.New("storage transaction conflict, retries exhausted")

	// ErrWorkerNotStarted is returned when stopping an idle worker
	ErrWorkerNotStarted = errors.New("worker not started")
)

// skipError marks a handler outcome as a deliberate no-op.
type skipError struct {
	reason string
}

func (e *skipError) Error() string { return "skipped: " + e.reason }

// Skip returns an error that makes the worker complete the job without
// delivering anything. Use it for conditions retries cannot fix, like a
// recipient without an address or nothing to report.
func Skip(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// IsSkip reports whether err carries a Skip marker.
func IsSkip(err error) bool {
	var s *skipError
	return errors.As(err, &s)
}

// unrecoverableError marks a failure that must not be retried.
type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }
func (e *unrecoverableError) Unwrap() error { return e.err }

// Unrecoverable wraps err so the job fails terminally regardless of the
// attempts left.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

// IsUnrecoverable reports whether err was wrapped with Unrecoverable.
func IsUnrecoverable(err error) bool {
	var u *unrecoverableError
	return errors.As(err, &u)
}
