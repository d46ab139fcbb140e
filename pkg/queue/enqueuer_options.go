package queue

import "time"

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	jobID       string
	priority    Priority
	attempts    int
	backoff     *Backoff
	delay       time.Duration
	scheduledAt *time.Time
	repeat      *RepeatOptions
}

// WithJobID sets a caller-supplied job ID. Enqueueing a second job with the
// same ID returns the existing job instead of creating a duplicate. For
// repeatable jobs the ID is the key of the recurring definition.
func WithJobID(id string) EnqueueOption {
	return func(o *enqueueOptions) {
		if id != "" {
			o.jobID = id
		}
	}
}

// WithPriority sets the priority for the job
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithAttempts overrides the queue's total attempt budget (1-10).
// Capped at 10 to prevent endless retry loops on persistent failures
func WithAttempts(attempts int) EnqueueOption {
	return func(o *enqueueOptions) {
		if attempts >= 1 && attempts <= 10 {
			o.attempts = attempts
		}
	}
}

// WithBackoff overrides the queue's retry backoff for this job
func WithBackoff(b Backoff) EnqueueOption {
	return func(o *enqueueOptions) {
		o.backoff = &b
	}
}

// WithDelay sets a delay before the job can be processed
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledAt sets a specific time for the job to be processed
func WithScheduledAt(scheduledAt time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledAt = &scheduledAt
	}
}

// WithRepeat turns the job into a recurring template
func WithRepeat(repeat RepeatOptions) EnqueueOption {
	return func(o *enqueueOptions) {
		o.repeat = &repeat
	}
}
