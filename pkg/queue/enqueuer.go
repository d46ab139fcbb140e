package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation
type EnqueuerRepository interface {
	// CreateJob stores a new job. Returns ErrJobExists when the ID is taken.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns a copy of the job or ErrJobNotFound.
	GetJob(ctx context.Context, queue, id string) (*Job, error)
}

// Add enqueues a named job carrying payload.
//
// With WithJobID the call is idempotent: a job with the same ID that already
// exists is returned unchanged. With WithRepeat the job becomes a recurring
// template and Add returns the next pending instance, or nil once the
// repeat limit has been reached.
func (q *Queue) Add(ctx context.Context, name string, payload any, opts ...EnqueueOption) (*Job, error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrJobNameRequired
	}

	options := &enqueueOptions{
		priority: PriorityDefault,
		attempts: q.policy.Attempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	if !options.priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if options.attempts < 1 {
		options.attempts = 1
	}
	if options.backoff == nil {
		b := q.policy.Backoff
		options.backoff = &b
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	if options.repeat != nil {
		return q.addRepeatable(ctx, name, data, options)
	}

	job := q.buildJob(name, data, options)
	if err := q.storage.CreateJob(ctx, job); err != nil {
		if !errors.Is(err, ErrJobExists) {
			return nil, fmt.Errorf("failed to create job %q in queue %q: %w", name, q.name, err)
		}

		existing, err := q.storage.GetJob(ctx, q.name, job.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing job %q in queue %q: %w", job.ID, q.name, err)
		}

		q.logger.DebugContext(ctx, "job already enqueued",
			slog.String("queue", q.name),
			slog.String("job_id", job.ID),
			slog.String("job_name", name))

		return existing, nil
	}

	q.logger.DebugContext(ctx, "job enqueued",
		slog.String("queue", q.name),
		slog.String("job_id", job.ID),
		slog.String("job_name", name),
		slog.Time("scheduled_at", job.ScheduledAt))

	if job.State == JobStateWaiting {
		q.notify()
	}

	return job, nil
}

// buildJob constructs a Job from payload and options
func (q *Queue) buildJob(name string, payload json.RawMessage, options *enqueueOptions) *Job {
	now := time.Now()

	scheduledAt := now
	if options.scheduledAt != nil {
		scheduledAt = *options.scheduledAt
	} else if options.delay > 0 {
		scheduledAt = now.Add(options.delay)
	}

	state := JobStateWaiting
	if scheduledAt.After(now) {
		state = JobStateDelayed
	}

	id := options.jobID
	if id == "" {
		id = uuid.NewString()
	}

	return &Job{
		ID:          id,
		Queue:       q.name,
		Name:        name,
		Payload:     payload,
		State:       state,
		Priority:    options.priority,
		Attempts:    options.attempts,
		Backoff:     *options.backoff,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
	}
}

// marshalPayload encodes a payload, passing raw JSON through untouched.
func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrPayloadMarshal)
		}
		return p, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrPayloadMarshal, payload, err)
	}
	return data, nil
}
