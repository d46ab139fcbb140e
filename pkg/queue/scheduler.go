package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SchedulerRepository defines the interface for repeatable job persistence
type SchedulerRepository interface {
	// SaveRepeatable stores a definition unless its key already exists.
	// Returns false without writing when the key is taken.
	SaveRepeatable(ctx context.Context, r *Repeatable) (bool, error)

	// UpdateRepeatable overwrites the settings of an existing definition.
	// Count, NextJobID, NextRunAt and CreatedAt keep their stored values.
	UpdateRepeatable(ctx context.Context, r *Repeatable) error

	// AdvanceRepeatable atomically moves NextJobID from prev to next and
	// counts the run. It reports false with the stored definition when
	// NextJobID no longer equals prev or Limit is exhausted.
	AdvanceRepeatable(ctx context.Context, queue, key, prev, next string, runAt time.Time) (*Repeatable, bool, error)

	// GetRepeatable returns a definition or ErrRepeatableNotFound.
	GetRepeatable(ctx context.Context, queue, key string) (*Repeatable, error)

	// ListRepeatables returns every definition of a queue ordered by key.
	ListRepeatables(ctx context.Context, queue string) ([]*Repeatable, error)

	// RemoveRepeatable deletes a definition.
	RemoveRepeatable(ctx context.Context, queue, key string) error

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, queue, id string) (*Job, error)
	RemoveJob(ctx context.Context, queue, id string) error
}

// Repeatables lists the recurring definitions registered on the queue.
func (q *Queue) Repeatables(ctx context.Context) ([]*Repeatable, error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}
	return q.storage.ListRepeatables(ctx, q.name)
}

// RemoveRepeatable deletes a recurring definition together with its
// pending instance. Instances already running finish normally.
func (q *Queue) RemoveRepeatable(ctx context.Context, key string) error {
	if err := q.checkOpen(); err != nil {
		return err
	}

	def, err := q.storage.GetRepeatable(ctx, q.name, key)
	if err != nil {
		return err
	}
	if err := q.removePending(ctx, def.NextJobID); err != nil {
		return fmt.Errorf("failed to remove pending instance of %q: %w", key, err)
	}
	if err := q.storage.RemoveRepeatable(ctx, q.name, key); err != nil {
		return fmt.Errorf("failed to remove repeatable %q: %w", key, err)
	}

	q.logger.InfoContext(ctx, "repeatable job removed",
		slog.String("queue", q.name),
		slog.String("repeat_key", key))

	return nil
}

// addRepeatable registers a recurring definition and ensures exactly one
// pending instance exists for it.
func (q *Queue) addRepeatable(ctx context.Context, name string, payload json.RawMessage, options *enqueueOptions) (*Job, error) {
	sched, err := options.repeat.schedule()
	if err != nil {
		return nil, err
	}

	key := options.jobID
	if key == "" {
		key = name + ":" + sched.String()
	}

	def := &Repeatable{
		Key:       key,
		Queue:     q.name,
		Name:      name,
		Payload:   payload,
		Pattern:   options.repeat.Pattern,
		Every:     options.repeat.Every,
		Limit:     options.repeat.Limit,
		Priority:  options.priority,
		Attempts:  options.attempts,
		Backoff:   *options.backoff,
		CreatedAt: time.Now(),
	}

	created, err := q.storage.SaveRepeatable(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("failed to save repeatable %q: %w", key, err)
	}
	if created {
		q.logger.InfoContext(ctx, "repeatable job registered",
			slog.String("queue", q.name),
			slog.String("repeat_key", key),
			slog.String("schedule", sched.String()))
		return q.materialize(ctx, def, time.Now())
	}

	existing, err := q.storage.GetRepeatable(ctx, q.name, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load repeatable %q: %w", key, err)
	}

	if existing.sameSchedule(def) {
		if err := q.storage.UpdateRepeatable(ctx, def); err != nil {
			return nil, fmt.Errorf("failed to update repeatable %q: %w", key, err)
		}

		if existing.NextJobID != "" {
			job, err := q.storage.GetJob(ctx, q.name, existing.NextJobID)
			if err == nil {
				return job, nil
			}
			if !errors.Is(err, ErrJobNotFound) {
				return nil, err
			}
		}

		// The chain was broken, e.g. the pending instance was removed by hand.
		return q.materialize(ctx, withProgress(def, existing), time.Now())
	}

	if err := q.removePending(ctx, existing.NextJobID); err != nil {
		return nil, fmt.Errorf("failed to drop outdated instance of %q: %w", key, err)
	}
	if err := q.storage.UpdateRepeatable(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to update repeatable %q: %w", key, err)
	}

	q.logger.InfoContext(ctx, "repeatable job rescheduled",
		slog.String("queue", q.name),
		slog.String("repeat_key", key),
		slog.String("schedule", sched.String()))

	return q.materialize(ctx, withProgress(def, existing), time.Now())
}

// materialize moves the definition to the first tick after from and creates
// that instance. The move is a compare-and-set on NextJobID, so concurrent
// registrations and advances count each tick once. Instance IDs derive from
// the key and fire time, so creating the same tick twice collapses into one job.
func (q *Queue) materialize(ctx context.Context, def *Repeatable, from time.Time) (*Job, error) {
	sched, err := scheduleOf(def)
	if err != nil {
		return nil, err
	}

	next := sched.Next(from)
	id := repeatJobID(def.Key, next)

	if id != def.NextJobID {
		stored, advanced, err := q.storage.AdvanceRepeatable(ctx, q.name, def.Key, def.NextJobID, id, next)
		if err != nil {
			return nil, fmt.Errorf("failed to advance repeatable %q: %w", def.Key, err)
		}
		if !advanced && stored.NextJobID == def.NextJobID {
			q.logger.DebugContext(ctx, "repeat limit reached",
				slog.String("queue", q.name),
				slog.String("repeat_key", def.Key),
				slog.Int("limit", stored.Limit))
			return nil, nil
		}
		// Either this call moved the chain or a concurrent one did first.
		// Both end up ensuring the instance the stored definition points at.
		def = stored
	}

	return q.ensureInstance(ctx, def)
}

// ensureInstance creates the job def.NextJobID names unless it exists.
func (q *Queue) ensureInstance(ctx context.Context, def *Repeatable) (*Job, error) {
	now := time.Now()
	state := JobStateDelayed
	if !def.NextRunAt.After(now) {
		state = JobStateWaiting
	}

	job := &Job{
		ID:          def.NextJobID,
		Queue:       q.name,
		Name:        def.Name,
		Payload:     def.Payload,
		State:       state,
		Priority:    def.Priority,
		Attempts:    max(def.Attempts, 1),
		Backoff:     def.Backoff,
		RepeatKey:   def.Key,
		ScheduledAt: def.NextRunAt,
		CreatedAt:   now,
	}

	err := q.storage.CreateJob(ctx, job)
	if errors.Is(err, ErrJobExists) {
		return q.storage.GetJob(ctx, q.name, job.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create instance of %q: %w", def.Key, err)
	}

	if job.State == JobStateWaiting {
		q.notify()
	}
	return job, nil
}

// advance schedules the instance that follows job. Called when a worker
// claims a repeat instance so the next tick is queued before the handler runs.
func (q *Queue) advance(ctx context.Context, job *Job) error {
	def, err := q.storage.GetRepeatable(ctx, q.name, job.RepeatKey)
	if errors.Is(err, ErrRepeatableNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if def.NextJobID != job.ID {
		return nil
	}

	sched, err := scheduleOf(def)
	if err != nil {
		return err
	}

	// A backlog of missed ticks collapses into a single next run.
	from := job.ScheduledAt
	if now := time.Now(); sched.Next(from).Before(now) {
		from = now
	}

	_, err = q.materialize(ctx, def, from)
	return err
}

func repeatJobID(key string, at time.Time) string {
	return fmt.Sprintf("repeat:%s:%d", key, at.UnixMilli())
}
