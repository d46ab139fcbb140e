package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Queue is a named stream of jobs sharing one retry and retention policy.
// Queues are obtained from a Manager and are safe for concurrent use.
type Queue struct {
	name    string
	policy  Policy
	storage Storage
	logger  *slog.Logger
	closed  *atomic.Bool
	wake    func(queue string)
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Policy returns the defaults applied to jobs enqueued on this queue.
func (q *Queue) Policy() Policy { return q.policy }

// Job returns a snapshot of a job.
func (q *Queue) Job(ctx context.Context, id string) (*Job, error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}
	return q.storage.GetJob(ctx, q.name, id)
}

// Remove deletes a job regardless of its state.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if err := q.checkOpen(); err != nil {
		return err
	}
	if err := q.storage.RemoveJob(ctx, q.name, id); err != nil {
		return fmt.Errorf("failed to remove job %q from queue %q: %w", id, q.name, err)
	}
	return nil
}

// Retry requeues a failed or stalled job with a fresh attempt budget.
func (q *Queue) Retry(ctx context.Context, id string) error {
	if err := q.checkOpen(); err != nil {
		return err
	}
	if err := q.storage.RetryJob(ctx, q.name, id); err != nil {
		return fmt.Errorf("failed to retry job %q in queue %q: %w", id, q.name, err)
	}

	q.logger.InfoContext(ctx, "job requeued",
		slog.String("queue", q.name),
		slog.String("job_id", id))

	q.notify()
	return nil
}

// Counts reports how many jobs sit in each state.
func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	if err := q.checkOpen(); err != nil {
		return Counts{}, err
	}
	return q.storage.Counts(ctx, q.name, time.Now())
}

func (q *Queue) checkOpen() error {
	if q.closed != nil && q.closed.Load() {
		return ErrManagerClosed
	}
	return nil
}

func (q *Queue) notify() {
	if q.wake != nil {
		q.wake(q.name)
	}
}

// removePending deletes a job only while it has not started running.
func (q *Queue) removePending(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	job, err := q.storage.GetJob(ctx, q.name, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if job.State != JobStateWaiting && job.State != JobStateDelayed {
		return nil
	}
	if err := q.storage.RemoveJob(ctx, q.name, id); err != nil && !errors.Is(err, ErrJobNotFound) {
		return err
	}
	return nil
}
