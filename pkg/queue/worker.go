package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimJob atomically moves the next due job to active and locks it.
	// Returns ErrNoJobToClaim when nothing is due.
	ClaimJob(ctx context.Context, queue, workerID string, lockFor time.Duration) (*Job, error)

	// CompleteJob marks an active job owned by workerID as completed.
	CompleteJob(ctx context.Context, queue, id, workerID string) error

	// FailJob records a failed attempt. A zero retryAt fails the job
	// terminally, otherwise it becomes delayed until retryAt.
	FailJob(ctx context.Context, queue, id, workerID, errMsg string, retryAt time.Time) error

	// ExtendLock renews the lock of an active job owned by workerID.
	ExtendLock(ctx context.Context, queue, id, workerID string, lockFor time.Duration) error

	// StalledJobs returns active jobs whose lock expired before now.
	StalledJobs(ctx context.Context, queue string, now time.Time) ([]*Job, error)

	// Prune deletes finished jobs of the given state beyond the retention.
	Prune(ctx context.Context, queue string, state JobState, keep Retention, now time.Time) (int, error)
}

// Worker processes jobs of a single queue
type Worker struct {
	queue    *Queue
	repo     WorkerRepository
	handler  Handler
	events   EventHandler
	logger   *slog.Logger
	workerID string

	sem     chan struct{}
	wake    chan struct{}
	limiter *rate.Limiter

	// Configuration
	pullInterval    time.Duration
	lockTimeout     time.Duration
	stalledInterval time.Duration

	// State management
	mu     sync.Mutex
	cancel context.CancelFunc
	loops  sync.WaitGroup
	jobs   sync.WaitGroup
}

func newWorker(q *Queue, h Handler, events EventHandler, logger *slog.Logger, options *workerOptions) *Worker {
	return &Worker{
		queue:           q,
		repo:            q.storage,
		handler:         h,
		events:          events,
		logger:          logger,
		workerID:        uuid.NewString(),
		sem:             make(chan struct{}, options.concurrency),
		wake:            make(chan struct{}, 1),
		limiter:         options.limiter,
		pullInterval:    options.pullInterval,
		lockTimeout:     options.lockTimeout,
		stalledInterval: options.stalledInterval,
	}
}

// ID returns the unique worker identifier used as lock owner.
func (w *Worker) ID() string { return w.workerID }

// Queue returns the name of the queue the worker consumes.
func (w *Worker) Queue() string { return w.queue.name }

// Concurrency returns the maximum number of jobs run in parallel.
func (w *Worker) Concurrency() int { return cap(w.sem) }

// Start begins processing jobs in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerAlreadyStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.loops.Add(2)
	go w.run(ctx)
	go w.watchStalled(ctx)

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queue.name),
		slog.Int("concurrency", cap(w.sem)))

	return nil
}

// Stop stops claiming new jobs and waits for in-flight jobs to finish.
// If ctx expires first, Stop returns its error and jobs keep running.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queue.name))

	done := make(chan struct{})
	go func() {
		w.loops.Wait()
		w.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("worker %s on queue %q: %w", w.workerID, w.queue.name, ctx.Err())
	}

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queue.name))

	return nil
}

// Wake makes an idle worker poll immediately.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID, hostname, os.Getpid()
}

// run is the main claim loop
func (w *Worker) run(ctx context.Context) {
	defer w.loops.Done()

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		// Wait for a free slot
		select {
		case <-ctx.Done():
			return
		case w.sem <- struct{}{}:
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				<-w.sem
				return
			}
		}
		if ctx.Err() != nil {
			<-w.sem
			return
		}

		// A claimed job must be processed even if Stop races the claim.
		job, err := w.repo.ClaimJob(context.WithoutCancel(ctx), w.queue.name, w.workerID, w.lockTimeout)
		if err != nil {
			<-w.sem
			if !errors.Is(err, ErrNoJobToClaim) {
				w.reportError(ctx, nil, fmt.Errorf("failed to claim job: %w", err))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-w.wake:
			}
			continue
		}

		w.jobs.Add(1)
		go func() {
			defer w.jobs.Done()
			defer func() { <-w.sem }()
			w.process(context.WithoutCancel(ctx), job)
		}()
	}
}

// process runs one claimed job to an outcome. The context is detached from
// the worker lifecycle so graceful shutdown lets jobs complete.
func (w *Worker) process(ctx context.Context, job *Job) {
	if job == nil {
		w.reportError(ctx, nil, ErrJobNil)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	if job.RepeatKey != "" {
		if err := w.queue.advance(ctx, job); err != nil {
			w.reportError(ctx, job, fmt.Errorf("failed to schedule next run of %q: %w", job.RepeatKey, err))
		}
	}

	w.logger.DebugContext(ctx, "claimed job",
		slog.String("worker_id", w.workerID),
		slog.String("queue", job.Queue),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("attempt", job.AttemptsMade+1))

	w.emit(ctx, Event{Type: EventActive, Job: job})

	stopHeartbeat := w.heartbeat(ctx, job)
	err := w.execute(ctx, job)
	stopHeartbeat()

	duration := time.Since(start)
	if err == nil || IsSkip(err) {
		w.complete(ctx, job, err, duration)
		return
	}
	w.fail(ctx, job, err, duration)
}

// execute calls the handler, converting panics into failures
func (w *Worker) execute(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
			w.logger.ErrorContext(ctx, "handler panicked",
				slog.String("worker_id", w.workerID),
				slog.String("job_id", job.ID),
				slog.String("job_name", job.Name),
				slog.Any("panic", r))
		}
	}()

	if job == nil {
		return ErrJobNil
	}
	return w.handler.Handle(ctx, job)
}

// heartbeat renews the job lock every half lock period until stopped.
func (w *Worker) heartbeat(ctx context.Context, job *Job) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(w.lockTimeout / 2)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.repo.ExtendLock(ctx, job.Queue, job.ID, w.workerID, w.lockTimeout); err != nil {
					w.logger.WarnContext(ctx, "failed to extend job lock",
						slog.String("worker_id", w.workerID),
						slog.String("job_id", job.ID),
						slog.String("error", err.Error()))
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (w *Worker) complete(ctx context.Context, job *Job, skip error, duration time.Duration) {
	if err := w.repo.CompleteJob(ctx, job.Queue, job.ID, w.workerID); err != nil {
		w.reportError(ctx, job, fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err))
		return
	}

	done := *job
	done.State = JobStateCompleted
	done.AttemptsMade++

	attrs := []any{
		slog.String("worker_id", w.workerID),
		slog.String("queue", job.Queue),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Duration("duration", duration),
	}
	if skip != nil {
		w.logger.InfoContext(ctx, "job skipped", append(attrs, slog.String("reason", skip.Error()))...)
	} else {
		w.logger.InfoContext(ctx, "job completed successfully", attrs...)
	}

	w.emit(ctx, Event{Type: EventCompleted, Job: &done, Err: skip, Skipped: skip != nil, Duration: duration})
	w.prune(ctx, JobStateCompleted, w.queue.policy.KeepCompleted)
}

// fail records a failed attempt. Unrecoverable errors and exhausted budgets
// are terminal; everything else is retried after the job's backoff.
func (w *Worker) fail(ctx context.Context, job *Job, jobErr error, duration time.Duration) {
	attempt := job.AttemptsMade + 1

	var retryAt time.Time
	if !IsUnrecoverable(jobErr) && attempt < job.Attempts {
		retryAt = time.Now().Add(job.Backoff.Next(attempt))
	}

	if err := w.repo.FailJob(ctx, job.Queue, job.ID, w.workerID, jobErr.Error(), retryAt); err != nil {
		w.reportError(ctx, job, fmt.Errorf("failed to record failure of job %s: %w", job.ID, err))
		return
	}

	failed := *job
	failed.AttemptsMade = attempt
	failed.Error = jobErr.Error()

	attrs := []any{
		slog.String("worker_id", w.workerID),
		slog.String("queue", job.Queue),
		slog.String("job_id", job.ID),
		slog.String("job_name", job.Name),
		slog.Int("attempt", attempt),
		slog.Int("attempts", job.Attempts),
		slog.Duration("duration", duration),
		slog.String("error", jobErr.Error()),
	}

	if retryAt.IsZero() {
		failed.State = JobStateFailed
		w.logger.ErrorContext(ctx, "job failed", attrs...)
		w.emit(ctx, Event{Type: EventFailed, Job: &failed, Err: jobErr, Duration: duration})
		w.prune(ctx, JobStateFailed, w.queue.policy.KeepFailed)
		return
	}

	failed.State = JobStateDelayed
	failed.ScheduledAt = retryAt
	w.logger.WarnContext(ctx, "job failed, retry scheduled", append(attrs, slog.Time("retry_at", retryAt))...)
	w.emit(ctx, Event{Type: EventRetrying, Job: &failed, Err: jobErr, RetryAt: retryAt, Duration: duration})
}

func (w *Worker) prune(ctx context.Context, state JobState, keep Retention) {
	if keep.Unbounded() {
		return
	}
	n, err := w.repo.Prune(ctx, w.queue.name, state, keep, time.Now())
	if err != nil {
		w.logger.WarnContext(ctx, "failed to prune finished jobs",
			slog.String("queue", w.queue.name),
			slog.String("state", string(state)),
			slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		w.logger.DebugContext(ctx, "pruned finished jobs",
			slog.String("queue", w.queue.name),
			slog.String("state", string(state)),
			slog.Int("count", n))
	}
}

// watchStalled reports active jobs whose lock expired. Each stalled job is
// reported once; recovering it is an operator decision made via Retry.
func (w *Worker) watchStalled(ctx context.Context) {
	defer w.loops.Done()

	ticker := time.NewTicker(w.stalledInterval)
	defer ticker.Stop()

	seen := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkStalled(ctx, seen)
		}
	}
}

func (w *Worker) checkStalled(ctx context.Context, seen map[string]struct{}) {
	jobs, err := w.repo.StalledJobs(ctx, w.queue.name, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			w.reportError(ctx, nil, fmt.Errorf("failed to check stalled jobs: %w", err))
		}
		return
	}

	current := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		current[job.ID] = struct{}{}
		if _, ok := seen[job.ID]; ok {
			continue
		}
		seen[job.ID] = struct{}{}

		w.logger.WarnContext(ctx, "job stalled",
			slog.String("queue", job.Queue),
			slog.String("job_id", job.ID),
			slog.String("job_name", job.Name),
			slog.String("locked_by", job.LockedBy))
		w.emit(ctx, Event{Type: EventStalled, Job: job})
	}

	for id := range seen {
		if _, ok := current[id]; !ok {
			delete(seen, id)
		}
	}
}

func (w *Worker) reportError(ctx context.Context, job *Job, err error) {
	attrs := []any{
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queue.name),
		slog.String("error", err.Error()),
	}
	if job != nil {
		attrs = append(attrs, slog.String("job_id", job.ID))
	}
	w.logger.ErrorContext(ctx, "worker error", attrs...)
	w.emit(ctx, Event{Type: EventError, Job: job, Err: err})
}

func (w *Worker) emit(ctx context.Context, e Event) {
	if w.events == nil {
		return
	}
	e.Queue = w.queue.name
	e.Time = time.Now()
	w.events.HandleEvent(ctx, e)
}
