package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

type recurring struct {
	id      string
	queue   string
	job     string
	pattern string
}

var recurringTriggers = []recurring{
	{id: WeeklyRecurringID, queue: WeeklyQueue, job: JobSendWeeklyNotifications, pattern: WeeklyPattern},
	{id: AccountSummaryRecurringID, queue: AccountSummaryQueue, job: JobSendAccountSummaries, pattern: AccountSummaryPattern},
}

// Initialize starts the three notification workers and registers the weekly
// recurring triggers. It runs once per Service: later and concurrent calls
// return nil without touching the queue. Call it only after the data store
// is reachable. A failed call may be retried.
func (s *Service) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		s.logger.DebugContext(ctx, "notification service already initialized")
		return nil
	}

	if !s.workersStarted {
		if err := s.startWorkers(); err != nil {
			return err
		}
		s.workersStarted = true
	}

	for _, r := range recurringTriggers {
		job, err := s.jobs.Enqueue(ctx, r.queue, r.job, BroadcastTrigger{},
			queue.WithJobID(r.id),
			queue.WithRepeat(queue.RepeatOptions{Pattern: r.pattern}),
		)
		if err != nil {
			return fmt.Errorf("register %s: %w", r.id, err)
		}
		attrs := []any{logger.Queue(r.queue), slog.String("repeat_key", r.id), slog.String("pattern", r.pattern)}
		if job != nil {
			attrs = append(attrs, logger.JobID(job.ID), slog.Time("next_run", job.ScheduledAt))
		}
		s.logger.InfoContext(ctx, "recurring notification registered", attrs...)
	}

	s.initialized = true
	s.logger.InfoContext(ctx, "notification service initialized")
	return nil
}

func (s *Service) startWorkers() error {
	weekly := queue.NewMux()
	weekly.Register(JobSendWeeklyNotifications, s.triggerHandler(s.SendWeeklyNotificationsToAll))
	weekly.Register(JobSendWeeklyNotification, queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p RecipientJob) error {
		return s.ProcessWeeklyNotification(withJobAttrs(ctx, job), p.UserID)
	}))

	summary := queue.NewMux()
	summary.Register(JobSendAccountSummaries, s.triggerHandler(s.SendAccountSummariesToAll))
	summary.Register(JobSendAccountSummary, queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p RecipientJob) error {
		return s.ProcessAccountSummary(withJobAttrs(ctx, job), p.UserID)
	}))

	updates := queue.NewMux()
	updates.Register(JobNotifyNewProduct, queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p ProductTrigger) error {
		_, err := s.NotifyNewProduct(withJobAttrs(ctx, job), p.ProductID)
		return err
	}))
	updates.Register(JobSendOrderUpdate, queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p OrderUpdateJob) error {
		return s.ProcessOrderUpdate(withJobAttrs(ctx, job), p.UserID, p.ProductID)
	}))

	workers := []struct {
		queue       string
		handler     queue.Handler
		concurrency int
	}{
		{WeeklyQueue, weekly, s.cfg.WeeklyConcurrency},
		{AccountSummaryQueue, summary, s.cfg.SummaryConcurrency},
		{OrderUpdatesQueue, updates, s.cfg.OrderUpdateConcurrency},
	}
	for _, w := range workers {
		if _, err := s.jobs.CreateWorker(w.queue, w.handler, queue.WithConcurrency(w.concurrency)); err != nil {
			return fmt.Errorf("start %s worker: %w", w.queue, err)
		}
	}
	return nil
}

// triggerHandler runs a fan-out for a recurring trigger job. The trigger's
// job ID names the dispatch cycle so a retried trigger re-enqueues the same
// per-recipient job IDs instead of duplicates.
func (s *Service) triggerHandler(fanOut func(ctx context.Context, cycle string) (int, error)) queue.Handler {
	return queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, _ BroadcastTrigger) error {
		_, err := fanOut(withJobAttrs(ctx, job), job.ID)
		return err
	})
}

func withJobAttrs(ctx context.Context, job *queue.Job) context.Context {
	return logger.WithContextAttrs(ctx,
		logger.Queue(job.Queue),
		logger.JobID(job.ID),
		logger.JobName(job.Name),
	)
}
