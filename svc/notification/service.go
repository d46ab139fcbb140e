package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/clickmart/pkg/email"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

// JobQueue is the part of queue.Manager the service depends on.
type JobQueue interface {
	Enqueue(ctx context.Context, queue, name string, payload any, opts ...queue.EnqueueOption) (*queue.Job, error)
	CreateWorker(queue string, h queue.Handler, opts ...queue.WorkerOption) (*queue.Worker, error)
}

var _ JobQueue = (*queue.Manager)(nil)

// Service registers the recurring notification triggers, fans triggers and
// product events out into per-recipient jobs and processes those jobs.
type Service struct {
	jobs   JobQueue
	repo   Repository
	sender email.EmailSender
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	initMu         sync.Mutex
	initialized    bool
	workersStarted bool
}

// Option configures a Service.
type Option func(*Service)

// WithConfig replaces DefaultConfig. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg.withDefaults()
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for the reporting windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the service to its collaborators. Nothing is registered
// with the queue until Initialize is called.
func NewService(jobs JobQueue, repo Repository, sender email.EmailSender, opts ...Option) *Service {
	s := &Service{
		jobs:   jobs,
		repo:   repo,
		sender: sender,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
