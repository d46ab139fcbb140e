package queueboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/queue"
)

// Inspector is the read and repair surface of queue.Manager the board uses.
type Inspector interface {
	QueueNames(ctx context.Context) ([]string, error)
	Counts(ctx context.Context, queue string) (queue.Counts, error)
	Repeatables(ctx context.Context, queue string) ([]*queue.Repeatable, error)
	Worker(queue string) (*queue.Worker, bool)
	GetJob(ctx context.Context, queue, id string) (*queue.Job, error)
	RemoveJob(ctx context.Context, queue, id string) error
	RetryJob(ctx context.Context, queue, id string) error
}

var _ Inspector = (*queue.Manager)(nil)

// Board tracks which queues a monitoring dashboard observes. Observing and
// forgetting a queue only changes what the board reports; workers keep
// consuming the queue either way.
type Board struct {
	jobs   Inspector
	logger *slog.Logger

	mu       sync.RWMutex
	observed map[string]struct{}

	alertMu    sync.Mutex
	alerts     []Alert
	alertLimit int
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the board logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithQueues observes names from the start, whether or not they exist yet.
func WithQueues(names ...string) Option {
	return func(b *Board) {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				b.observed[name] = struct{}{}
			}
		}
	}
}

// New creates a Board over jobs.
func New(jobs Inspector, opts ...Option) *Board {
	b := &Board{
		jobs:       jobs,
		logger:     slog.Default(),
		observed:   make(map[string]struct{}),
		alertLimit: DefaultAlertLimit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Discover observes every queue the manager currently knows about.
func (b *Board) Discover(ctx context.Context) error {
	names, err := b.jobs.QueueNames(ctx)
	if err != nil {
		return fmt.Errorf("list queues: %w", err)
	}
	b.mu.Lock()
	for _, name := range names {
		b.observed[name] = struct{}{}
	}
	b.mu.Unlock()
	return nil
}

// Observe adds name to the observed set.
func (b *Board) Observe(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidQueueName
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.observed[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyObserved, name)
	}
	b.observed[name] = struct{}{}
	b.logger.Info("queue observer attached", logger.Queue(name), logger.Component("queueboard"))
	return nil
}

// Forget removes name from the observed set.
func (b *Board) Forget(name string) error {
	name = strings.TrimSpace(name)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.observed[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotObserved, name)
	}
	delete(b.observed, name)
	b.logger.Info("queue observer detached", logger.Queue(name), logger.Component("queueboard"))
	return nil
}

// Observed returns the observed queue names in order.
func (b *Board) Observed() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.observed))
	for name := range b.observed {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsObserved reports whether name is observed.
func (b *Board) IsObserved(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.observed[name]
	return ok
}

// QueueStatus is the dashboard view of one queue.
type QueueStatus struct {
	Name        string           `json:"name"`
	Counts      queue.Counts     `json:"counts"`
	Total       int64            `json:"total"`
	Processing  bool             `json:"processing"`
	Worker      *WorkerView      `json:"worker,omitempty"`
	Repeatables []RepeatableView `json:"repeatables,omitempty"`
}

// WorkerView identifies the process consuming a queue.
type WorkerView struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	PID      int    `json:"pid"`
}

// RepeatableView summarizes a recurring job definition.
type RepeatableView struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Pattern   string `json:"pattern,omitempty"`
	Every     string `json:"every,omitempty"`
	Count     int    `json:"count"`
	NextRunAt string `json:"next_run_at"`
	NextJobID string `json:"next_job_id,omitempty"`
}

// Status reports counts by state, worker presence and repeat schedules for
// an observed queue.
func (b *Board) Status(ctx context.Context, name string) (*QueueStatus, error) {
	if !b.IsObserved(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotObserved, name)
	}

	counts, err := b.jobs.Counts(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("count jobs in %s: %w", name, err)
	}
	defs, err := b.jobs.Repeatables(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list repeatables in %s: %w", name, err)
	}
	w, processing := b.jobs.Worker(name)

	st := &QueueStatus{
		Name:       name,
		Counts:     counts,
		Total:      counts.Total(),
		Processing: processing,
	}
	if processing {
		id, host, pid := w.WorkerInfo()
		st.Worker = &WorkerView{ID: id, Hostname: host, PID: pid}
	}
	for _, d := range defs {
		v := RepeatableView{
			Key:       d.Key,
			Name:      d.Name,
			Pattern:   d.Pattern,
			Count:     d.Count,
			NextRunAt: d.NextRunAt.UTC().Format(time.RFC3339),
			NextJobID: d.NextJobID,
		}
		if d.Every > 0 {
			v.Every = d.Every.String()
		}
		st.Repeatables = append(st.Repeatables, v)
	}
	return st, nil
}

// Overview returns Status for every observed queue.
func (b *Board) Overview(ctx context.Context) ([]QueueStatus, error) {
	names := b.Observed()
	out := make([]QueueStatus, 0, len(names))
	for _, name := range names {
		st, err := b.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// Job returns one job of an observed queue.
func (b *Board) Job(ctx context.Context, name, id string) (*queue.Job, error) {
	if !b.IsObserved(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotObserved, name)
	}
	return b.jobs.GetJob(ctx, name, id)
}

// RetryJob moves a failed or stalled job of an observed queue back to waiting.
func (b *Board) RetryJob(ctx context.Context, name, id string) error {
	if !b.IsObserved(name) {
		return fmt.Errorf("%w: %s", ErrNotObserved, name)
	}
	if err := b.jobs.RetryJob(ctx, name, id); err != nil {
		return err
	}
	b.logger.InfoContext(ctx, "job retried from dashboard", logger.Queue(name), logger.JobID(id))
	return nil
}

// RemoveJob deletes a job of an observed queue.
func (b *Board) RemoveJob(ctx context.Context, name, id string) error {
	if !b.IsObserved(name) {
		return fmt.Errorf("%w: %s", ErrNotObserved, name)
	}
	if err := b.jobs.RemoveJob(ctx, name, id); err != nil {
		return err
	}
	b.logger.InfoContext(ctx, "job removed from dashboard", logger.Queue(name), logger.JobID(id))
	return nil
}
