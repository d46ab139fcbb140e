package queue

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Manager owns the queues and workers of one process. Queues are created on
// first use and cached by name; at most one worker runs per queue.
type Manager struct {
	storage Storage
	opts    *managerOptions
	logger  *slog.Logger

	mu      sync.Mutex
	queues  map[string]*Queue
	workers map[string]*Worker
	closed  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager backed by storage.
func NewManager(storage Storage, opts ...ManagerOption) (*Manager, error) {
	if storage == nil {
		return nil, ErrRepositoryNil
	}

	options := &managerOptions{
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		storage: storage,
		opts:    options,
		logger:  options.logger,
		queues:  make(map[string]*Queue),
		workers: make(map[string]*Worker),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Queue returns the queue with the given name, creating it on first use.
// An empty name selects DefaultQueueName.
func (m *Manager) Queue(name string) (*Queue, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if name == "" {
		name = DefaultQueueName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.queueLocked(name), nil
}

func (m *Manager) queueLocked(name string) *Queue {
	if q, ok := m.queues[name]; ok {
		return q
	}

	policy := m.opts.policy
	if p, ok := m.opts.queuePolicies[name]; ok {
		policy = p
	}

	q := &Queue{
		name:    name,
		policy:  policy,
		storage: m.storage,
		logger:  m.logger,
		closed:  &m.closed,
		wake:    m.wake,
	}
	m.queues[name] = q
	return q
}

// Enqueue adds a job to the named queue. See Queue.Add.
func (m *Manager) Enqueue(ctx context.Context, queue, name string, payload any, opts ...EnqueueOption) (*Job, error) {
	q, err := m.Queue(queue)
	if err != nil {
		return nil, err
	}
	return q.Add(ctx, name, payload, opts...)
}

// CreateWorker starts a worker for the named queue. The call is idempotent:
// when a worker already consumes the queue it is returned unchanged and the
// new handler and options are ignored.
func (m *Manager) CreateWorker(queue string, h Handler, opts ...WorkerOption) (*Worker, error) {
	if h == nil {
		return nil, ErrNoHandlers
	}
	if queue == "" {
		queue = DefaultQueueName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	if w, ok := m.workers[queue]; ok {
		m.logger.Debug("worker already exists for queue", slog.String("queue", queue))
		return w, nil
	}

	options := defaultWorkerOptions()
	for _, opt := range m.opts.workerOpts {
		opt(options)
	}
	for _, opt := range opts {
		opt(options)
	}

	w := newWorker(m.queueLocked(queue), h, m.opts.events, m.logger, options)
	if err := w.Start(m.ctx); err != nil {
		return nil, err
	}
	m.workers[queue] = w

	return w, nil
}

// Worker returns the worker consuming the named queue, if any.
func (m *Manager) Worker(queue string) (*Worker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[queue]
	return w, ok
}

// QueueNames lists every queue known to storage or created in this process.
func (m *Manager) QueueNames(ctx context.Context) ([]string, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	stored, err := m.storage.Queues(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(stored))
	for _, name := range stored {
		set[name] = struct{}{}
	}

	m.mu.Lock()
	for name := range m.queues {
		set[name] = struct{}{}
	}
	m.mu.Unlock()

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close stops every worker, waiting for in-flight jobs, then forgets all
// queues. Later calls on the manager or its queues return ErrManagerClosed.
// Close is safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed.Swap(true) {
		m.mu.Unlock()
		return nil
	}
	workers := make([]*Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.mu.Unlock()

	m.logger.Info("closing queue manager", slog.Int("workers", len(workers)))

	// Cancel every claim loop first so workers drain in parallel.
	m.cancel()

	var errs []error
	for _, w := range workers {
		if err := w.Stop(ctx); err != nil && !errors.Is(err, ErrWorkerNotStarted) {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	m.workers = make(map[string]*Worker)
	m.queues = make(map[string]*Queue)
	m.mu.Unlock()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.logger.Info("queue manager closed")
	return nil
}

func (m *Manager) wake(queue string) {
	m.mu.Lock()
	w, ok := m.workers[queue]
	m.mu.Unlock()
	if ok {
		w.Wake()
	}
}

// GetJob returns a snapshot of a job in the named queue.
func (m *Manager) GetJob(ctx context.Context, queue, id string) (*Job, error) {
	q, err := m.Queue(queue)
	if err != nil {
		return nil, err
	}
	return q.Job(ctx, id)
}

// RemoveJob deletes a job from the named queue.
func (m *Manager) RemoveJob(ctx context.Context, queue, id string) error {
	q, err := m.Queue(queue)
	if err != nil {
		return err
	}
	return q.Remove(ctx, id)
}

// RetryJob requeues a failed or stalled job of the named queue.
func (m *Manager) RetryJob(ctx context.Context, queue, id string) error {
	q, err := m.Queue(queue)
	if err != nil {
		return err
	}
	return q.Retry(ctx, id)
}

// Counts reports job counts per state for the named queue.
func (m *Manager) Counts(ctx context.Context, queue string) (Counts, error) {
	q, err := m.Queue(queue)
	if err != nil {
		return Counts{}, err
	}
	return q.Counts(ctx)
}

// Repeatables lists recurring definitions of the named queue.
func (m *Manager) Repeatables(ctx context.Context, queue string) ([]*Repeatable, error) {
	q, err := m.Queue(queue)
	if err != nil {
		return nil, err
	}
	return q.Repeatables(ctx)
}

// RemoveRepeatable deletes a recurring definition of the named queue.
func (m *Manager) RemoveRepeatable(ctx context.Context, queue, key string) error {
	q, err := m.Queue(queue)
	if err != nil {
		return err
	}
	return q.RemoveRepeatable(ctx, key)
}
