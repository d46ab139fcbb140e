package queue

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage implements Storage in process memory for testing and local development
type MemoryStorage struct {
	mu     sync.RWMutex
	queues map[string]*memoryQueue
}

type memoryQueue struct {
	jobs        map[string]*Job
	repeatables map[string]*Repeatable

	// Index for state scans
	byState map[JobState][]string
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		queues: make(map[string]*memoryQueue),
	}
}

// Close implements io.Closer; memory storage holds no resources.
func (ms *MemoryStorage) Close() error {
	return nil
}

// CreateJob implements EnqueuerRepository and SchedulerRepository
func (ms *MemoryStorage) CreateJob(_ context.Context, job *Job) error {
	if job == nil {
		return ErrJobNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	q := ms.queue(job.Queue)
	if _, exists := q.jobs[job.ID]; exists {
		return ErrJobExists
	}

	stored := cloneJob(job)
	if stored.State == "" {
		stored.State = JobStateWaiting
	}
	q.jobs[stored.ID] = stored
	q.byState[stored.State] = append(q.byState[stored.State], stored.ID)

	return nil
}

// GetJob implements EnqueuerRepository and InspectorRepository
func (ms *MemoryStorage) GetJob(_ context.Context, queue, id string) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, err := ms.lookup(queue, id)
	if err != nil {
		return nil, err
	}
	return cloneJob(job).settle(time.Now()), nil
}

// RemoveJob implements SchedulerRepository and InspectorRepository
func (ms *MemoryStorage) RemoveJob(_ context.Context, queue, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, err := ms.lookup(queue, id)
	if err != nil {
		return err
	}

	q := ms.queues[queue]
	q.unindex(job.ID, job.State)
	delete(q.jobs, id)
	return nil
}

// RetryJob implements InspectorRepository
func (ms *MemoryStorage) RetryJob(_ context.Context, queue, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, err := ms.lookup(queue, id)
	if err != nil {
		return err
	}

	now := time.Now()
	stalled := job.State == JobStateActive && job.LockedUntil != nil && job.LockedUntil.Before(now)
	if job.State != JobStateFailed && !stalled {
		return ErrJobNotRetryable
	}

	ms.queues[queue].move(job, JobStateWaiting)
	job.AttemptsMade = 0
	job.Error = ""
	job.ScheduledAt = now
	job.LockedBy = ""
	job.LockedUntil = nil
	job.ProcessedAt = nil
	job.FinishedAt = nil

	return nil
}

// Counts implements InspectorRepository
func (ms *MemoryStorage) Counts(_ context.Context, queue string, now time.Time) (Counts, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var c Counts
	q, ok := ms.queues[queue]
	if !ok {
		return c, nil
	}

	for _, id := range q.pending() {
		if q.jobs[id].ScheduledAt.After(now) {
			c.Delayed++
		} else {
			c.Waiting++
		}
	}
	c.Active = int64(len(q.byState[JobStateActive]))
	c.Completed = int64(len(q.byState[JobStateCompleted]))
	c.Failed = int64(len(q.byState[JobStateFailed]))

	return c, nil
}

// Queues implements InspectorRepository
func (ms *MemoryStorage) Queues(_ context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	names := make([]string, 0, len(ms.queues))
	for name := range ms.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ClaimJob implements WorkerRepository
func (ms *MemoryStorage) ClaimJob(_ context.Context, queue, workerID string, lockFor time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queue]
	if !ok {
		return nil, ErrNoJobToClaim
	}

	now := time.Now()
	var best *Job

	// Priority first, then schedule time, then creation order
	for _, id := range q.pending() {
		job := q.jobs[id]
		if job.ScheduledAt.After(now) {
			continue
		}
		if best == nil || claimsBefore(job, best) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockedUntil := now.Add(lockFor)
	q.move(best, JobStateActive)
	best.LockedBy = workerID
	best.LockedUntil = &lockedUntil
	best.ProcessedAt = &now

	return cloneJob(best), nil
}

// CompleteJob implements WorkerRepository
func (ms *MemoryStorage) CompleteJob(_ context.Context, queue, id, workerID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, err := ms.owned(queue, id, workerID)
	if err != nil {
		return err
	}

	now := time.Now()
	ms.queues[queue].move(job, JobStateCompleted)
	job.AttemptsMade++
	job.FinishedAt = &now
	job.LockedBy = ""
	job.LockedUntil = nil

	return nil
}

// FailJob implements WorkerRepository
func (ms *MemoryStorage) FailJob(_ context.Context, queue, id, workerID, errMsg string, retryAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, err := ms.owned(queue, id, workerID)
	if err != nil {
		return err
	}

	job.AttemptsMade++
	job.Error = errMsg
	job.LockedBy = ""
	job.LockedUntil = nil

	if retryAt.IsZero() {
		now := time.Now()
		ms.queues[queue].move(job, JobStateFailed)
		job.FinishedAt = &now
		return nil
	}

	ms.queues[queue].move(job, JobStateDelayed)
	job.ScheduledAt = retryAt
	return nil
}

// ExtendLock implements WorkerRepository
func (ms *MemoryStorage) ExtendLock(_ context.Context, queue, id, workerID string, lockFor time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, err := ms.owned(queue, id, workerID)
	if err != nil {
		return err
	}

	lockedUntil := time.Now().Add(lockFor)
	job.LockedUntil = &lockedUntil
	return nil
}

// StalledJobs implements WorkerRepository
func (ms *MemoryStorage) StalledJobs(_ context.Context, queue string, now time.Time) ([]*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	q, ok := ms.queues[queue]
	if !ok {
		return nil, nil
	}

	var stalled []*Job
	for _, id := range q.byState[JobStateActive] {
		job := q.jobs[id]
		if job.LockedUntil != nil && job.LockedUntil.Before(now) {
			stalled = append(stalled, cloneJob(job))
		}
	}
	return stalled, nil
}

// Prune implements WorkerRepository
func (ms *MemoryStorage) Prune(_ context.Context, queue string, state JobState, keep Retention, now time.Time) (int, error) {
	if !state.Terminal() || keep.Unbounded() {
		return 0, nil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queue]
	if !ok {
		return 0, nil
	}

	ids := slices.Clone(q.byState[state])
	sort.SliceStable(ids, func(i, j int) bool {
		return finishedAt(q.jobs[ids[i]]).Before(finishedAt(q.jobs[ids[j]]))
	})

	var expired int
	if keep.Age > 0 {
		cutoff := now.Add(-keep.Age)
		for expired < len(ids) && finishedAt(q.jobs[ids[expired]]).Before(cutoff) {
			expired++
		}
	}
	if keep.Count > 0 && len(ids)-expired > keep.Count {
		expired = len(ids) - keep.Count
	}

	for _, id := range ids[:expired] {
		q.unindex(id, state)
		delete(q.jobs, id)
	}
	return expired, nil
}

// SaveRepeatable implements SchedulerRepository
func (ms *MemoryStorage) SaveRepeatable(_ context.Context, r *Repeatable) (bool, error) {
	if r == nil {
		return false, errors.New("repeatable cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	q := ms.queue(r.Queue)
	if _, exists := q.repeatables[r.Key]; exists {
		return false, nil
	}
	q.repeatables[r.Key] = cloneRepeatable(r)
	return true, nil
}

// UpdateRepeatable implements SchedulerRepository
func (ms *MemoryStorage) UpdateRepeatable(_ context.Context, r *Repeatable) error {
	if r == nil {
		return errors.New("repeatable cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[r.Queue]
	if !ok {
		return ErrRepeatableNotFound
	}
	stored, exists := q.repeatables[r.Key]
	if !exists {
		return ErrRepeatableNotFound
	}
	q.repeatables[r.Key] = withProgress(cloneRepeatable(r), stored)
	return nil
}

// AdvanceRepeatable implements SchedulerRepository
func (ms *MemoryStorage) AdvanceRepeatable(_ context.Context, queue, key, prev, next string, runAt time.Time) (*Repeatable, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queue]
	if !ok {
		return nil, false, ErrRepeatableNotFound
	}
	r, ok := q.repeatables[key]
	if !ok {
		return nil, false, ErrRepeatableNotFound
	}
	if !r.advance(prev, next, runAt) {
		return cloneRepeatable(r), false, nil
	}
	return cloneRepeatable(r), true, nil
}

// GetRepeatable implements SchedulerRepository
func (ms *MemoryStorage) GetRepeatable(_ context.Context, queue, key string) (*Repeatable, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	q, ok := ms.queues[queue]
	if !ok {
		return nil, ErrRepeatableNotFound
	}
	r, ok := q.repeatables[key]
	if !ok {
		return nil, ErrRepeatableNotFound
	}
	return cloneRepeatable(r), nil
}

// ListRepeatables implements SchedulerRepository
func (ms *MemoryStorage) ListRepeatables(_ context.Context, queue string) ([]*Repeatable, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	q, ok := ms.queues[queue]
	if !ok {
		return nil, nil
	}

	list := make([]*Repeatable, 0, len(q.repeatables))
	for _, r := range q.repeatables {
		list = append(list, cloneRepeatable(r))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

// RemoveRepeatable implements SchedulerRepository
func (ms *MemoryStorage) RemoveRepeatable(_ context.Context, queue, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q, ok := ms.queues[queue]
	if !ok {
		return ErrRepeatableNotFound
	}
	if _, exists := q.repeatables[key]; !exists {
		return ErrRepeatableNotFound
	}
	delete(q.repeatables, key)
	return nil
}

// queue returns the bucket for name, creating it. Callers hold the write lock.
func (ms *MemoryStorage) queue(name string) *memoryQueue {
	q, ok := ms.queues[name]
	if !ok {
		q = &memoryQueue{
			jobs:        make(map[string]*Job),
			repeatables: make(map[string]*Repeatable),
			byState:     make(map[JobState][]string),
		}
		ms.queues[name] = q
	}
	return q
}

func (ms *MemoryStorage) lookup(queue, id string) (*Job, error) {
	q, ok := ms.queues[queue]
	if !ok {
		return nil, ErrJobNotFound
	}
	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// owned returns an active job locked by workerID.
func (ms *MemoryStorage) owned(queue, id, workerID string) (*Job, error) {
	job, err := ms.lookup(queue, id)
	if err != nil {
		return nil, err
	}
	if job.State != JobStateActive || job.LockedBy != workerID {
		return nil, ErrJobNotActive
	}
	return job, nil
}

// pending returns waiting and delayed job IDs; due-ness is decided by ScheduledAt.
func (q *memoryQueue) pending() []string {
	ids := make([]string, 0, len(q.byState[JobStateWaiting])+len(q.byState[JobStateDelayed]))
	ids = append(ids, q.byState[JobStateWaiting]...)
	return append(ids, q.byState[JobStateDelayed]...)
}

func (q *memoryQueue) move(job *Job, to JobState) {
	q.unindex(job.ID, job.State)
	job.State = to
	q.byState[to] = append(q.byState[to], job.ID)
}

func (q *memoryQueue) unindex(id string, state JobState) {
	q.byState[state] = slices.DeleteFunc(q.byState[state], func(s string) bool { return s == id })
}

func claimsBefore(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func finishedAt(job *Job) time.Time {
	if job.FinishedAt != nil {
		return *job.FinishedAt
	}
	return job.CreatedAt
}

func cloneJob(job *Job) *Job {
	c := *job
	c.Payload = slices.Clone(job.Payload)
	c.LockedUntil = cloneTime(job.LockedUntil)
	c.ProcessedAt = cloneTime(job.ProcessedAt)
	c.FinishedAt = cloneTime(job.FinishedAt)
	return &c
}

func cloneRepeatable(r *Repeatable) *Repeatable {
	c := *r
	c.Payload = slices.Clone(r.Payload)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
