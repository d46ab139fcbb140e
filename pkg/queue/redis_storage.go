package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Storage = (*RedisStorage)(nil)

const (
	defaultRedisPrefix = "queue"

	// maxTxRetries bounds optimistic transaction retries under contention
	maxTxRetries = 16

	// promoteBatch caps how many due delayed jobs one claim moves to waiting
	promoteBatch = 100

	// priorityWeight spaces priority tiers in the waiting score so that
	// higher priority always sorts first and schedule time breaks ties.
	priorityWeight = 1e13
)

// RedisStorage implements Storage on Redis using optimistic WATCH/MULTI
// transactions. Per queue it keeps:
//
//	<prefix>:<queue>:job:<id>  JSON encoded job
//	<prefix>:<queue>:waiting   zset scored by priority tier and schedule time
//	<prefix>:<queue>:delayed   zset scored by schedule time
//	<prefix>:<queue>:active    zset scored by lock expiry
//	<prefix>:<queue>:completed zset scored by finish time
//	<prefix>:<queue>:failed    zset scored by finish time
//	<prefix>:<queue>:repeat    hash of repeatable definitions
//
// and one <prefix>:queues set with every queue name.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// jobReader is the read subset shared by clients and WATCH transactions.
type jobReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

type repeatReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// RedisStorageOption configures a RedisStorage
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix sets the namespace prefix for every key
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStorage creates a Redis backed storage. The client stays owned by the caller.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}

	s := &RedisStorage{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateJob implements EnqueuerRepository and SchedulerRepository
func (s *RedisStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNil
	}

	stored := cloneJob(job)
	if stored.State == "" {
		stored.State = JobStateWaiting
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPayloadMarshal, err)
	}

	jobKey := s.jobKey(job.Queue, job.ID)
	return s.transact(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, jobKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrJobExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jobKey, data, 0)
			s.index(ctx, pipe, stored)
			pipe.SAdd(ctx, s.queuesKey(), job.Queue)
			return nil
		})
		return err
	}, jobKey)
}

// GetJob implements EnqueuerRepository and InspectorRepository
func (s *RedisStorage) GetJob(ctx context.Context, queue, id string) (*Job, error) {
	job, err := s.loadJob(ctx, s.client, queue, id)
	if err != nil {
		return nil, err
	}
	return job.settle(time.Now()), nil
}

// RemoveJob implements SchedulerRepository and InspectorRepository
func (s *RedisStorage) RemoveJob(ctx context.Context, queue, id string) error {
	jobKey := s.jobKey(queue, id)
	return s.transact(ctx, func(tx *redis.Tx) error {
		job, err := s.loadJob(ctx, tx, queue, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, jobKey)
			s.unindex(ctx, pipe, job)
			return nil
		})
		return err
	}, jobKey)
}

// RetryJob implements InspectorRepository
func (s *RedisStorage) RetryJob(ctx context.Context, queue, id string) error {
	jobKey := s.jobKey(queue, id)
	return s.transact(ctx, func(tx *redis.Tx) error {
		job, err := s.loadJob(ctx, tx, queue, id)
		if err != nil {
			return err
		}

		now := time.Now()
		stalled := job.State == JobStateActive && job.LockedUntil != nil && job.LockedUntil.Before(now)
		if job.State != JobStateFailed && !stalled {
			return ErrJobNotRetryable
		}

		prev := *job
		job.State = JobStateWaiting
		job.AttemptsMade = 0
		job.Error = ""
		job.ScheduledAt = now
		job.LockedBy = ""
		job.LockedUntil = nil
		job.ProcessedAt = nil
		job.FinishedAt = nil

		return s.commit(ctx, tx, &prev, job)
	}, jobKey)
}

// Counts implements InspectorRepository
func (s *RedisStorage) Counts(ctx context.Context, queue string, now time.Time) (Counts, error) {
	nowScore := msScore(now)

	var (
		waiting, dueDelayed, delayed *redis.IntCmd
		active, completed, failed    *redis.IntCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.ZCard(ctx, s.stateKey(queue, JobStateWaiting))
		dueDelayed = pipe.ZCount(ctx, s.stateKey(queue, JobStateDelayed), "-inf", nowScore)
		delayed = pipe.ZCount(ctx, s.stateKey(queue, JobStateDelayed), "("+nowScore, "+inf")
		active = pipe.ZCard(ctx, s.stateKey(queue, JobStateActive))
		completed = pipe.ZCard(ctx, s.stateKey(queue, JobStateCompleted))
		failed = pipe.ZCard(ctx, s.stateKey(queue, JobStateFailed))
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count jobs in queue %q: %w", queue, err)
	}

	return Counts{
		Waiting:   waiting.Val() + dueDelayed.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

// Queues implements InspectorRepository
func (s *RedisStorage) Queues(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.queuesKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ClaimJob implements WorkerRepository.
// Due delayed jobs are promoted to waiting in the same transaction, then the
// head of the waiting set, ordered by priority and schedule time, is locked.
func (s *RedisStorage) ClaimJob(ctx context.Context, queue, workerID string, lockFor time.Duration) (*Job, error) {
	waitingKey := s.stateKey(queue, JobStateWaiting)
	delayedKey := s.stateKey(queue, JobStateDelayed)

	var claimed *Job
	err := s.transact(ctx, func(tx *redis.Tx) error {
		claimed = nil
		now := time.Now()

		dueIDs, err := tx.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   msScore(now),
			Count: promoteBatch,
		}).Result()
		if err != nil {
			return err
		}
		due, orphans, err := s.loadJobs(ctx, tx, queue, dueIDs)
		if err != nil {
			return err
		}

		var best *Job
		head, err := tx.ZRange(ctx, waitingKey, 0, 0).Result()
		if err != nil {
			return err
		}
		if len(head) > 0 {
			best, err = s.loadJob(ctx, tx, queue, head[0])
			if errors.Is(err, ErrJobNotFound) {
				orphans = append(orphans, head[0])
				best = nil
			} else if err != nil {
				return err
			}
		}
		for _, job := range due {
			if best == nil || claimsBefore(job, best) {
				best = job
			}
		}

		if best == nil && len(due) == 0 && len(orphans) == 0 {
			return ErrNoJobToClaim
		}

		var (
			prev Job
			data []byte
		)
		if best != nil {
			prev = *best
			lockedUntil := now.Add(lockFor)
			best.State = JobStateActive
			best.LockedBy = workerID
			best.LockedUntil = &lockedUntil
			best.ProcessedAt = &now

			if data, err = json.Marshal(best); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range orphans {
				pipe.ZRem(ctx, waitingKey, id)
				pipe.ZRem(ctx, delayedKey, id)
			}
			for _, job := range due {
				if best != nil && job.ID == best.ID {
					continue
				}
				job.State = JobStateWaiting
				pipe.ZRem(ctx, delayedKey, job.ID)
				pipe.ZAdd(ctx, waitingKey, redis.Z{Score: waitingScore(job), Member: job.ID})
			}
			if best != nil {
				s.unindex(ctx, pipe, &prev)
				s.index(ctx, pipe, best)
				pipe.Set(ctx, s.jobKey(queue, best.ID), data, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if best == nil {
			return ErrNoJobToClaim
		}
		claimed = best
		return nil
	}, waitingKey, delayedKey)
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// CompleteJob implements WorkerRepository
func (s *RedisStorage) CompleteJob(ctx context.Context, queue, id, workerID string) error {
	return s.transition(ctx, queue, id, workerID, func(job *Job) {
		now := time.Now()
		job.State = JobStateCompleted
		job.AttemptsMade++
		job.FinishedAt = &now
		job.LockedBy = ""
		job.LockedUntil = nil
	})
}

// FailJob implements WorkerRepository
func (s *RedisStorage) FailJob(ctx context.Context, queue, id, workerID, errMsg string, retryAt time.Time) error {
	return s.transition(ctx, queue, id, workerID, func(job *Job) {
		job.AttemptsMade++
		job.Error = errMsg
		job.LockedBy = ""
		job.LockedUntil = nil

		if retryAt.IsZero() {
			now := time.Now()
			job.State = JobStateFailed
			job.FinishedAt = &now
			return
		}
		job.State = JobStateDelayed
		job.ScheduledAt = retryAt
	})
}

// ExtendLock implements WorkerRepository
func (s *RedisStorage) ExtendLock(ctx context.Context, queue, id, workerID string, lockFor time.Duration) error {
	return s.transition(ctx, queue, id, workerID, func(job *Job) {
		lockedUntil := time.Now().Add(lockFor)
		job.LockedUntil = &lockedUntil
	})
}

// StalledJobs implements WorkerRepository
func (s *RedisStorage) StalledJobs(ctx context.Context, queue string, now time.Time) ([]*Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.stateKey(queue, JobStateActive), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + msScore(now),
	}).Result()
	if err != nil {
		return nil, err
	}

	jobs, _, err := s.loadJobs(ctx, s.client, queue, ids)
	if err != nil {
		return nil, err
	}

	stalled := jobs[:0]
	for _, job := range jobs {
		if job.State == JobStateActive {
			stalled = append(stalled, job)
		}
	}
	return stalled, nil
}

// Prune implements WorkerRepository
func (s *RedisStorage) Prune(ctx context.Context, queue string, state JobState, keep Retention, now time.Time) (int, error) {
	if !state.Terminal() || keep.Unbounded() {
		return 0, nil
	}

	key := s.stateKey(queue, state)

	total, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	var n int64
	if keep.Age > 0 {
		n, err = s.client.ZCount(ctx, key, "-inf", "("+msScore(now.Add(-keep.Age))).Result()
		if err != nil {
			return 0, err
		}
	}
	if keep.Count > 0 && total-n > int64(keep.Count) {
		n = total - int64(keep.Count)
	}
	if n == 0 {
		return 0, nil
	}

	// Oldest first, so the expired jobs form a prefix of the set.
	ids, err := s.client.ZRange(ctx, key, 0, n-1).Result()
	if err != nil {
		return 0, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.jobKey(queue, id))
			pipe.ZRem(ctx, key, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// SaveRepeatable implements SchedulerRepository
func (s *RedisStorage) SaveRepeatable(ctx context.Context, r *Repeatable) (bool, error) {
	if r == nil {
		return false, errors.New("repeatable cannot be nil")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return false, err
	}

	created, err := s.client.HSetNX(ctx, s.repeatKey(r.Queue), r.Key, data).Result()
	if err != nil {
		return false, err
	}
	if created {
		if err := s.client.SAdd(ctx, s.queuesKey(), r.Queue).Err(); err != nil {
			return true, err
		}
	}
	return created, nil
}

// UpdateRepeatable implements SchedulerRepository
func (s *RedisStorage) UpdateRepeatable(ctx context.Context, r *Repeatable) error {
	if r == nil {
		return errors.New("repeatable cannot be nil")
	}

	key := s.repeatKey(r.Queue)
	return s.transact(ctx, func(tx *redis.Tx) error {
		stored, err := s.loadRepeatable(ctx, tx, r.Queue, r.Key)
		if err != nil {
			return err
		}
		return s.storeRepeatable(ctx, tx, withProgress(cloneRepeatable(r), stored))
	}, key)
}

// AdvanceRepeatable implements SchedulerRepository
func (s *RedisStorage) AdvanceRepeatable(ctx context.Context, queue, key, prev, next string, runAt time.Time) (*Repeatable, bool, error) {
	var (
		result   *Repeatable
		advanced bool
	)
	err := s.transact(ctx, func(tx *redis.Tx) error {
		r, err := s.loadRepeatable(ctx, tx, queue, key)
		if err != nil {
			return err
		}
		result, advanced = r, r.advance(prev, next, runAt)
		if !advanced {
			return nil
		}
		return s.storeRepeatable(ctx, tx, r)
	}, s.repeatKey(queue))
	if err != nil {
		return nil, false, err
	}
	return result, advanced, nil
}

// GetRepeatable implements SchedulerRepository
func (s *RedisStorage) GetRepeatable(ctx context.Context, queue, key string) (*Repeatable, error) {
	return s.loadRepeatable(ctx, s.client, queue, key)
}

// storeRepeatable writes r inside a MULTI block of the watching tx.
func (s *RedisStorage) storeRepeatable(ctx context.Context, tx *redis.Tx, r *Repeatable) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.repeatKey(r.Queue), r.Key, data)
		return nil
	})
	return err
}

func (s *RedisStorage) loadRepeatable(ctx context.Context, c repeatReader, queue, key string) (*Repeatable, error) {
	data, err := c.HGet(ctx, s.repeatKey(queue), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRepeatableNotFound
	}
	if err != nil {
		return nil, err
	}

	var r Repeatable
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode repeatable %q: %w", key, err)
	}
	return &r, nil
}

// ListRepeatables implements SchedulerRepository
func (s *RedisStorage) ListRepeatables(ctx context.Context, queue string) ([]*Repeatable, error) {
	all, err := s.client.HGetAll(ctx, s.repeatKey(queue)).Result()
	if err != nil {
		return nil, err
	}

	list := make([]*Repeatable, 0, len(all))
	for key, data := range all {
		var r Repeatable
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to decode repeatable %q: %w", key, err)
		}
		list = append(list, &r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

// RemoveRepeatable implements SchedulerRepository
func (s *RedisStorage) RemoveRepeatable(ctx context.Context, queue, key string) error {
	n, err := s.client.HDel(ctx, s.repeatKey(queue), key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRepeatableNotFound
	}
	return nil
}

// transition applies fn to an active job owned by workerID.
func (s *RedisStorage) transition(ctx context.Context, queue, id, workerID string, fn func(job *Job)) error {
	jobKey := s.jobKey(queue, id)
	return s.transact(ctx, func(tx *redis.Tx) error {
		job, err := s.loadJob(ctx, tx, queue, id)
		if err != nil {
			return err
		}
		if job.State != JobStateActive || job.LockedBy != workerID {
			return ErrJobNotActive
		}

		prev := *job
		fn(job)
		return s.commit(ctx, tx, &prev, job)
	}, jobKey)
}

// commit writes job and moves it between state sets inside a MULTI block.
func (s *RedisStorage) commit(ctx context.Context, tx *redis.Tx, prev, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.unindex(ctx, pipe, prev)
		s.index(ctx, pipe, job)
		pipe.Set(ctx, s.jobKey(job.Queue, job.ID), data, 0)
		return nil
	})
	return err
}

// transact runs fn under WATCH, retrying when a watched key changed.
func (s *RedisStorage) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrStorageConflict
}

func (s *RedisStorage) loadJob(ctx context.Context, c jobReader, queue, id string) (*Job, error) {
	data, err := c.Get(ctx, s.jobKey(queue, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %q: %w", id, err)
	}
	return &job, nil
}

// loadJobs fetches jobs by ID, returning the IDs whose document is gone separately.
func (s *RedisStorage) loadJobs(ctx context.Context, c jobReader, queue string, ids []string) ([]*Job, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(queue, id)
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	jobs := make([]*Job, 0, len(values))
	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, nil, fmt.Errorf("failed to decode job %q: %w", ids[i], err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, missing, nil
}

func (s *RedisStorage) index(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	var score float64
	switch job.State {
	case JobStateWaiting:
		score = waitingScore(job)
	case JobStateDelayed:
		score = float64(job.ScheduledAt.UnixMilli())
	case JobStateActive:
		if job.LockedUntil != nil {
			score = float64(job.LockedUntil.UnixMilli())
		}
	default:
		score = float64(finishedAt(job).UnixMilli())
	}
	pipe.ZAdd(ctx, s.stateKey(job.Queue, job.State), redis.Z{Score: score, Member: job.ID})
}

func (s *RedisStorage) unindex(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	pipe.ZRem(ctx, s.stateKey(job.Queue, job.State), job.ID)
	if job.State == JobStateWaiting || job.State == JobStateDelayed {
		// due delayed jobs may already sit in the waiting set
		pipe.ZRem(ctx, s.stateKey(job.Queue, JobStateWaiting), job.ID)
		pipe.ZRem(ctx, s.stateKey(job.Queue, JobStateDelayed), job.ID)
	}
}

func (s *RedisStorage) jobKey(queue, id string) string {
	return s.prefix + ":" + queue + ":job:" + id
}

func (s *RedisStorage) stateKey(queue string, state JobState) string {
	return s.prefix + ":" + queue + ":" + string(state)
}

func (s *RedisStorage) repeatKey(queue string) string {
	return s.prefix + ":" + queue + ":repeat"
}

func (s *RedisStorage) queuesKey() string {
	return s.prefix + ":queues"
}

func waitingScore(job *Job) float64 {
	return float64(PriorityMax-job.Priority)*priorityWeight + float64(job.ScheduledAt.UnixMilli())
}

func msScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
