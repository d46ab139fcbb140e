package queue

import (
	"encoding/json"
	"time"
)

// DefaultQueueName is the default queue name used when no queue is specified
const DefaultQueueName = "default"

// JobState represents the lifecycle state of a job
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateDelayed   JobState = "delayed"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether no further transition is possible without operator action.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Priority represents job priority (0-100, higher is more important)
type Priority int8

// Priority constants
const (
	PriorityMin     Priority = 0
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityMax     Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Job is a unit of work owned by exactly one queue.
// Only the storage layer mutates persisted jobs; callers receive copies.
type Job struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	Name         string          `json:"name"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	State        JobState        `json:"state"`
	Priority     Priority        `json:"priority"`
	Attempts     int             `json:"attempts"`
	AttemptsMade int             `json:"attempts_made"`
	Backoff      Backoff         `json:"backoff"`
	RepeatKey    string          `json:"repeat_key,omitempty"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	LockedUntil  *time.Time      `json:"locked_until,omitempty"`
	LockedBy     string          `json:"locked_by,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(j.Payload, v)
}

// Repeatable is a template the queue re-materializes into concrete jobs on
// every tick of its schedule. Key doubles as the de-duplication key.
type Repeatable struct {
	Key       string          `json:"key"`
	Queue     string          `json:"queue"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Pattern   string          `json:"pattern,omitempty"`
	Every     time.Duration   `json:"every,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Count     int             `json:"count"`
	Priority  Priority        `json:"priority"`
	Attempts  int             `json:"attempts"`
	Backoff   Backoff         `json:"backoff"`
	NextRunAt time.Time       `json:"next_run_at"`
	NextJobID string          `json:"next_job_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// advance points the definition at the instance next when it still points
// at prev and the limit allows another run.
func (r *Repeatable) advance(prev, next string, runAt time.Time) bool {
	if r.NextJobID != prev {
		return false
	}
	if r.Limit > 0 && r.Count >= r.Limit {
		return false
	}
	r.Count++
	r.NextJobID = next
	r.NextRunAt = runAt
	return true
}

// withProgress copies the run bookkeeping of stored onto r. Settings come
// from r, progress always from storage.
func withProgress(r, stored *Repeatable) *Repeatable {
	r.Count = stored.Count
	r.NextJobID = stored.NextJobID
	r.NextRunAt = stored.NextRunAt
	r.CreatedAt = stored.CreatedAt
	return r
}

// sameSchedule reports whether two definitions fire on the same cadence.
func (r *Repeatable) sameSchedule(o *Repeatable) bool {
	return r.Pattern == o.Pattern && r.Every == o.Every && r.Limit == o.Limit
}

// Counts holds the number of jobs per state in a queue
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Total returns the number of jobs across all states.
func (c Counts) Total() int64 {
	return c.Waiting + c.Delayed + c.Active + c.Completed + c.Failed
}

// settle reports a delayed job whose time has come as waiting.
func (j *Job) settle(now time.Time) *Job {
	if j.State == JobStateDelayed && !j.ScheduledAt.After(now) {
		j.State = JobStateWaiting
	}
	return j
}
