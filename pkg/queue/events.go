package queue

import (
	"context"
	"time"
)

// EventType names a job lifecycle transition observed by a worker.
type EventType string

const (
	EventActive    EventType = "active"
	EventCompleted EventType = "completed"
	EventRetrying  EventType = "retrying"
	EventFailed    EventType = "failed"
	EventStalled   EventType = "stalled"
	EventError     EventType = "error"
)

// Event describes a lifecycle transition. Job is nil for EventError raised
// outside job processing.
type Event struct {
	Type     EventType
	Queue    string
	Job      *Job
	Err      error
	Skipped  bool
	RetryAt  time.Time
	Duration time.Duration
	Time     time.Time
}

// EventHandler observes worker events. Implementations must not block.
type EventHandler interface {
	HandleEvent(ctx context.Context, e Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, e Event)

// HandleEvent calls f(ctx, e).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, e Event) {
	f(ctx, e)
}
