package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Message wraps data of type T for type-safe broadcasting.
// ID and Timestamp are filled in by the broadcaster when left empty.
type Message[T any] struct {
	ID        string
	Data      T
	Timestamp time.Time
}

// Subscriber receives messages from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns a channel for receiving broadcast messages.
	// The channel is closed when the subscriber is closed, either explicitly,
	// by context cancellation, or because it fell behind a lossy publisher.
	Receive(ctx context.Context) <-chan Message[T]

	// Close closes the subscriber and releases resources.
	// Close is idempotent.
	Close() error
}

// Broadcaster sends messages to multiple subscribers.
// By default slow consumers are dropped instead of blocking the publisher;
// see WithBlockingDelivery.
type Broadcaster[T any] interface {
	// Subscribe creates a subscriber that lives until ctx is cancelled
	// or the subscriber is closed.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast sends a message to all active subscribers.
	// Returns ErrBroadcasterClosed after Close, and ctx.Err() when a blocking
	// delivery gives up.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close shuts down the broadcaster and closes all subscribers.
	Close() error
}

var errSubscriberClosed = errors.New("broadcast: subscriber is closed")

type subscriber[T any] struct {
	ch     chan Message[T]
	done   chan struct{}
	once   sync.Once
	closed bool
	mu     sync.RWMutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		ch:   make(chan Message[T], bufferSize),
		done: make(chan struct{}),
	}
}

func (s *subscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

// Close wakes a blocked deliver before taking the write lock, so a full
// buffer never holds Close up.
func (s *subscriber[T]) Close() error {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send delivers msg if the buffer has room.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// deliver waits for buffer room until the subscriber or the broadcaster
// closes or ctx is done.
func (s *subscriber[T]) deliver(ctx context.Context, stop <-chan struct{}, msg Message[T]) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errSubscriberClosed
	}

	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return errSubscriberClosed
	case <-stop:
		return ErrBroadcasterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
