package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clickmart/pkg/logger"
)

// MemoryBroadcaster delivers messages to in-process subscribers. Unless
// created with WithBlockingDelivery it drops slow consumers rather than
// blocking the broadcast operation. All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	blocking    bool
	closed      bool
	done        chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
	logger      *slog.Logger
	name        string
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// bufferSize is the per-subscriber channel capacity, at least 1. Without
// WithBlockingDelivery a subscriber whose buffer is full when a message
// arrives is unsubscribed and its channel closed.
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	o := options{logger: slog.Default(), name: "broadcast"}
	for _, opt := range opts {
		opt(&o)
	}

	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		blocking:    o.blocking,
		done:        make(chan struct{}),
		logger:      o.logger,
		name:        o.name,
	}
}

// Subscribe creates a new subscriber that will receive all broadcast messages.
// The subscription is cleaned up when ctx is cancelled.
// If the broadcaster is already closed, returns a closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			<-ctx.Done()
			b.unsubscribe(sub)
		}()
	}

	return sub
}

// Broadcast stamps msg with an ID and timestamp when missing and delivers it
// to every subscriber. A lossy broadcaster never blocks; a blocking one waits
// for each subscriber in turn until ctx is done.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if b.blocking {
		return b.deliverAll(ctx, msg)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	for sub := range b.subscribers {
		if !sub.send(msg) {
			b.logger.WarnContext(ctx, "dropping slow subscriber",
				logger.Component(b.name),
				slog.String("message_id", msg.ID),
			)
			// unsubscribe needs the write lock
			go b.unsubscribe(sub)
		}
	}

	return nil
}

func (b *MemoryBroadcaster[T]) deliverAll(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBroadcasterClosed
	}
	subs := make([]*subscriber[T], 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		err := sub.deliver(ctx, b.done, msg)
		if err == nil {
			continue
		}
		if errors.Is(err, errSubscriberClosed) {
			// Close shuts b.done before it closes subscribers.
			select {
			case <-b.done:
				return ErrBroadcasterClosed
			default:
				continue
			}
		}
		b.logger.WarnContext(ctx, "broadcast not delivered",
			logger.Component(b.name),
			slog.String("message_id", msg.ID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down the broadcaster and closes all subscribers.
// It is safe to call Close multiple times.
func (b *MemoryBroadcaster[T]) Close() error {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil
	}

	b.closed = true

	for sub := range b.subscribers {
		_ = sub.Close()
	}

	clear(b.subscribers)
	b.mu.Unlock()

	b.cleanupWg.Wait()

	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	_ = sub.Close()
}
