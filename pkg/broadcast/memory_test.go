package broadcast_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/broadcast"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("subscribe after close returns closed subscriber", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		sub := b.Subscribe(t.Context())
		_, ok := <-sub.Receive(t.Context())
		assert.False(t, ok)
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(t.Context())
		sub := b.Subscribe(ctx)
		assert.Equal(t, 1, b.SubscriberCount())

		cancel()
		require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

		_, ok := <-sub.Receive(t.Context())
		assert.False(t, ok)
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Parallel()

	t.Run("every subscriber receives the message", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](10)
		defer b.Close()

		subs := []broadcast.Subscriber[int]{b.Subscribe(t.Context()), b.Subscribe(t.Context())}
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 42}))

		for _, sub := range subs {
			msg := <-sub.Receive(t.Context())
			assert.Equal(t, 42, msg.Data)
			assert.NotEmpty(t, msg.ID)
			assert.False(t, msg.Timestamp.IsZero())
		}
	})

	t.Run("caller supplied id is kept", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		defer b.Close()

		sub := b.Subscribe(t.Context())
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[string]{ID: "evt-1", Data: "x"}))
		assert.Equal(t, "evt-1", (<-sub.Receive(t.Context())).ID)
	})

	t.Run("slow subscriber is dropped", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithLogger(quietLogger()), broadcast.WithName("test"))
		defer b.Close()

		slow := b.Subscribe(t.Context())
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 1}))
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 2}))

		require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

		var got []int
		for msg := range slow.Receive(t.Context()) {
			got = append(got, msg.Data)
		}
		assert.Equal(t, []int{1}, got)
	})

	t.Run("broadcast after close fails", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		err := b.Broadcast(t.Context(), broadcast.Message[int]{Data: 1})
		assert.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)
	})

	t.Run("concurrent publishers", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](100)
		defer b.Close()

		sub := b.Subscribe(t.Context())

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = b.Broadcast(t.Context(), broadcast.Message[int]{Data: i})
			}()
		}
		wg.Wait()

		assert.Len(t, sub.Receive(t.Context()), 50)
	})
}

func TestMemoryBroadcaster_BlockingDelivery(t *testing.T) {
	t.Parallel()

	t.Run("burst larger than the buffer reaches a slow listener", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](2, broadcast.WithBlockingDelivery(), broadcast.WithLogger(quietLogger()))
		defer b.Close()

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		var (
			mu  sync.Mutex
			got []int
		)
		done := make(chan error, 1)
		go func() {
			done <- broadcast.Listen(ctx, b.Subscribe(ctx), func(ctx context.Context, msg broadcast.Message[int]) {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				got = append(got, msg.Data)
				mu.Unlock()
			})
		}()
		require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, time.Millisecond)

		for i := range 10 {
			require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: i}))
		}
		assert.Equal(t, 1, b.SubscriberCount())

		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 10}))
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 11
		}, 2*time.Second, 5*time.Millisecond)

		mu.Lock()
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
		mu.Unlock()

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("full buffer waits until the context is done", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithBlockingDelivery(), broadcast.WithLogger(quietLogger()))
		defer b.Close()

		_ = b.Subscribe(t.Context())
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 1}))

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		err := b.Broadcast(ctx, broadcast.Message[int]{Data: 2})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, b.SubscriberCount(), "the subscriber is kept")
	})

	t.Run("closing the subscriber releases a waiting broadcast", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithBlockingDelivery())
		defer b.Close()

		sub := b.Subscribe(t.Context())
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 1}))

		result := make(chan error, 1)
		go func() { result <- b.Broadcast(t.Context(), broadcast.Message[int]{Data: 2}) }()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, sub.Close())

		select {
		case err := <-result:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("broadcast stayed blocked")
		}
	})

	t.Run("closing the broadcaster releases a waiting broadcast", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithBlockingDelivery())
		_ = b.Subscribe(t.Context())
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[int]{Data: 1}))

		result := make(chan error, 1)
		go func() { result <- b.Broadcast(t.Context(), broadcast.Message[int]{Data: 2}) }()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, b.Close())

		select {
		case err := <-result:
			assert.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)
		case <-time.After(time.Second):
			t.Fatal("broadcast stayed blocked")
		}
	})
}

func TestListen(t *testing.T) {
	t.Parallel()

	t.Run("delivers until broadcaster closes", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		sub := b.Subscribe(t.Context())

		var got []string
		done := make(chan error, 1)
		go func() {
			done <- broadcast.Listen(t.Context(), sub, func(ctx context.Context, msg broadcast.Message[string]) {
				got = append(got, msg.Data)
			})
		}()

		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[string]{Data: "a"}))
		require.NoError(t, b.Broadcast(t.Context(), broadcast.Message[string]{Data: "b"}))
		require.Eventually(t, func() bool { return len(sub.Receive(t.Context())) == 0 }, time.Second, 5*time.Millisecond)
		require.NoError(t, b.Close())

		assert.ErrorIs(t, <-done, broadcast.ErrSubscriptionEnded)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(t.Context())
		sub := b.Subscribe(t.Context())
		cancel()

		err := broadcast.Listen(ctx, sub, func(context.Context, broadcast.Message[string]) {})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](1)
		defer b.Close()

		err := broadcast.Listen(t.Context(), b.Subscribe(t.Context()), nil)
		assert.ErrorIs(t, err, broadcast.ErrNilHandler)
	})
}
