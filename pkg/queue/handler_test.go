package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clickmart/pkg/queue"
)

type greetPayload struct {
	UserID string `json:"user_id" validate:"required"`
	Name   string `json:"name"`
}

type quotaPayload struct {
	Count int `json:"count"`
}

func (p quotaPayload) Validate() error {
	if p.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func TestMux(t *testing.T) {
	t.Parallel()

	t.Run("routes by job name", func(t *testing.T) {
		t.Parallel()

		var got []string
		mux := queue.NewMux()
		mux.RegisterFunc("a", func(ctx context.Context, job *queue.Job) error {
			got = append(got, "a:"+job.ID)
			return nil
		})
		mux.RegisterFunc("b", func(ctx context.Context, job *queue.Job) error {
			got = append(got, "b:"+job.ID)
			return nil
		})

		require.NoError(t, mux.Handle(t.Context(), &queue.Job{ID: "1", Name: "b"}))
		require.NoError(t, mux.Handle(t.Context(), &queue.Job{ID: "2", Name: "a"}))

		assert.Equal(t, []string{"b:1", "a:2"}, got)
		assert.Equal(t, []string{"a", "b"}, mux.Names())
	})

	t.Run("unknown name is unrecoverable", func(t *testing.T) {
		t.Parallel()

		err := queue.NewMux().Handle(t.Context(), &queue.Job{Name: "missing"})
		require.Error(t, err)
		assert.True(t, queue.IsUnrecoverable(err))
		assert.ErrorIs(t, err, queue.ErrHandlerNotFound)
	})

	t.Run("nil job", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, queue.NewMux().Handle(t.Context(), nil), queue.ErrJobNil)

		h := queue.HandlerFunc(func(ctx context.Context, job *queue.Job) error { return nil })
		assert.ErrorIs(t, h.Handle(t.Context(), nil), queue.ErrJobNil)
	})

	t.Run("nil registrations are ignored", func(t *testing.T) {
		t.Parallel()

		mux := queue.NewMux()
		mux.Register("x", nil)
		mux.RegisterFunc("y", nil)
		assert.Empty(t, mux.Names())
	})
}

func TestNewPayloadHandler(t *testing.T) {
	t.Parallel()

	var received greetPayload
	h := queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p greetPayload) error {
		received = p
		return nil
	})

	t.Run("decodes payload", func(t *testing.T) {
		err := h.Handle(t.Context(), &queue.Job{Name: "greet", Payload: json.RawMessage(`{"user_id":"u1","name":"Ann"}`)})
		require.NoError(t, err)
		assert.Equal(t, greetPayload{UserID: "u1", Name: "Ann"}, received)
	})

	t.Run("malformed payload is skipped", func(t *testing.T) {
		err := h.Handle(t.Context(), &queue.Job{Name: "greet", Payload: json.RawMessage(`{"user_id":`)})
		require.Error(t, err)
		assert.True(t, queue.IsSkip(err))
	})

	t.Run("missing required field is skipped", func(t *testing.T) {
		err := h.Handle(t.Context(), &queue.Job{Name: "greet", Payload: json.RawMessage(`{"name":"Ann"}`)})
		require.Error(t, err)
		assert.True(t, queue.IsSkip(err))
	})

	t.Run("Validate method is honoured", func(t *testing.T) {
		qh := queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p quotaPayload) error {
			return nil
		})

		require.NoError(t, qh.Handle(t.Context(), &queue.Job{Payload: json.RawMessage(`{"count":1}`)}))

		err := qh.Handle(t.Context(), &queue.Job{Payload: json.RawMessage(`{"count":-1}`)})
		assert.True(t, queue.IsSkip(err))
	})

	t.Run("handler error passes through", func(t *testing.T) {
		boom := errors.New("boom")
		eh := queue.NewPayloadHandler(func(ctx context.Context, job *queue.Job, p greetPayload) error {
			return boom
		})

		err := eh.Handle(t.Context(), &queue.Job{Payload: json.RawMessage(`{"user_id":"u1"}`)})
		assert.ErrorIs(t, err, boom)
		assert.False(t, queue.IsSkip(err))
	})
}

func TestOutcomeMarkers(t *testing.T) {
	t.Parallel()

	skip := queue.Skip("user %s has no email", "u1")
	assert.True(t, queue.IsSkip(skip))
	assert.Contains(t, skip.Error(), "u1 has no email")
	assert.True(t, queue.IsSkip(errors.Join(errors.New("ctx"), skip)))

	cause := errors.New("permanent")
	unrec := queue.Unrecoverable(cause)
	assert.True(t, queue.IsUnrecoverable(unrec))
	assert.ErrorIs(t, unrec, cause)
	assert.False(t, queue.IsUnrecoverable(cause))
	assert.NoError(t, queue.Unrecoverable(nil))
}
