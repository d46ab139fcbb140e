package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

type (
	// Handler processes one claimed job. Returning nil completes the job,
	// Skip completes it as a no-op, and any other error is a failed attempt.
	Handler interface {
		Handle(ctx context.Context, job *Job) error
	}

	// HandlerFunc adapts a plain function to the Handler interface.
	HandlerFunc func(ctx context.Context, job *Job) error

	// PayloadHandlerFunc receives the decoded and validated payload of a job.
	PayloadHandlerFunc[T any] func(ctx context.Context, job *Job, payload T) error
)

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNil
	}
	return f(ctx, job)
}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// NewPayloadHandler decodes the job payload into T before calling fn.
// Struct payloads are checked against their `validate` tags and, when T
// implements Validate() error, against that method too. A payload that cannot
// be decoded or fails validation will never succeed on retry, so the job is
// skipped instead of failed.
func NewPayloadHandler[T any](fn PayloadHandlerFunc[T]) Handler {
	return HandlerFunc(func(ctx context.Context, job *Job) error {
		var payload T
		if err := job.Decode(&payload); err != nil {
			return Skip("malformed payload for %q: %v", job.Name, err)
		}
		if err := validatePayload(&payload); err != nil {
			return Skip("invalid payload for %q: %v", job.Name, err)
		}
		return fn(ctx, job, payload)
	})
}

func validatePayload(payload any) error {
	if err := payloadValidator.Struct(payload); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return err
		}
	}
	if v, ok := payload.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// Mux routes jobs to handlers by job name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewMux creates an empty job router.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job name, replacing any previous binding.
func (m *Mux) Register(name string, h Handler) {
	if name == "" || h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = h
}

// RegisterFunc binds a plain function to a job name.
func (m *Mux) RegisterFunc(name string, fn func(ctx context.Context, job *Job) error) {
	if fn == nil {
		return
	}
	m.Register(name, HandlerFunc(fn))
}

// Names returns the registered job names in sorted order.
func (m *Mux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle dispatches the job to the handler registered for its name.
// Unknown names fail terminally since no retry can find a handler.
func (m *Mux) Handle(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrJobNil
	}

	m.mu.RLock()
	h, ok := m.handlers[job.Name]
	m.mu.RUnlock()

	if !ok {
		return Unrecoverable(fmt.Errorf("%w: %s", ErrHandlerNotFound, job.Name))
	}
	return h.Handle(ctx, job)
}
