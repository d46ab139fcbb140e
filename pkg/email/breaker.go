package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSender stops calling a failing provider for a cool-down period.
// While open, sends fail fast with ErrDeliveryPaused so queued jobs back off
// instead of hammering the provider.
type BreakerSender struct {
	next    EmailSender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// BreakerOption configures a BreakerSender.
type BreakerOption func(*breakerOptions)

type breakerOptions struct {
	name     string
	failures uint32
	timeout  time.Duration
	logger   *slog.Logger
}

// WithBreakerName names the breaker in state change logs.
func WithBreakerName(name string) BreakerOption {
	return func(o *breakerOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithBreakerThreshold sets how many consecutive failures open the breaker.
func WithBreakerThreshold(failures uint32) BreakerOption {
	return func(o *breakerOptions) {
		if failures > 0 {
			o.failures = failures
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(o *breakerOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBreakerLogger sets the logger for state transitions.
func WithBreakerLogger(l *slog.Logger) BreakerOption {
	return func(o *breakerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewBreakerSender wraps next with a circuit breaker.
// Invalid parameters and cancelled contexts do not count against the provider.
func NewBreakerSender(next EmailSender, opts ...BreakerOption) *BreakerSender {
	o := breakerOptions{
		name:     "email",
		failures: 5,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        o.name,
		MaxRequests: 1,
		Timeout:     o.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failures
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, ErrInvalidParams) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelWarn
			}
			o.logger.Log(context.Background(), level, "email circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &BreakerSender{next: next, breaker: cb}
}

// SendEmail delivers through the wrapped sender unless the breaker is open.
func (b *BreakerSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendEmail(ctx, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrDeliveryPaused, err)
	}
	return err
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerSender) State() string {
	return b.breaker.State().String()
}
