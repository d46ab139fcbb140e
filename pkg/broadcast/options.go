package broadcast

import "log/slog"

type options struct {
	logger   *slog.Logger
	name     string
	blocking bool
}

// Option configures a MemoryBroadcaster.
type Option func(*options)

// WithLogger sets the logger used to report dropped subscribers.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels log records emitted by the broadcaster.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithBlockingDelivery makes Broadcast wait for room in every subscriber's
// buffer instead of dropping subscribers that fall behind. Callers bound the
// wait with the context passed to Broadcast.
func WithBlockingDelivery() Option {
	return func(o *options) { o.blocking = true }
}
