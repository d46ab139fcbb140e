package logger

import (
	"context"
	"log/slog"
)

type ctxAttrsKey struct{}

// WithContextAttrs returns a context carrying attrs in addition to any
// attributes already attached. Loggers built by New add them to every
// record logged with that context.
func WithContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	for _, a := range attrs {
		if !a.Equal(slog.Attr{}) {
			merged = append(merged, a)
		}
	}
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// ContextAttrs returns the attributes attached with WithContextAttrs.
func ContextAttrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}
