package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger returns a context carrying logger. The gin middleware
// seeds one per request; the WebSocket gateway derives one per
// connection so frame handling and audit entries share the
// connection's fields.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the logger carried by ctx, falling back to the global
// logger for contexts that never passed through a handler.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
