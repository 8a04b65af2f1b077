package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// traceIDKey stores the id that correlates the log lines of one HTTP
// request, websocket client or poll.
type traceIDKey struct{}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}

// EnsureTraceID returns ctx unchanged if it carries a trace ID, otherwise
// a child context with a new UUID v4.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.New().String())
}
