package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RequestIDKey carries the HTTP request id.
	RequestIDKey contextKey = "request_id"

	// ProductKey carries the normalized product key being served.
	ProductKey contextKey = "product_key"

	// TaskIDKey carries the research task id.
	TaskIDKey contextKey = "task_id"
)

// WithRequestID adds a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id from the context, or "".
func RequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithProductKey adds a product key to the context.
func WithProductKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ProductKey, key)
}

// ProductKeyFrom returns the product key from the context, or "".
func ProductKeyFrom(ctx context.Context) string {
	return stringValue(ctx, ProductKey)
}

// WithTaskID adds a research task id to the context.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TaskIDKey, id)
}

// TaskID returns the research task id from the context, or "".
func TaskID(ctx context.Context) string {
	return stringValue(ctx, TaskIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// contextFields returns the attributes carried in ctx.
func contextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RequestIDKey, ProductKey, TaskIDKey} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// ContextHandler adds context attributes to every record it handles.
type ContextHandler struct {
	slog.Handler
}

// Handle implements slog.Handler.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextFields(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}
