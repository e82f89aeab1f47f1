package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	LoggerContextKey    ContextKey = "logger"
	RequestIDContextKey ContextKey = "request_id"
)

// WithRequestID stores a request id for handlers and log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// ComponentMiddleware scopes the request logger to a component.
func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).WithComponent(component)
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger provides domain-specific log helpers.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogReportServed logs a computed (not cached) report.
func (sl *StructuredLogger) LogReportServed(ctx context.Context, op, month string, durationMs int64, cached bool) {
	fields := NewFields().
		WithOperation(op).
		WithMonth(month).
		WithComponent(ComponentReports)
	fields[FieldDuration] = durationMs
	fields["cached"] = cached
	sl.logger.DebugContext(ctx, "Report served", fields.ToSlice()...)
}

// LogSeedCompleted logs a finished seed run.
func (sl *StructuredLogger) LogSeedCompleted(ctx context.Context, runID, source string, count int, durationMs int64) {
	fields := NewFields().
		WithSeed(runID, source, count).
		WithOperation(OpSeed).
		WithComponent(ComponentSeed)
	fields[FieldDuration] = durationMs
	sl.logger.InfoContext(ctx, "Dataset seeded", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err, errorType).
		WithOperation(operation).
		WithComponent(component)
	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
