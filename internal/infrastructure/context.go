package infrastructure

import (
	"context"
	"log/slog"
)

// WithComponent returns logger tagged with the emitting component. A nil
// logger falls back to the global one.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}

// EnsureTraceID stamps runID as the trace ID unless ctx already carries one,
// either from the HTTP request ID or from an active span. CLI runs therefore
// log every record of an analysis under its run ID.
func EnsureTraceID(ctx context.Context, runID string) context.Context {
	if runID == "" || GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, runID)
}
