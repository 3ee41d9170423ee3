package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds transition context to a logger.
// Returns a new logger with entity_kind, entity_id, and operation fields.
func EnrichLogger(logger *slog.Logger, kind, entityID, operation string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("entity_kind", kind),
		slog.String("entity_id", entityID),
		slog.String("operation", operation),
	)
}

// LogTransitionStart logs the start of a status transition.
func LogTransitionStart(logger *slog.Logger, kind, entityID, from, to, operation string) {
	if logger == nil {
		return
	}
	logger.Debug("transition starting",
		slog.String("entity_kind", kind),
		slog.String("entity_id", entityID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("operation", operation),
	)
}

// LogTransitionComplete logs a successful status transition.
func LogTransitionComplete(logger *slog.Logger, kind, entityID, from, to string, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("transition completed",
		slog.String("entity_kind", kind),
		slog.String("entity_id", entityID),
		slog.String("from", from),
		slog.String("to", to),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// LogTransitionError logs a failed status transition.
func LogTransitionError(logger *slog.Logger, kind, entityID, operation string, err error) {
	if logger == nil {
		return
	}
	logger.Error("transition failed",
		slog.String("entity_kind", kind),
		slog.String("entity_id", entityID),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogReportSinkError logs a report sink failure (non-fatal).
func LogReportSinkError(logger *slog.Logger, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("report sink failed",
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogRecoveryAttempt logs one retry attempt inside the recovery engine.
func LogRecoveryAttempt(logger *slog.Logger, errorKind, component string, attempt int, err error) {
	if logger == nil {
		return
	}
	logger.Debug("recovery attempt failed",
		slog.String("error_kind", errorKind),
		slog.String("component", component),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogRecoveryResult logs the outcome of a recovery engine invocation.
func LogRecoveryResult(logger *slog.Logger, errorKind, component, strategy string, success bool, attempts int) {
	if logger == nil {
		return
	}
	if success {
		logger.Info("recovery succeeded",
			slog.String("error_kind", errorKind),
			slog.String("component", component),
			slog.String("strategy", strategy),
			slog.Int("attempts", attempts),
		)
		return
	}
	logger.Warn("recovery failed",
		slog.String("error_kind", errorKind),
		slog.String("component", component),
		slog.String("strategy", strategy),
		slog.Int("attempts", attempts),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
