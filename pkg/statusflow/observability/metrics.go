// Package observability provides structured logging, OpenTelemetry
// metrics and tracing, and runtime snapshots for the coordination core.
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records coordination-core metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTransition records one successful status transition.
	RecordTransition(ctx context.Context, kind, entityID, from, to string, duration time.Duration)

	// RecordTransitionError records a transition that surfaced an error.
	RecordTransitionError(ctx context.Context, kind, operation string)

	// RecordEmit records one dispatcher emission.
	RecordEmit(ctx context.Context, eventType string, handlers int, duration time.Duration, err error)

	// RecordRecovery records one recovery engine invocation.
	RecordRecovery(ctx context.Context, strategy string, success bool, attempts int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	transitions       metric.Int64Counter
	transitionLatency metric.Float64Histogram
	transitionErrors  metric.Int64Counter
	emissions         metric.Int64Counter
	emitLatency       metric.Float64Histogram
	recoveries        metric.Int64Counter
	recoveryLatency   metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("statusflow")

	transitions, err := meter.Int64Counter("statusflow.transitions",
		metric.WithDescription("Number of successful status transitions"),
	)
	if err != nil {
		return nil, err
	}

	transitionLatency, err := meter.Float64Histogram("statusflow.transition.latency_ms",
		metric.WithDescription("Status transition latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitionErrors, err := meter.Int64Counter("statusflow.transition.errors",
		metric.WithDescription("Number of failed status transitions"),
	)
	if err != nil {
		return nil, err
	}

	emissions, err := meter.Int64Counter("statusflow.event.emissions",
		metric.WithDescription("Number of dispatcher emissions"),
	)
	if err != nil {
		return nil, err
	}

	emitLatency, err := meter.Float64Histogram("statusflow.event.emit_latency_ms",
		metric.WithDescription("Dispatcher emission latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	recoveries, err := meter.Int64Counter("statusflow.recovery.attempts",
		metric.WithDescription("Number of recovery engine invocations"),
	)
	if err != nil {
		return nil, err
	}

	recoveryLatency, err := meter.Float64Histogram("statusflow.recovery.latency_ms",
		metric.WithDescription("Recovery engine latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		transitions:       transitions,
		transitionLatency: transitionLatency,
		transitionErrors:  transitionErrors,
		emissions:         emissions,
		emitLatency:       emitLatency,
		recoveries:        recoveries,
		recoveryLatency:   recoveryLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTransition records one successful status transition.
func (m *otelMetrics) RecordTransition(ctx context.Context, kind, entityID, from, to string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("entity", kind),
		attribute.String("entity_id", entityID),
		attribute.String("from", from),
		attribute.String("to", to),
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.transitionLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordTransitionError records a failed transition.
func (m *otelMetrics) RecordTransitionError(ctx context.Context, kind, operation string) {
	m.transitionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", kind),
		attribute.String("operation", operation),
	))
}

// RecordEmit records one dispatcher emission.
func (m *otelMetrics) RecordEmit(ctx context.Context, eventType string, handlers int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
		attribute.Int("handlers", handlers),
		attribute.Bool("success", err == nil),
	}
	m.emissions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.emitLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRecovery records one recovery engine invocation.
func (m *otelMetrics) RecordRecovery(ctx context.Context, strategy string, success bool, attempts int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("strategy", strategy),
		attribute.Bool("success", success),
		attribute.Int("attempts", attempts),
	}
	m.recoveries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.recoveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
