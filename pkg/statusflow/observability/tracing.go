package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the statusflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("statusflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTransitionSpan starts a span covering one status transition.
	StartTransitionSpan(ctx context.Context, kind, entityID, target string) (context.Context, trace.Span)

	// StartRecoverySpan starts a span covering one recovery attempt.
	StartRecoverySpan(ctx context.Context, errorKind, component string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartTransitionSpan starts a span covering one status transition.
func (m *otelSpanManager) StartTransitionSpan(ctx context.Context, kind, entityID, target string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "statusflow.transition",
		trace.WithAttributes(
			attribute.String("entity.kind", kind),
			attribute.String("entity.id", entityID),
			attribute.String("status.target", target),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRecoverySpan starts a span covering one recovery attempt.
func (m *otelSpanManager) StartRecoverySpan(ctx context.Context, errorKind, component string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "statusflow.recovery",
		trace.WithAttributes(
			attribute.String("error.kind", errorKind),
			attribute.String("component", component),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
