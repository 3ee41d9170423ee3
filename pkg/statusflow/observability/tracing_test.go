package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("statusflow")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestStartTransitionSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("creates span with correct name and attributes", func(t *testing.T) {
		ctx := context.Background()
		_, span := sm.StartTransitionSpan(ctx, "task", "task-1", "DOING")
		require.NotNil(t, span)

		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, "statusflow.transition", s.Name)

		var kind, entityID, target string
		for _, attr := range s.Attributes {
			switch attr.Key {
			case "entity.kind":
				kind = attr.Value.AsString()
			case "entity.id":
				entityID = attr.Value.AsString()
			case "status.target":
				target = attr.Value.AsString()
			}
		}
		assert.Equal(t, "task", kind)
		assert.Equal(t, "task-1", entityID)
		assert.Equal(t, "DOING", target)
	})

	t.Run("returns context with span", func(t *testing.T) {
		exporter.Reset()

		ctx := context.Background()
		newCtx, span := sm.StartTransitionSpan(ctx, "agent", "agent-1", "THINKING")

		assert.NotEqual(t, ctx, newCtx)

		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
	})
}

func TestStartRecoverySpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("creates span with error kind and component", func(t *testing.T) {
		ctx := context.Background()
		_, span := sm.StartRecoverySpan(ctx, "NetworkError", "fetcher")
		require.NotNil(t, span)

		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, "statusflow.recovery", s.Name)

		var errorKind, component string
		for _, attr := range s.Attributes {
			switch attr.Key {
			case "error.kind":
				errorKind = attr.Value.AsString()
			case "component":
				component = attr.Value.AsString()
			}
		}
		assert.Equal(t, "NetworkError", errorKind)
		assert.Equal(t, "fetcher", component)
	})

	t.Run("recovery span nests under transition span", func(t *testing.T) {
		exporter.Reset()

		ctx := context.Background()
		ctx, transitionSpan := sm.StartTransitionSpan(ctx, "task", "task-1", "ERROR")

		_, recoverySpan := sm.StartRecoverySpan(ctx, "TimeoutError", "validator")
		recoverySpan.End()
		transitionSpan.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)

		var recovery *tracetest.SpanStub
		for i := range spans {
			if spans[i].Name == "statusflow.recovery" {
				recovery = &spans[i]
				break
			}
		}
		require.NotNil(t, recovery)
		assert.True(t, recovery.Parent.IsValid())
	})
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("sets OK status for nil error", func(t *testing.T) {
		_, span := sm.StartTransitionSpan(context.Background(), "task", "t", "DOING")

		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		assert.Equal(t, codes.Ok, spans[0].Status.Code)
		assert.Equal(t, "", spans[0].Status.Description)
	})

	t.Run("sets Error status and records error", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartTransitionSpan(context.Background(), "task", "t", "DOING")
		testErr := errors.New("something went wrong")

		sm.EndSpanWithError(span, testErr)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, codes.Error, s.Status.Code)
		assert.Equal(t, "something went wrong", s.Status.Description)

		require.NotEmpty(t, s.Events)
		found := false
		for _, event := range s.Events {
			if event.Name == "exception" {
				found = true
			}
		}
		assert.True(t, found, "Expected exception event")
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, nil)
		})
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, errors.New("test"))
		})
	})
}
