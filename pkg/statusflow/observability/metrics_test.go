package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordTransition(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records transition count", func(t *testing.T) {
		m.RecordTransition(ctx, "task", "task-1", "PENDING", "DOING", 25*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "statusflow.transitions")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "entity_id" && attr.Value.AsString() == "task-1" {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected to find datapoint for entity_id=task-1")
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordTransition(ctx, "agent", "agent-1", "IDLE", "THINKING", 100*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "statusflow.transition.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})
}

func TestRecordTransitionError(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordTransitionError(context.Background(), "task", "execute")

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "statusflow.transition.errors")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	require.NotEmpty(t, sum.DataPoints)

	found := false
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "operation" && attr.Value.AsString() == "execute" {
				found = true
			}
		}
	}
	assert.True(t, found, "Expected to find error datapoint for operation=execute")
}

func TestRecordEmit(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records successful emissions", func(t *testing.T) {
		m.RecordEmit(ctx, "status.task.changed", 2, 5*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "statusflow.event.emissions")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
	})

	t.Run("records failed emissions", func(t *testing.T) {
		m.RecordEmit(ctx, "status.task.changed", 2, 5*time.Millisecond, errors.New("handler failed"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "statusflow.event.emissions")
		require.NotNil(t, metric)
	})

	t.Run("records emit latency", func(t *testing.T) {
		m.RecordEmit(ctx, "status.agent.changed", 1, 3*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "statusflow.event.emit_latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})
}

func TestRecordRecovery(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordRecovery(context.Background(), "retry", true, 2, 150*time.Millisecond)

	rm := collectMetrics(t, reader)

	metric := findMetric(rm, "statusflow.recovery.attempts")
	require.NotNil(t, metric)
	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)

	found := false
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "strategy" && attr.Value.AsString() == "retry" {
				found = true
			}
		}
	}
	assert.True(t, found, "Expected to find datapoint for strategy=retry")

	latency := findMetric(rm, "statusflow.recovery.latency_ms")
	require.NotNil(t, latency)
}

func TestOtelMetrics_AllMethods(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()

	m.RecordTransition(ctx, "task", "task-1", "PENDING", "DOING", 25*time.Millisecond)
	m.RecordTransitionError(ctx, "task", "execute")
	m.RecordEmit(ctx, "status.task.changed", 1, 2*time.Millisecond, nil)
	m.RecordRecovery(ctx, "fallback", false, 1, 10*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.NotNil(t, findMetric(rm, "statusflow.transitions"))
	assert.NotNil(t, findMetric(rm, "statusflow.transition.latency_ms"))
	assert.NotNil(t, findMetric(rm, "statusflow.transition.errors"))
	assert.NotNil(t, findMetric(rm, "statusflow.event.emissions"))
	assert.NotNil(t, findMetric(rm, "statusflow.event.emit_latency_ms"))
	assert.NotNil(t, findMetric(rm, "statusflow.recovery.attempts"))
	assert.NotNil(t, findMetric(rm, "statusflow.recovery.latency_ms"))
}

func TestNewOtelMetrics_Creation(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, m.transitions)
	assert.NotNil(t, m.transitionLatency)
	assert.NotNil(t, m.transitionErrors)
	assert.NotNil(t, m.emissions)
	assert.NotNil(t, m.emitLatency)
	assert.NotNil(t, m.recoveries)
	assert.NotNil(t, m.recoveryLatency)
}
