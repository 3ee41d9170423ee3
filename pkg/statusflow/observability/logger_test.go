package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testHandler{buf: h.buf, level: h.level, attrs: append(h.attrs, attrs...)}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(h.buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	h := newTestHandler()
	logger := EnrichLogger(slog.New(h), "task", "task-1", "execute")
	require.NotNil(t, logger)

	logger.Info("hello")

	records := h.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "task", records[0]["entity_kind"])
	assert.Equal(t, "task-1", records[0]["entity_id"])
	assert.Equal(t, "execute", records[0]["operation"])
}

func TestEnrichLogger_Nil(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "task", "task-1", "execute"))
}

func TestLogTransitionLifecycle(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogTransitionStart(logger, "task", "task-1", "PENDING", "DOING", "execute")
	LogTransitionComplete(logger, "task", "task-1", "PENDING", "DOING", 25*time.Millisecond)
	LogTransitionError(logger, "task", "task-1", "execute", errors.New("rejected"))

	records := h.records(t)
	require.Len(t, records, 3)

	assert.Equal(t, "DEBUG", records[0]["level"])
	assert.Equal(t, "transition starting", records[0]["msg"])
	assert.Equal(t, "PENDING", records[0]["from"])
	assert.Equal(t, "DOING", records[0]["to"])

	assert.Equal(t, "INFO", records[1]["level"])
	assert.Equal(t, "transition completed", records[1]["msg"])

	assert.Equal(t, "ERROR", records[2]["level"])
	assert.Equal(t, "transition failed", records[2]["msg"])
	assert.Equal(t, "rejected", records[2]["error"])
}

func TestLogReportSinkError(t *testing.T) {
	h := newTestHandler()

	LogReportSinkError(slog.New(h), "evt-1", errors.New("sink down"))

	records := h.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, "evt-1", records[0]["event_id"])
}

func TestLogRecoveryResult(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogRecoveryAttempt(logger, "NetworkError", "fetcher", 2, errors.New("still down"))
	LogRecoveryResult(logger, "NetworkError", "fetcher", "retry", true, 3)
	LogRecoveryResult(logger, "NetworkError", "fetcher", "retry", false, 3)

	records := h.records(t)
	require.Len(t, records, 3)

	assert.Equal(t, "DEBUG", records[0]["level"])
	assert.Equal(t, float64(2), records[0]["attempt"])

	assert.Equal(t, "INFO", records[1]["level"])
	assert.Equal(t, "recovery succeeded", records[1]["msg"])

	assert.Equal(t, "WARN", records[2]["level"])
	assert.Equal(t, "recovery failed", records[2]["msg"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogTransitionStart(nil, "task", "t", "A", "B", "op")
		LogTransitionComplete(nil, "task", "t", "A", "B", 0)
		LogTransitionError(nil, "task", "t", "op", errors.New("x"))
		LogReportSinkError(nil, "evt", errors.New("x"))
		LogRecoveryAttempt(nil, "k", "c", 1, errors.New("x"))
		LogRecoveryResult(nil, "k", "c", "retry", true, 1)
	})
}

func TestTimedOperation(t *testing.T) {
	elapsed := TimedOperation()
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, elapsed(), float64(5))
}

func TestRuntimeSnapshots(t *testing.T) {
	p := NewRuntimeSnapshots()

	res := p.ResourceSnapshot()
	assert.False(t, res.CapturedAt.IsZero())
	assert.Greater(t, res.HeapAllocBytes, uint64(0))
	assert.Greater(t, res.NumGoroutine, 0)

	perf := p.PerformanceSnapshot()
	assert.False(t, perf.CapturedAt.IsZero())
	assert.Greater(t, perf.NumCPU, 0)
	assert.GreaterOrEqual(t, perf.Uptime, time.Duration(0))
}
