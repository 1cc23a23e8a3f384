package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/workflow/observability"
)

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	// Every helper must tolerate a nil logger.
	assert.NotPanics(t, func() {
		observability.LogRunStart(nil, "t1")
		observability.LogRunComplete(nil, "t1", 1.0, 2)
		observability.LogRunInterrupted(nil, "t1", "review", 1.0)
		observability.LogRunError(nil, "t1", errors.New("x"), 1.0, "a")
		observability.LogStageStart(nil, "a")
		observability.LogStageComplete(nil, "a", 1.0)
		observability.LogStageError(nil, "a", errors.New("x"))
		observability.LogCheckpoint(nil, "a", 10)
		observability.LogCheckpointError(nil, "a", "save", errors.New("x"))
		observability.LogGenerationFallback(nil, "ollama", errors.New("x"))
	})
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	enriched := observability.EnrichLogger(logger, "thread-1", "analyze")
	enriched.Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"thread_id":"thread-1"`)
	assert.Contains(t, out, `"stage":"analyze"`)

	assert.Nil(t, observability.EnrichLogger(nil, "t", "s"))
}

func TestLogGenerationFallback_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	observability.LogGenerationFallback(logger, "ollama", errors.New("connection refused"))

	out := buf.String()
	assert.Contains(t, out, `"backend":"ollama"`)
	assert.Contains(t, out, "connection refused")
}

func TestTimedOperation(t *testing.T) {
	done := observability.TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), float64(0))
}

func TestNoopMetrics(t *testing.T) {
	m := observability.NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordStageExecution(ctx, "analyze", time.Second, nil)
		m.RecordStageExecution(ctx, "analyze", time.Second, errors.New("x"))
		m.RecordRun(ctx, true, time.Second)
		m.RecordCheckpoint(ctx, "analyze", 128)
		m.RecordGenerationFallback(ctx, "ollama")
	})
}

func TestNoopSpanManager(t *testing.T) {
	m := observability.NoopSpanManager{}
	ctx := context.Background()

	runCtx, span := m.StartRunSpan(ctx, "graph", "thread-1")
	assert.Equal(t, ctx, runCtx)

	_, stageSpan := m.StartStageSpan(ctx, "analyze")
	assert.NotPanics(t, func() {
		m.EndSpanWithError(span, errors.New("x"))
		m.EndSpanWithError(stageSpan, nil)
	})
}

func TestNewMetricsRecorder(t *testing.T) {
	m := observability.NewMetricsRecorder()
	require.NotNil(t, m)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStageExecution(ctx, "analyze", 100*time.Millisecond, nil)
		m.RecordRun(ctx, true, time.Second)
		m.RecordCheckpoint(ctx, "schedule", 256)
		m.RecordGenerationFallback(ctx, "ollama")
	})
}
