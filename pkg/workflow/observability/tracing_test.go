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

// setupTracingTest installs a test tracer provider with an in-memory
// exporter and rebinds the package tracer to it.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("taskweave")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("taskweave")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
	})

	return exporter
}

func TestStartRunSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	_, span := m.StartRunSpan(context.Background(), "taskweave", "thread-123")
	require.NotNil(t, span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "taskweave.run", spans[0].Name)

	var graphName, threadID string
	for _, attr := range spans[0].Attributes {
		switch attr.Key {
		case "graph.name":
			graphName = attr.Value.AsString()
		case "thread.id":
			threadID = attr.Value.AsString()
		}
	}
	assert.Equal(t, "taskweave", graphName)
	assert.Equal(t, "thread-123", threadID)
}

func TestStartStageSpan_ChildOfRun(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	runCtx, runSpan := m.StartRunSpan(context.Background(), "taskweave", "thread-123")
	_, stageSpan := m.StartStageSpan(runCtx, "analyze")
	stageSpan.End()
	runSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "taskweave.stage.analyze", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	t.Run("records error status", func(t *testing.T) {
		exporter.Reset()

		_, span := m.StartStageSpan(context.Background(), "schedule")
		m.EndSpanWithError(span, errors.New("backend down"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("records ok status", func(t *testing.T) {
		exporter.Reset()

		_, span := m.StartStageSpan(context.Background(), "schedule")
		m.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("tolerates nil span", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.EndSpanWithError(nil, errors.New("x"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, span := m.StartRunSpan(context.Background(), "taskweave", "thread-123")
	m.AddSpanEvent(ctx, "checkpoint.saved")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "checkpoint.saved", spans[0].Events[0].Name)

	// No recording span in context: silently dropped.
	assert.NotPanics(t, func() {
		m.AddSpanEvent(context.Background(), "ignored")
	})
}
