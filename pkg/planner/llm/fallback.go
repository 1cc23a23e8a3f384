package llm

import (
	"context"
	"log/slog"

	"github.com/taskweave/taskweave/pkg/workflow/observability"
)

// Fallback wraps a primary Client and recovers any failure with the
// deterministic stub. Stages call this composed client so a flaky
// generation backend can never stall the pipeline: backend failures are
// logged and counted, never propagated.
type Fallback struct {
	primary Client
	stub    *Stub
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Compile-time interface check.
var _ Client = (*Fallback)(nil)

// NewFallback creates a client that tries primary and degrades to the stub.
// logger may be nil; metrics may be nil (treated as no-op).
func NewFallback(primary Client, logger *slog.Logger, metrics observability.MetricsRecorder) *Fallback {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Fallback{
		primary: primary,
		stub:    NewStub(),
		logger:  logger,
		metrics: metrics,
	}
}

// Name implements Client.
func (f *Fallback) Name() string { return f.primary.Name() + "+fallback" }

// Complete implements Client. It never returns an error: if the primary
// backend fails for any reason, the stub's deterministic reply is returned
// instead.
func (f *Fallback) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := f.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	observability.LogGenerationFallback(f.logger, f.primary.Name(), err)
	f.metrics.RecordGenerationFallback(ctx, f.primary.Name())

	return f.stub.Complete(ctx, req)
}
