package workflow

import (
	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
	"github.com/taskweave/taskweave/pkg/workflow/observability"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxSteps        int
	checkpointStore checkpoint.Store
	threadID        string
	sequence        int
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	tracingEnabled  bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: 100,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of node executions.
// Default: 100
//
// This prevents a misconfigured graph from looping forever. If a run
// exceeds this limit, Run returns ErrMaxSteps.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithCheckpointing enables checkpoint persistence to the given store.
// A checkpoint is saved after every node execution. Requires WithThreadID.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithThreadID sets the thread identifier used as the checkpoint key.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithMetrics sets the metrics recorder for the run.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables span creation for the run and its stages.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}
