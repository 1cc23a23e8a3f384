// Package observability provides structured logging, metrics, and tracing
// for workflow runs: slog event helpers, OpenTelemetry metrics, and
// OpenTelemetry spans, each with a no-op variant when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds workflow context to a logger.
// Returns a new logger with thread_id and stage fields.
func EnrichLogger(logger *slog.Logger, threadID, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("stage", stage),
	)
}

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("workflow run starting",
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs successful workflow run completion.
func LogRunComplete(logger *slog.Logger, threadID string, durationMs float64, stageCount int) {
	if logger == nil {
		return
	}
	logger.Info("workflow run completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("stages_executed", stageCount),
	)
}

// LogRunInterrupted logs a run halting at an interrupt point.
func LogRunInterrupted(logger *slog.Logger, threadID, pendingStage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("workflow run interrupted",
		slog.String("thread_id", threadID),
		slog.String("pending_stage", pendingStage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRunError logs workflow run failure.
func LogRunError(logger *slog.Logger, threadID string, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("workflow run failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stage string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage", stage),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs stage execution error.
func LogStageError(logger *slog.Logger, stage string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, stage string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("stage", stage),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure.
func LogCheckpointError(logger *slog.Logger, stage string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("stage", stage),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogGenerationFallback logs a generation backend failure that was
// recovered by the deterministic stub.
func LogGenerationFallback(logger *slog.Logger, backend string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("generation backend failed, using deterministic stub",
		slog.String("backend", backend),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
