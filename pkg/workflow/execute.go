package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
	"github.com/taskweave/taskweave/pkg/workflow/observability"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of a Run or Resume call.
type Result[S any] struct {
	// State is the state after the last executed node.
	State S

	// Interrupted reports whether the run halted at a declared interrupt
	// point instead of reaching END. An interrupted run is not an error;
	// it awaits UpdateState and Resume.
	Interrupted bool

	// PendingNode is the interrupt node awaiting execution.
	// Empty unless Interrupted is true.
	PendingNode string
}

// Run executes the graph with the given initial state.
// Returns the result and any error encountered.
//
// On success, Result.State is the state after the last node executed
// before END, or before the interrupt point for interrupted runs.
// On error, Result.State is the state at the point of failure.
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node
//  4. Persist a checkpoint naming the next node (if checkpointing enabled)
//  5. Halt if the next node is an interrupt point
//  6. Repeat until END is reached or an error occurs
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result Result[S], runErr error) {
	if ctx == nil {
		return Result[S]{State: state}, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.threadID == "" {
		return Result[S]{State: state}, ErrThreadIDRequired
	}

	threadID := cfg.threadID
	if threadID == "" {
		threadID = ctx.ThreadID()
	}

	startTime := time.Now()
	observability.LogRunStart(ctx.Logger(), threadID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "taskweave", threadID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var stageCount int
	result, stageCount, runErr = cg.runFrom(execCtx, ctx, state, cg.entryPoint, &cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	switch {
	case runErr != nil:
		lastNode := ""
		if nodeErr, ok := runErr.(*NodeError); ok {
			lastNode = nodeErr.NodeID
		} else if maxErr, ok := runErr.(*MaxStepsError); ok {
			lastNode = maxErr.LastNodeID
		} else if cancelErr, ok := runErr.(*CancellationError); ok {
			lastNode = cancelErr.NodeID
		}
		observability.LogRunError(ctx.Logger(), threadID, runErr, durationMs, lastNode)
	case result.Interrupted:
		observability.LogRunInterrupted(ctx.Logger(), threadID, result.PendingNode, durationMs)
	default:
		observability.LogRunComplete(ctx.Logger(), threadID, durationMs, stageCount)
	}

	return result, runErr
}

// runFrom executes the graph starting from a specific node.
// tracingCtx carries span context; wfCtx is the workflow Context.
// Returns the result, executed node count, and any error.
func (cg *CompiledGraph[S]) runFrom(tracingCtx context.Context, wfCtx Context, state S, startNode string, cfg *runConfig) (Result[S], int, error) {
	current := startNode
	steps := 0
	stageCount := 0

	for current != END {
		steps++
		if steps > cfg.maxSteps {
			return Result[S]{State: state}, stageCount, &MaxStepsError{
				Max:        cfg.maxSteps,
				LastNodeID: current,
				State:      state,
			}
		}

		// Check for cancellation before executing the node
		select {
		case <-wfCtx.Done():
			return Result[S]{State: state}, stageCount, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  wfCtx.Err(),
			}
		default:
		}

		observability.LogStageStart(wfCtx.Logger(), current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartStageSpan(tracingCtx, current)
		}

		nodeStart := time.Now()

		var nodeErr error
		state, nodeErr = cg.executeNode(wfCtx, current, state)

		nodeDuration := time.Since(nodeStart)
		cfg.metrics.RecordStageExecution(nodeTracingCtx, current, nodeDuration, nodeErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogStageError(wfCtx.Logger(), current, nodeErr)
			return Result[S]{State: state}, stageCount, nodeErr
		}
		observability.LogStageComplete(wfCtx.Logger(), current, float64(nodeDuration.Milliseconds()))
		stageCount++

		next, err := cg.nextNode(current)
		if err != nil {
			return Result[S]{State: state}, stageCount, err
		}

		// Checkpoint after successful node execution. The checkpoint names
		// the next node, so a resumed run picks up exactly where this one
		// left off.
		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(wfCtx, cfg, current, state, next); err != nil {
				return Result[S]{State: state}, stageCount, err
			}
		}

		// Halt before entering an interrupt point. The checkpoint above
		// already records it as pending, so status readers observe the
		// pause only after the state is durable.
		if next != END && cg.interruptNodes[next] {
			return Result[S]{State: state, Interrupted: true, PendingNode: next}, stageCount, nil
		}

		current = next
	}

	return Result[S]{State: state}, stageCount, nil
}

// saveCheckpoint persists the current state after node execution.
// Checkpoint failures are fatal: resume correctness depends on the
// persisted snapshot, so a run must not outpace its checkpoints.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, nodeID string, state S, nextNode string) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		observability.LogCheckpointError(ctx.Logger(), nodeID, "serialize", err)
		return &CheckpointError{NodeID: nodeID, Op: "serialize", Err: err}
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.threadID, nodeID, cfg.sequence, stateBytes, nextNode)

	data, err := cp.Marshal()
	if err != nil {
		observability.LogCheckpointError(ctx.Logger(), nodeID, "marshal", err)
		return &CheckpointError{NodeID: nodeID, Op: "marshal", Err: err}
	}

	if err := cfg.checkpointStore.Save(cfg.threadID, data); err != nil {
		observability.LogCheckpointError(ctx.Logger(), nodeID, "save", err)
		return &CheckpointError{NodeID: nodeID, Op: "save", Err: err}
	}

	sizeBytes := len(data)
	observability.LogCheckpoint(ctx.Logger(), nodeID, sizeBytes)
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(sizeBytes))

	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// This shouldn't happen if compilation was successful
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	// Create node-specific context with enriched logger
	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
func (cg *CompiledGraph[S]) nextNode(current string) (string, error) {
	next, ok := cg.edges[current]
	if !ok {
		// This shouldn't happen if compilation was successful
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return next, nil
}
