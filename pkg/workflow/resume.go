package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
)

// Resume continues execution from the thread's checkpoint.
// It loads the persisted state and starts execution from the pending node;
// the caller supplies no state. Use UpdateState beforehand to inject an
// external decision into the persisted state.
//
// If the checkpoint is already terminal (pending node is END), Resume
// returns the persisted state without executing anything.
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, threadID string, opts ...RunOption) (Result[S], error) {
	var zero Result[S]

	if ctx == nil {
		return zero, ErrNilContext
	}

	cp, state, err := loadSnapshot[S](store, threadID)
	if err != nil {
		return zero, err
	}

	startNode := cp.NextNode
	if startNode == END {
		return Result[S]{State: state}, nil
	}
	if !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.checkpointStore = store
	cfg.threadID = threadID
	cfg.sequence = cp.Sequence

	result, _, err := cg.runFrom(ctx, ctx, state, startNode, &cfg)
	return result, err
}

// UpdateState applies a read-modify-write to the persisted state of a
// thread without advancing its pending node. The updated snapshot replaces
// the stored checkpoint; sequence and pending node are preserved.
func UpdateState[S any](store checkpoint.Store, threadID string, apply func(S) (S, error)) error {
	cp, state, err := loadSnapshot[S](store, threadID)
	if err != nil {
		return err
	}

	updated, err := apply(state)
	if err != nil {
		return err
	}

	stateBytes, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("serialize updated state: %w", err)
	}
	cp.State = stateBytes

	data, err := cp.Marshal()
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return store.Save(threadID, data)
}

// Snapshot returns the persisted state and pending node for a thread.
// The pending node is END for completed threads. Returns ErrNoCheckpoint
// if the thread has never been checkpointed.
func Snapshot[S any](store checkpoint.Store, threadID string) (S, string, error) {
	var zero S
	cp, state, err := loadSnapshot[S](store, threadID)
	if err != nil {
		return zero, "", err
	}
	return state, cp.NextNode, nil
}

// loadSnapshot loads and decodes the thread's checkpoint.
func loadSnapshot[S any](store checkpoint.Store, threadID string) (*checkpoint.Checkpoint, S, error) {
	var zero S

	data, err := store.Load(threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, zero, fmt.Errorf("%w: %s", ErrNoCheckpoint, threadID)
		}
		return nil, zero, fmt.Errorf("load checkpoint: %w", err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.Version != checkpoint.Version {
		return nil, zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	return cp, state, nil
}
