package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/workflow"
	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
)

// pausedGraph builds a graph with an interrupt before "review" and runs it
// to the pause point.
func pausedGraph(t *testing.T, store checkpoint.Store) *workflow.CompiledGraph[RunState] {
	t.Helper()
	compiled, err := workflow.NewGraph[RunState]().
		AddNode("a", visit("a")).
		AddNode("review", visit("review")).
		AddNode("b", visit("b")).
		AddEdge("a", "review").
		AddEdge("review", "b").
		AddEdge("b", workflow.END).
		SetEntry("a").
		SetInterruptBefore("review").
		Compile()
	require.NoError(t, err)

	ctx := workflow.NewContext(context.Background())
	result, err := compiled.Run(ctx, RunState{},
		workflow.WithCheckpointing(store),
		workflow.WithThreadID("thread-1"))
	require.NoError(t, err)
	require.True(t, result.Interrupted)

	return compiled
}

func TestResume_ContinuesFromPendingNode(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled := pausedGraph(t, store)

	ctx := workflow.NewContext(context.Background())
	result, err := compiled.Resume(ctx, store, "thread-1")
	require.NoError(t, err)

	assert.False(t, result.Interrupted)
	// The interrupt node itself executes on resume; it does not re-halt.
	assert.Equal(t, []string{"a", "review", "b"}, result.State.Visited)

	_, nextNode, err := workflow.Snapshot[RunState](store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.END, nextNode)
}

func TestResume_ReadsStoredState(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled := pausedGraph(t, store)

	// The caller supplies no state; the stored snapshot carries it.
	err := workflow.UpdateState(store, "thread-1", func(s RunState) (RunState, error) {
		s.Selected = "option-2"
		return s, nil
	})
	require.NoError(t, err)

	ctx := workflow.NewContext(context.Background())
	result, err := compiled.Resume(ctx, store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "option-2", result.State.Selected)
}

func TestResume_TerminalCheckpointReturnsState(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled := pausedGraph(t, store)

	ctx := workflow.NewContext(context.Background())
	first, err := compiled.Resume(ctx, store, "thread-1")
	require.NoError(t, err)

	// A second resume against the completed thread executes nothing.
	second, err := compiled.Resume(ctx, store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, []string{"a", "review", "b"}, second.State.Visited)
}

func TestResume_NoCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	compiled := linearGraph(t)

	ctx := workflow.NewContext(context.Background())
	_, err := compiled.Resume(ctx, store, "ghost-thread")
	assert.ErrorIs(t, err, workflow.ErrNoCheckpoint)
}

func TestUpdateState_PreservesPendingNode(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	pausedGraph(t, store)

	err := workflow.UpdateState(store, "thread-1", func(s RunState) (RunState, error) {
		s.Selected = "option-1"
		return s, nil
	})
	require.NoError(t, err)

	state, nextNode, err := workflow.Snapshot[RunState](store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "review", nextNode)
	assert.Equal(t, "option-1", state.Selected)
}

func TestUpdateState_NoCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	err := workflow.UpdateState(store, "ghost-thread", func(s RunState) (RunState, error) {
		return s, nil
	})
	assert.ErrorIs(t, err, workflow.ErrNoCheckpoint)
}

func TestSnapshot_NoCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	_, _, err := workflow.Snapshot[RunState](store, "ghost-thread")
	assert.ErrorIs(t, err, workflow.ErrNoCheckpoint)
}
