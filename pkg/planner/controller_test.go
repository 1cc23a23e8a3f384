package planner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/planner"
	"github.com/taskweave/taskweave/pkg/workflow"
	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
)

func newWorkflowContext(threadID string) workflow.Context {
	return workflow.NewContext(context.Background(),
		workflow.WithContextThreadID(threadID))
}

func newController(t *testing.T) (*planner.Controller, *checkpoint.MemoryStore) {
	t.Helper()
	pipeline, err := planner.NewPipeline(stubStages(t))
	require.NoError(t, err)
	store := checkpoint.NewMemoryStore()
	return planner.NewController(pipeline, store), store
}

// waitForStatus polls until the thread reaches the wanted status.
func waitForStatus(t *testing.T, c *planner.Controller, threadID string, want planner.Status) planner.StatusReport {
	t.Helper()
	var report planner.StatusReport
	require.Eventually(t, func() bool {
		report = c.Status(threadID)
		return report.Status == want
	}, 5*time.Second, 10*time.Millisecond, "thread never reached status %s", want)
	return report
}

func TestController_StartToWaitingInput(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{
		UserID:   "user-1",
		Title:    "Write Docs",
		Priority: "high",
	})
	require.NotEmpty(t, threadID)

	report := waitForStatus(t, c, threadID, planner.StatusWaitingInput)
	assert.Len(t, report.Options, 3)
	assert.Empty(t, report.ExecutionResult)
}

func TestController_FullHITLRoundTrip(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{
		UserID:      "user-1",
		Title:       "Write Docs",
		Description: "Document the workflow engine",
		Priority:    "high",
	})

	report := waitForStatus(t, c, threadID, planner.StatusWaitingInput)
	require.Len(t, report.Options, 3)

	// Resume by displayed option number rather than generated id.
	require.NoError(t, c.Resume(threadID, "2"))

	report = waitForStatus(t, c, threadID, planner.StatusCompleted)
	assert.Contains(t, report.ExecutionResult, "Confirmed")
	assert.Contains(t, report.ExecutionResult, "Write Docs")
	assert.Empty(t, report.Error)
}

func TestController_ResumeByGeneratedID(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{UserID: "user-1", Title: "Write Docs"})
	report := waitForStatus(t, c, threadID, planner.StatusWaitingInput)

	require.NoError(t, c.Resume(threadID, report.Options[0].ID))
	report = waitForStatus(t, c, threadID, planner.StatusCompleted)
	assert.Contains(t, report.ExecutionResult, report.Options[0].StartTime)
}

func TestController_StatusIdempotent(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{UserID: "user-1", Title: "Write Docs"})
	waitForStatus(t, c, threadID, planner.StatusWaitingInput)

	first := c.Status(threadID)
	second := c.Status(threadID)
	assert.Equal(t, first, second)
}

func TestController_StatusUnknownThread(t *testing.T) {
	c, _ := newController(t)

	report := c.Status("no-such-thread")
	assert.Equal(t, planner.StatusNotFound, report.Status)
	assert.NotNil(t, report.Options)
	assert.Empty(t, report.Options)
}

func TestController_ResumeUnknownThread(t *testing.T) {
	c, _ := newController(t)

	err := c.Resume("no-such-thread", "1")
	assert.ErrorIs(t, err, planner.ErrThreadNotFound)
}

func TestController_ResumeRequiresSelection(t *testing.T) {
	c, _ := newController(t)

	err := c.Resume("any-thread", "")
	assert.ErrorIs(t, err, planner.ErrSelectionRequired)
}

func TestController_SecondResumeRejected(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{UserID: "user-1", Title: "Write Docs"})
	waitForStatus(t, c, threadID, planner.StatusWaitingInput)

	require.NoError(t, c.Resume(threadID, "1"))
	report := waitForStatus(t, c, threadID, planner.StatusCompleted)
	firstResult := report.ExecutionResult

	// The first accepted resume wins; a later one is rejected and the
	// stored result is untouched.
	err := c.Resume(threadID, "2")
	assert.ErrorIs(t, err, planner.ErrNotAwaitingInput)
	assert.Equal(t, firstResult, c.Status(threadID).ExecutionResult)
}

func TestController_ResumeBeforePause(t *testing.T) {
	pipeline, err := planner.NewPipeline(stubStages(t))
	require.NoError(t, err)
	store := checkpoint.NewMemoryStore()
	c := planner.NewController(pipeline, store)

	// No run has checkpointed yet for this id.
	err = c.Resume("early-thread", "1")
	assert.ErrorIs(t, err, planner.ErrThreadNotFound)
}

func TestController_Owner(t *testing.T) {
	c, _ := newController(t)

	threadID := c.Start(planner.TaskContext{UserID: "user-7", Title: "Write Docs"})
	waitForStatus(t, c, threadID, planner.StatusWaitingInput)

	owner, err := c.Owner(threadID)
	require.NoError(t, err)
	assert.Equal(t, "user-7", owner)

	_, err = c.Owner("ghost")
	assert.ErrorIs(t, err, planner.ErrThreadNotFound)
}

func TestController_ProcessSync(t *testing.T) {
	c, _ := newController(t)

	state, err := c.ProcessSync(context.Background(), planner.TaskContext{
		UserID:   "user-1",
		Title:    "Write Docs",
		Priority: "high",
	})
	require.NoError(t, err)

	assert.Equal(t, 60, state.EstimatedDurationMinutes)
	assert.Equal(t, []string{"work", "analysis"}, state.SuggestedTags)
	assert.Len(t, state.SchedulingOptions, 3)
	assert.Empty(t, state.ExecutionResult, "linear variant never executes")
}

func TestController_TaskIDOnlyStillAnalyzes(t *testing.T) {
	c, _ := newController(t)

	// A bare task reference with no title or description still completes
	// analysis with a usable estimate.
	state, err := c.ProcessSync(context.Background(), planner.TaskContext{
		TaskID: "task-42",
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Positive(t, state.EstimatedDurationMinutes)
	assert.Equal(t, "task-42", state.TaskID)
	assert.Equal(t, "medium", state.Priority)
}

func TestController_ErrorStatusWithoutSelection(t *testing.T) {
	pipeline, err := planner.NewPipeline(stubStages(t))
	require.NoError(t, err)
	store := checkpoint.NewMemoryStore()
	c := planner.NewController(pipeline, store)

	threadID := c.Start(planner.TaskContext{UserID: "user-1", Title: "Write Docs"})
	waitForStatus(t, c, threadID, planner.StatusWaitingInput)

	// Drive execute without a selection by resuming at the engine level:
	// inject nothing and resume directly through the pipeline.
	ctx := newWorkflowContext(threadID)
	_, err = pipeline.HITL.Resume(ctx, store, threadID)
	require.NoError(t, err)

	report := c.Status(threadID)
	assert.Equal(t, planner.StatusError, report.Status)
	assert.Equal(t, "No option selected for execution", report.Error)
	assert.Empty(t, report.ExecutionResult)
}
