package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/taskweave/taskweave/pkg/workflow"
	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
	"github.com/taskweave/taskweave/pkg/workflow/observability"
)

// Controller errors surfaced to the boundary layer. Unlike stage
// failures, these are propagated: the caller asked about a thread that
// does not exist or is not in a resumable state.
var (
	ErrThreadNotFound    = errors.New("planner: thread not found")
	ErrNotAwaitingInput  = errors.New("planner: thread is not awaiting input")
	ErrSelectionRequired = errors.New("planner: selected option id required")
)

// Status is the observable lifecycle state of a thread.
type Status string

const (
	StatusNotFound     Status = "not_found"
	StatusProcessing   Status = "processing"
	StatusWaitingInput Status = "waiting_input"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

// TaskContext is the inbound payload a caller supplies to start a run.
type TaskContext struct {
	TaskID         string          `json:"task_id,omitempty"`
	UserID         string          `json:"user_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	ContextNotes   string          `json:"context_notes,omitempty"`
	Priority       string          `json:"priority"`
	Deadline       string          `json:"deadline,omitempty"`
	CalendarEvents []CalendarEvent `json:"calendar_events,omitempty"`
}

// StatusReport is the polling response for a thread.
type StatusReport struct {
	ThreadID        string       `json:"thread_id"`
	Status          Status       `json:"status"`
	Options         []PlanOption `json:"options"`
	ExecutionResult string       `json:"execution_result,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// Controller is the workflow control surface: it maps caller intent
// (start, status, resume) onto graph invocation, checkpoint updates and
// snapshot reads. Safe for concurrent use; each thread's checkpoint is
// independent, so the only shared state is the resume bookkeeping.
type Controller struct {
	pipeline *Pipeline
	store    checkpoint.Store
	logger   *slog.Logger
	runOpts  []workflow.RunOption

	mu       sync.Mutex
	resuming map[string]bool
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger for workflow runs.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithRunOptions appends options applied to every graph invocation, such
// as metrics or tracing.
func WithRunOptions(opts ...workflow.RunOption) ControllerOption {
	return func(c *Controller) { c.runOpts = append(c.runOpts, opts...) }
}

// NewController creates the control surface over a compiled pipeline and
// a durable checkpoint store.
func NewController(pipeline *Pipeline, store checkpoint.Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		pipeline: pipeline,
		store:    store,
		logger:   slog.Default(),
		resuming: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// initialState builds the workflow state from the inbound task context.
func initialState(task TaskContext) State {
	taskID := task.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	priority := task.Priority
	if priority == "" {
		priority = "medium"
	}
	return State{
		TaskID:         taskID,
		UserID:         task.UserID,
		Title:          task.Title,
		Description:    task.Description,
		ContextNotes:   task.ContextNotes,
		Priority:       priority,
		Deadline:       task.Deadline,
		CalendarEvents: task.CalendarEvents,
	}
}

// Start launches the durable pipeline for the task and returns the new
// thread id immediately. The run proceeds in the background until it
// halts at the human-review pause; callers poll Status to observe it.
//
// The background run is detached from the caller's context so an aborted
// HTTP request does not cancel the workflow mid-stage.
func (c *Controller) Start(task TaskContext) string {
	threadID := uuid.NewString()
	state := initialState(task)

	go c.run(threadID, func(ctx workflow.Context) (workflow.Result[State], error) {
		return c.pipeline.HITL.Run(ctx, state, c.threadRunOpts(threadID)...)
	})

	return threadID
}

// ProcessSync runs the linear pipeline to completion and returns the
// final state. No checkpoint is written; this path is for callers that
// can block for the full analyze+schedule duration.
func (c *Controller) ProcessSync(ctx context.Context, task TaskContext) (State, error) {
	wfCtx := workflow.NewContext(ctx,
		workflow.WithLogger(c.logger),
		workflow.WithContextThreadID(uuid.NewString()),
	)
	result, err := c.pipeline.Linear.Run(wfCtx, initialState(task), c.runOpts...)
	return result.State, err
}

// Status reads the thread's checkpoint and reports its lifecycle state.
// Unknown threads report StatusNotFound rather than an error; polling an
// id that has not checkpointed yet is normal, not exceptional.
func (c *Controller) Status(threadID string) StatusReport {
	state, nextNode, err := workflow.Snapshot[State](c.store, threadID)
	if err != nil {
		if errors.Is(err, workflow.ErrNoCheckpoint) {
			return StatusReport{ThreadID: threadID, Status: StatusNotFound, Options: []PlanOption{}}
		}
		return StatusReport{ThreadID: threadID, Status: StatusError, Options: []PlanOption{}, Error: err.Error()}
	}

	report := StatusReport{
		ThreadID:        threadID,
		Options:         state.SchedulingOptions,
		ExecutionResult: state.ExecutionResult,
		Error:           state.ErrorMessage,
	}
	if report.Options == nil {
		report.Options = []PlanOption{}
	}

	switch {
	case nextNode == workflow.END && state.ErrorMessage != "":
		report.Status = StatusError
	case nextNode == workflow.END:
		report.Status = StatusCompleted
	case nextNode == StageHumanReview:
		report.Status = StatusWaitingInput
	default:
		report.Status = StatusProcessing
	}
	return report
}

// Owner returns the user id embedded in the thread's state, for boundary
// authorization. Returns ErrThreadNotFound for unknown threads.
func (c *Controller) Owner(threadID string) (string, error) {
	state, _, err := workflow.Snapshot[State](c.store, threadID)
	if err != nil {
		if errors.Is(err, workflow.ErrNoCheckpoint) {
			return "", ErrThreadNotFound
		}
		return "", err
	}
	return state.UserID, nil
}

// Resume injects the human selection into the thread's persisted state
// and re-invokes the graph in the background to run execute and reach
// terminal.
//
// The first accepted resume wins: a second resume for the same thread,
// whether concurrent with the first or arriving after completion, is
// rejected with ErrNotAwaitingInput. The selection is durably applied
// before the background run starts, so the execute stage always reads it.
func (c *Controller) Resume(threadID, selectedOptionID string) error {
	if selectedOptionID == "" {
		return ErrSelectionRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resuming[threadID] {
		return ErrNotAwaitingInput
	}

	_, nextNode, err := workflow.Snapshot[State](c.store, threadID)
	if err != nil {
		if errors.Is(err, workflow.ErrNoCheckpoint) {
			return ErrThreadNotFound
		}
		return err
	}
	if nextNode != StageHumanReview {
		return ErrNotAwaitingInput
	}

	err = workflow.UpdateState(c.store, threadID, func(s State) (State, error) {
		s.SelectedOptionID = selectedOptionID
		return s, nil
	})
	if err != nil {
		return err
	}

	c.resuming[threadID] = true

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.resuming, threadID)
			c.mu.Unlock()
		}()
		c.run(threadID, func(ctx workflow.Context) (workflow.Result[State], error) {
			return c.pipeline.HITL.Resume(ctx, c.store, threadID, c.runOpts...)
		})
	}()

	return nil
}

// threadRunOpts builds the per-thread run options for a durable run.
func (c *Controller) threadRunOpts(threadID string) []workflow.RunOption {
	opts := []workflow.RunOption{
		workflow.WithCheckpointing(c.store),
		workflow.WithThreadID(threadID),
	}
	return append(opts, c.runOpts...)
}

// run executes one graph invocation in the background, logging the
// outcome. Engine failures here have no caller to report to, so the log
// is the record.
func (c *Controller) run(threadID string, invoke func(workflow.Context) (workflow.Result[State], error)) {
	ctx := workflow.NewContext(context.Background(),
		workflow.WithLogger(c.logger),
		workflow.WithContextThreadID(threadID),
	)
	if _, err := invoke(ctx); err != nil {
		observability.LogRunError(c.logger, threadID, err, 0, "")
	}
}
