package planner

import (
	"time"

	"github.com/taskweave/taskweave/pkg/planner/llm"
	"github.com/taskweave/taskweave/pkg/planner/prompt"
	"github.com/taskweave/taskweave/pkg/workflow"
)

// Stage names, also the node identifiers in the compiled graphs.
const (
	StageAnalyze     = "analyze"
	StageSchedule    = "schedule"
	StageHumanReview = "human_review"
	StageExecute     = "execute"
)

// Stages bundles the stage functions with their collaborators. All stages
// are pure transformations from state to a partial update; the graph
// wiring merges updates into the state, so stages never share a mutable
// reference.
type Stages struct {
	client   llm.Client
	renderer *prompt.Renderer
	booker   Booker
	now      func() time.Time
}

// StagesOption customizes stage construction.
type StagesOption func(*Stages)

// WithClock overrides the time source, used by the schedule fallback slot.
func WithClock(now func() time.Time) StagesOption {
	return func(st *Stages) { st.now = now }
}

// WithBooker overrides the booking backend.
func WithBooker(b Booker) StagesOption {
	return func(st *Stages) { st.booker = b }
}

// NewStages wires the stage functions to a generation client and renderer.
func NewStages(client llm.Client, renderer *prompt.Renderer, opts ...StagesOption) *Stages {
	st := &Stages{
		client:   client,
		renderer: renderer,
		booker:   ConfirmBooker{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// stageFunc is the shared stage contract: current state in, partial
// update out. Stages recover every internal failure themselves, so there
// is no error path.
type stageFunc func(ctx workflow.Context, state State) Update

// asNode adapts a stageFunc to the engine's node contract by merging the
// returned update into a copy of the state.
func asNode(fn stageFunc) workflow.NodeFunc[State] {
	return func(ctx workflow.Context, state State) (State, error) {
		return fn(ctx, state).applyTo(state), nil
	}
}

// Pipeline holds the two compiled pipeline variants built from one stage
// set: a synchronous linear run (analyze, schedule, done) and the durable
// human-in-the-loop run that pauses before human_review.
type Pipeline struct {
	Linear *workflow.CompiledGraph[State]
	HITL   *workflow.CompiledGraph[State]
}

// NewPipeline compiles both variants.
func NewPipeline(st *Stages) (*Pipeline, error) {
	analyze := asNode(func(ctx workflow.Context, s State) Update { return st.Analyze(ctx, s) })
	schedule := asNode(func(ctx workflow.Context, s State) Update { return st.Schedule(ctx, s) })
	execute := asNode(func(ctx workflow.Context, s State) Update { return st.Execute(ctx, s) })

	// The pause point itself does nothing: the halt happens on the
	// transition into it, and resume runs it as a pass-through.
	review := func(ctx workflow.Context, s State) (State, error) { return s, nil }

	linear := workflow.NewGraph[State]()
	linear.AddNode(StageAnalyze, analyze)
	linear.AddNode(StageSchedule, schedule)
	linear.AddEdge(StageAnalyze, StageSchedule)
	linear.AddEdge(StageSchedule, workflow.END)
	linear.SetEntry(StageAnalyze)

	compiledLinear, err := linear.Compile()
	if err != nil {
		return nil, err
	}

	hitl := workflow.NewGraph[State]()
	hitl.AddNode(StageAnalyze, analyze)
	hitl.AddNode(StageSchedule, schedule)
	hitl.AddNode(StageHumanReview, review)
	hitl.AddNode(StageExecute, execute)
	hitl.AddEdge(StageAnalyze, StageSchedule)
	hitl.AddEdge(StageSchedule, StageHumanReview)
	hitl.AddEdge(StageHumanReview, StageExecute)
	hitl.AddEdge(StageExecute, workflow.END)
	hitl.SetEntry(StageAnalyze)
	hitl.SetInterruptBefore(StageHumanReview)

	compiledHITL, err := hitl.Compile()
	if err != nil {
		return nil, err
	}

	return &Pipeline{Linear: compiledLinear, HITL: compiledHITL}, nil
}
