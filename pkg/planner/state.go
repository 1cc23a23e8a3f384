// Package planner implements the task-processing pipeline: analyze a task,
// propose schedule slots, pause for a human selection, and commit the
// chosen slot. The pipeline runs on the workflow engine in two variants, a
// synchronous linear one and a durable human-in-the-loop one.
package planner

// State is the single record threaded through the pipeline. Stages return
// partial Updates that the graph wiring merges into it; no stage writes a
// field it does not own.
type State struct {
	// Identity, immutable after creation.
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`

	// Input context, immutable.
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ContextNotes string `json:"context_notes,omitempty"`
	Priority     string `json:"priority"`
	Deadline     string `json:"deadline,omitempty"`

	// Analysis outputs, written once by the analyze stage.
	EstimatedDurationMinutes int      `json:"estimated_duration_minutes,omitempty"`
	SuggestedTags            []string `json:"suggested_tags,omitempty"`
	AIReasoning              string   `json:"ai_reasoning,omitempty"`

	// Scheduling data.
	CalendarEvents    []CalendarEvent `json:"calendar_events,omitempty"`
	SchedulingOptions []PlanOption    `json:"scheduling_options,omitempty"`

	// SelectedOptionID is written externally during resume, never by a stage.
	SelectedOptionID string `json:"selected_option_id,omitempty"`

	// ExecutionResult is written once by the execute stage.
	ExecutionResult string `json:"execution_result,omitempty"`

	// ErrorMessage records a recoverable stage failure. It never clears
	// itself.
	ErrorMessage string `json:"error_message,omitempty"`
}

// CalendarEvent is one calendar entry supplied as scheduling context.
type CalendarEvent struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// PlanOption is one candidate schedule slot proposed by the schedule
// stage. Options are created in bulk and read-only thereafter; a human
// refers to one at resume time by its generated ID or, more naturally, by
// its displayed option number.
type PlanOption struct {
	ID           string `json:"id"`
	OptionNumber int    `json:"option_number"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Reasoning    string `json:"reasoning"`
	Impact       string `json:"impact,omitempty"`
}

// Update is the partial-update record a stage returns: only the fields the
// stage owns are set. The graph wiring merges non-nil fields into the
// state, so stages never see or mutate a shared reference.
type Update struct {
	EstimatedDurationMinutes *int
	SuggestedTags            []string
	AIReasoning              *string
	SchedulingOptions        []PlanOption
	ExecutionResult          *string
	ErrorMessage             *string
}

// applyTo merges the update into a copy of the state.
func (u Update) applyTo(s State) State {
	if u.EstimatedDurationMinutes != nil {
		s.EstimatedDurationMinutes = *u.EstimatedDurationMinutes
	}
	if u.SuggestedTags != nil {
		s.SuggestedTags = u.SuggestedTags
	}
	if u.AIReasoning != nil {
		s.AIReasoning = *u.AIReasoning
	}
	if u.SchedulingOptions != nil {
		s.SchedulingOptions = u.SchedulingOptions
	}
	if u.ExecutionResult != nil {
		s.ExecutionResult = *u.ExecutionResult
	}
	if u.ErrorMessage != nil {
		s.ErrorMessage = *u.ErrorMessage
	}
	return s
}

// ptr returns a pointer to v, for building Updates.
func ptr[T any](v T) *T { return &v }
