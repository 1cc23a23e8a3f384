package planner_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskweave/taskweave/pkg/planner"
	"github.com/taskweave/taskweave/pkg/planner/llm"
	"github.com/taskweave/taskweave/pkg/planner/prompt"
)

// cannedClient returns a fixed reply and records the last request.
type cannedClient struct {
	reply   string
	lastReq llm.CompletionRequest
}

func (c *cannedClient) Name() string { return "canned" }

func (c *cannedClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.lastReq = req
	return &llm.CompletionResponse{Content: c.reply, Model: "canned"}, nil
}

// recordingBooker records booking calls.
type recordingBooker struct {
	calls []planner.BookingRequest
}

func (b *recordingBooker) Book(_ context.Context, req planner.BookingRequest) (string, error) {
	b.calls = append(b.calls, req)
	return fmt.Sprintf("Confirmed: %s from %s to %s", req.Title, req.StartTime, req.EndTime), nil
}

func newRenderer(t *testing.T) *prompt.Renderer {
	t.Helper()
	r, err := prompt.NewDefaultRenderer()
	require.NoError(t, err)
	return r
}

func stubStages(t *testing.T, opts ...planner.StagesOption) *planner.Stages {
	t.Helper()
	return planner.NewStages(llm.NewStub(), newRenderer(t), opts...)
}

func taskState() planner.State {
	return planner.State{
		TaskID:   "task-1",
		UserID:   "user-1",
		Title:    "Write Docs",
		Priority: "high",
	}
}

func TestAnalyze_Stub(t *testing.T) {
	st := stubStages(t)

	update := st.Analyze(context.Background(), taskState())

	require.NotNil(t, update.EstimatedDurationMinutes)
	assert.Equal(t, 60, *update.EstimatedDurationMinutes)
	assert.Equal(t, []string{"work", "analysis"}, update.SuggestedTags)
	require.NotNil(t, update.AIReasoning)
	assert.NotEmpty(t, *update.AIReasoning)
}

func TestAnalyze_StripsCodeFence(t *testing.T) {
	client := &cannedClient{reply: "```json\n{\"estimated_duration_minutes\": 45, \"suggested_tags\": [\"docs\"], \"reasoning\": \"short task\"}\n```"}
	st := planner.NewStages(client, newRenderer(t))

	update := st.Analyze(context.Background(), taskState())

	require.NotNil(t, update.EstimatedDurationMinutes)
	assert.Equal(t, 45, *update.EstimatedDurationMinutes)
	assert.Equal(t, []string{"docs"}, update.SuggestedTags)
}

func TestAnalyze_ParseFailureDefaults(t *testing.T) {
	client := &cannedClient{reply: "I think this will take about an hour."}
	st := planner.NewStages(client, newRenderer(t))

	update := st.Analyze(context.Background(), taskState())

	require.NotNil(t, update.EstimatedDurationMinutes)
	assert.Equal(t, 30, *update.EstimatedDurationMinutes)
	assert.NotNil(t, update.SuggestedTags)
	assert.Empty(t, update.SuggestedTags)
	require.NotNil(t, update.AIReasoning)
	assert.Contains(t, *update.AIReasoning, "Could not parse")
}

func TestSchedule_StubThreeOptions(t *testing.T) {
	st := stubStages(t)

	state := taskState()
	state.EstimatedDurationMinutes = 60
	update := st.Schedule(context.Background(), state)

	require.Len(t, update.SchedulingOptions, 3)
	seen := map[string]bool{}
	for i, opt := range update.SchedulingOptions {
		assert.Equal(t, i+1, opt.OptionNumber)
		assert.Less(t, opt.StartTime, opt.EndTime)
		assert.NotEmpty(t, opt.ID)
		assert.False(t, seen[opt.ID], "option ids must be unique")
		seen[opt.ID] = true
	}
}

func TestSchedule_RenderedPromptSelectsSchedulingReply(t *testing.T) {
	p, err := newRenderer(t).Render(prompt.Scheduling, map[string]any{
		"title":            "Write Docs",
		"duration_minutes": 60,
		"priority":         "high",
		"deadline":         "No deadline",
		"context_notes":    "",
		"calendar_summary": "No upcoming events",
		"work_hours":       "09:00-17:00",
		"focus_preference": "morning",
	})
	require.NoError(t, err)

	resp, err := llm.NewStub().Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: p.System,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: p.User}},
	})
	require.NoError(t, err)

	// The rendered scheduling prompt must not read as an analysis request.
	assert.Contains(t, resp.Content, `"options"`)
	assert.NotContains(t, resp.Content, "estimated_duration_minutes")
}

func TestSchedule_RenumbersReplyOptions(t *testing.T) {
	client := &cannedClient{reply: `{"options": [
		{"option_number": 7, "start_time": "2026-03-10T10:00:00Z", "end_time": "2026-03-10T11:00:00Z", "reasoning": "first"},
		{"option_number": 7, "start_time": "2026-03-11T10:00:00Z", "end_time": "2026-03-11T11:00:00Z", "reasoning": "second"}
	]}`}
	st := planner.NewStages(client, newRenderer(t))

	update := st.Schedule(context.Background(), taskState())

	require.Len(t, update.SchedulingOptions, 2)
	assert.Equal(t, 1, update.SchedulingOptions[0].OptionNumber)
	assert.Equal(t, 2, update.SchedulingOptions[1].OptionNumber)
	assert.Equal(t, "first", update.SchedulingOptions[0].Reasoning)
	assert.Equal(t, "second", update.SchedulingOptions[1].Reasoning)
}

func TestSchedule_EmptyOptionsFallback(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	client := &cannedClient{reply: `{"options": []}`}
	st := planner.NewStages(client, newRenderer(t),
		planner.WithClock(func() time.Time { return now }))

	update := st.Schedule(context.Background(), taskState())

	require.Len(t, update.SchedulingOptions, 1)
	opt := update.SchedulingOptions[0]
	assert.Equal(t, 1, opt.OptionNumber)
	assert.Equal(t, "2026-03-10T10:00:00Z", opt.StartTime)
	assert.Equal(t, "2026-03-10T11:00:00Z", opt.EndTime)
	assert.Contains(t, opt.Reasoning, "Fallback slot")
}

func TestSchedule_ParseFailureFallback(t *testing.T) {
	client := &cannedClient{reply: "no availability this week"}
	st := planner.NewStages(client, newRenderer(t))

	update := st.Schedule(context.Background(), taskState())

	require.Len(t, update.SchedulingOptions, 1)
	assert.Contains(t, update.SchedulingOptions[0].Reasoning, "could not parse")
}

func TestSchedule_CalendarSummaryEmpty(t *testing.T) {
	client := &cannedClient{reply: `{"options": []}`}
	st := planner.NewStages(client, newRenderer(t))

	st.Schedule(context.Background(), taskState())

	require.Len(t, client.lastReq.Messages, 1)
	assert.Contains(t, client.lastReq.Messages[0].Content, "No upcoming events")
}

func TestSchedule_CalendarSummaryCapped(t *testing.T) {
	client := &cannedClient{reply: `{"options": []}`}
	st := planner.NewStages(client, newRenderer(t))

	state := taskState()
	for i := 0; i < 15; i++ {
		state.CalendarEvents = append(state.CalendarEvents, planner.CalendarEvent{
			Title:     fmt.Sprintf("Event %02d", i),
			StartTime: "2026-03-10T09:00:00Z",
			EndTime:   "2026-03-10T10:00:00Z",
		})
	}

	st.Schedule(context.Background(), state)

	require.Len(t, client.lastReq.Messages, 1)
	user := client.lastReq.Messages[0].Content
	assert.Contains(t, user, "Event 00")
	assert.Contains(t, user, "Event 09")
	assert.NotContains(t, user, "Event 10")
	assert.Contains(t, user, "2026-03-10T09:00:00Z to 2026-03-10T10:00:00Z: Event 00")
}

func TestSchedule_DefaultsForUnsetFields(t *testing.T) {
	client := &cannedClient{reply: `{"options": []}`}
	st := planner.NewStages(client, newRenderer(t))

	// No analysis ran, no deadline set.
	st.Schedule(context.Background(), taskState())

	user := client.lastReq.Messages[0].Content
	assert.Contains(t, user, "30 minutes")
	assert.Contains(t, user, "No deadline")
}

func TestExecute_NoSelection(t *testing.T) {
	booker := &recordingBooker{}
	st := stubStages(t, planner.WithBooker(booker))

	state := taskState()
	state.SchedulingOptions = []planner.PlanOption{{ID: "opt-a", OptionNumber: 1}}

	update := st.Execute(context.Background(), state)

	require.NotNil(t, update.ErrorMessage)
	assert.Equal(t, "No option selected for execution", *update.ErrorMessage)
	assert.Nil(t, update.ExecutionResult)
	assert.Empty(t, booker.calls, "booking must not be invoked without a selection")
}

func TestExecute_SelectionByID(t *testing.T) {
	booker := &recordingBooker{}
	st := stubStages(t, planner.WithBooker(booker))

	state := taskState()
	state.SchedulingOptions = []planner.PlanOption{
		{ID: "opt-a", OptionNumber: 1, StartTime: "2026-03-10T10:00:00Z", EndTime: "2026-03-10T11:00:00Z"},
		{ID: "opt-b", OptionNumber: 2, StartTime: "2026-03-11T10:00:00Z", EndTime: "2026-03-11T11:00:00Z"},
	}
	state.SelectedOptionID = "opt-b"

	update := st.Execute(context.Background(), state)

	require.NotNil(t, update.ExecutionResult)
	assert.Equal(t, "Confirmed: Write Docs from 2026-03-11T10:00:00Z to 2026-03-11T11:00:00Z", *update.ExecutionResult)
	require.Len(t, booker.calls, 1)
	assert.Contains(t, booker.calls[0].Description, "user-1")
}

func TestExecute_SelectionByOptionNumber(t *testing.T) {
	booker := &recordingBooker{}
	st := stubStages(t, planner.WithBooker(booker))

	state := taskState()
	state.SchedulingOptions = []planner.PlanOption{
		{ID: "opt-a", OptionNumber: 1, StartTime: "2026-03-10T10:00:00Z", EndTime: "2026-03-10T11:00:00Z"},
		{ID: "opt-b", OptionNumber: 2, StartTime: "2026-03-11T10:00:00Z", EndTime: "2026-03-11T11:00:00Z"},
	}
	state.SelectedOptionID = "1"

	update := st.Execute(context.Background(), state)

	require.NotNil(t, update.ExecutionResult)
	assert.Contains(t, *update.ExecutionResult, "2026-03-10T10:00:00Z")
	require.Len(t, booker.calls, 1)
}

func TestExecute_OptionNotFound(t *testing.T) {
	booker := &recordingBooker{}
	st := stubStages(t, planner.WithBooker(booker))

	state := taskState()
	state.SchedulingOptions = []planner.PlanOption{{ID: "opt-a", OptionNumber: 1}}
	state.SelectedOptionID = "99"

	update := st.Execute(context.Background(), state)

	require.NotNil(t, update.ExecutionResult)
	assert.Equal(t, "Failed: Option not found", *update.ExecutionResult)
	assert.Empty(t, booker.calls)
}

func TestExecute_BookingFailure(t *testing.T) {
	st := stubStages(t, planner.WithBooker(failingBooker{}))

	state := taskState()
	state.SchedulingOptions = []planner.PlanOption{{ID: "opt-a", OptionNumber: 1}}
	state.SelectedOptionID = "opt-a"

	update := st.Execute(context.Background(), state)

	require.NotNil(t, update.ExecutionResult)
	assert.Contains(t, *update.ExecutionResult, "Failed:")
	require.NotNil(t, update.ErrorMessage)
	assert.Contains(t, *update.ErrorMessage, "calendar unavailable")
}

type failingBooker struct{}

func (failingBooker) Book(context.Context, planner.BookingRequest) (string, error) {
	return "", fmt.Errorf("calendar unavailable")
}

func TestConfirmBooker(t *testing.T) {
	result, err := planner.ConfirmBooker{}.Book(context.Background(), planner.BookingRequest{
		Title:     "Write Docs",
		StartTime: "2026-03-10T10:00:00Z",
		EndTime:   "2026-03-10T11:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "Confirmed: Write Docs from 2026-03-10T10:00:00Z to 2026-03-10T11:00:00Z", result)
}
