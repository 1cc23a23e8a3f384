package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskweave/taskweave/pkg/planner/llm"
	"github.com/taskweave/taskweave/pkg/planner/prompt"
)

// maxCalendarEvents caps how many events are summarized into the
// scheduling prompt.
const maxCalendarEvents = 10

// Fixed preferences rendered into the scheduling prompt. Real preference
// storage is out of scope; these mirror a typical default profile.
const (
	defaultWorkHours       = "09:00-17:00"
	defaultFocusPreference = "morning"
)

// schedulingReply is the JSON shape expected from the scheduling
// completion.
type schedulingReply struct {
	Options []struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Reasoning string `json:"reasoning"`
		Impact    string `json:"impact"`
	} `json:"options"`
}

// Schedule proposes candidate time slots for the task. It owns
// scheduling_options and always produces at least one option: if the
// generation reply cannot be parsed or contains no options, a single
// synthetic slot one hour out is returned so the decision point always has
// something to decide among.
func (st *Stages) Schedule(ctx context.Context, state State) Update {
	duration := state.EstimatedDurationMinutes
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	deadline := state.Deadline
	if deadline == "" {
		deadline = "No deadline"
	}

	p, err := st.renderer.Render(prompt.Scheduling, map[string]any{
		"title":            state.Title,
		"duration_minutes": duration,
		"priority":         state.Priority,
		"deadline":         deadline,
		"context_notes":    state.ContextNotes,
		"calendar_summary": summarizeCalendar(state.CalendarEvents),
		"work_hours":       defaultWorkHours,
		"focus_preference": defaultFocusPreference,
	})
	if err != nil {
		return st.scheduleFallback(fmt.Sprintf("scheduling prompt failed: %v", err))
	}

	resp, err := st.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: p.System,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: p.User}},
	})
	if err != nil {
		return st.scheduleFallback(fmt.Sprintf("generation failed: %v", err))
	}

	var reply schedulingReply
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &reply); err != nil {
		return st.scheduleFallback(fmt.Sprintf("could not parse scheduling response: %v", err))
	}
	if len(reply.Options) == 0 {
		return st.scheduleFallback("no options in scheduling response")
	}

	// Option numbers come from presentation order. Reply-supplied numbers
	// are ignored: a backend that repeats or skips numbers would make
	// number-based selection ambiguous.
	options := make([]PlanOption, 0, len(reply.Options))
	for i, o := range reply.Options {
		options = append(options, PlanOption{
			ID:           uuid.NewString(),
			OptionNumber: i + 1,
			StartTime:    o.StartTime,
			EndTime:      o.EndTime,
			Reasoning:    o.Reasoning,
			Impact:       o.Impact,
		})
	}

	return Update{SchedulingOptions: options}
}

// scheduleFallback synthesizes the single fallback slot: one hour from
// now, one hour long, with the failure cause in the reasoning.
func (st *Stages) scheduleFallback(cause string) Update {
	start := st.now().Add(time.Hour).Truncate(time.Minute)
	end := start.Add(time.Hour)
	return Update{SchedulingOptions: []PlanOption{{
		ID:           uuid.NewString(),
		OptionNumber: 1,
		StartTime:    start.UTC().Format(time.RFC3339),
		EndTime:      end.UTC().Format(time.RFC3339),
		Reasoning:    "Fallback slot (" + cause + ")",
	}}}
}

// summarizeCalendar formats up to the first 10 events as one line each.
func summarizeCalendar(events []CalendarEvent) string {
	if len(events) == 0 {
		return "No upcoming events"
	}
	if len(events) > maxCalendarEvents {
		events = events[:maxCalendarEvents]
	}
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("%s to %s: %s", ev.StartTime, ev.EndTime, ev.Title))
	}
	return strings.Join(lines, "\n")
}
