package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskweave/taskweave/pkg/planner/llm"
	"github.com/taskweave/taskweave/pkg/planner/prompt"
)

// defaultDurationMinutes is used when the analysis response cannot be
// parsed. The pipeline always advances with a usable estimate.
const defaultDurationMinutes = 30

// analysisReply is the JSON shape expected from the analysis completion.
type analysisReply struct {
	EstimatedDurationMinutes int      `json:"estimated_duration_minutes"`
	SuggestedTags            []string `json:"suggested_tags"`
	Reasoning                string   `json:"reasoning"`
}

// Analyze estimates the task duration and suggests tags. It owns
// estimated_duration_minutes, suggested_tags and ai_reasoning, and never
// fails: any render, generation or parse problem degrades to defaults with
// the failure reason recorded in the reasoning field.
func (st *Stages) Analyze(ctx context.Context, state State) Update {
	p, err := st.renderer.Render(prompt.TaskAnalysis, map[string]any{
		"title":         state.Title,
		"description":   state.Description,
		"context_notes": state.ContextNotes,
		"priority":      state.Priority,
	})
	if err != nil {
		return analysisFallback(fmt.Sprintf("Analysis unavailable: %v", err))
	}

	resp, err := st.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: p.System,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: p.User}},
	})
	if err != nil {
		return analysisFallback(fmt.Sprintf("Analysis unavailable: %v", err))
	}

	var reply analysisReply
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &reply); err != nil {
		return analysisFallback(fmt.Sprintf("Could not parse analysis response: %v", err))
	}

	if reply.EstimatedDurationMinutes <= 0 {
		reply.EstimatedDurationMinutes = defaultDurationMinutes
	}
	if reply.SuggestedTags == nil {
		reply.SuggestedTags = []string{}
	}
	if reply.Reasoning == "" {
		reply.Reasoning = "No reasoning provided"
	}

	return Update{
		EstimatedDurationMinutes: ptr(reply.EstimatedDurationMinutes),
		SuggestedTags:            reply.SuggestedTags,
		AIReasoning:              ptr(reply.Reasoning),
	}
}

// analysisFallback builds the degraded analysis update: a usable duration,
// empty tags and a reasoning string naming the failure.
func analysisFallback(reason string) Update {
	return Update{
		EstimatedDurationMinutes: ptr(defaultDurationMinutes),
		SuggestedTags:            []string{},
		AIReasoning:              ptr(reason),
	}
}

// stripCodeFence removes an optional markdown code-fence wrapper from a
// generation reply. Backends wrap JSON in ```json ... ``` often enough
// that parsing the raw content directly would fail spuriously.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line, e.g. "json".
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
