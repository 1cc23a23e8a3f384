package llm

import (
	"context"
	"strings"
	"time"
)

// Stub is a deterministic Client for running without a live backend.
// It inspects the prompt text and returns a fixed, valid JSON payload:
// analysis requests (mentioning "estimated duration") get a 60-minute
// estimate, scheduling requests (mentioning "scheduling options" or
// "scheduler") get three time-slot options, anything else gets a minimal
// JSON object. Responses are stable across calls, which makes the whole
// pipeline testable offline.
type Stub struct{}

// NewStub creates a deterministic stub client.
func NewStub() *Stub {
	return &Stub{}
}

// Name implements Client.
func (s *Stub) Name() string { return "stub" }

const stubAnalysisJSON = `{
  "estimated_duration_minutes": 60,
  "suggested_tags": ["work", "analysis"],
  "reasoning": "Based on task complexity, estimated 60 minutes (stub analysis)"
}`

const stubSchedulingJSON = `{
  "options": [
    {
      "option_number": 1,
      "start_time": "2026-01-22T10:00:00Z",
      "end_time": "2026-01-22T11:00:00Z",
      "reasoning": "Next available slot",
      "impact": "None"
    },
    {
      "option_number": 2,
      "start_time": "2026-01-23T09:00:00Z",
      "end_time": "2026-01-23T10:00:00Z",
      "reasoning": "Morning focus time",
      "impact": "None"
    },
    {
      "option_number": 3,
      "start_time": "2026-01-23T14:00:00Z",
      "end_time": "2026-01-23T15:00:00Z",
      "reasoning": "Afternoon slot",
      "impact": "None"
    }
  ]
}`

// Complete implements Client.
func (s *Stub) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	prompt := strings.ToLower(promptText(req))

	var content string
	switch {
	case strings.Contains(prompt, "estimated duration"):
		content = stubAnalysisJSON
	case strings.Contains(prompt, "scheduling options"), strings.Contains(prompt, "scheduler"):
		content = stubSchedulingJSON
	default:
		content = `{"reasoning": "stub response"}`
	}

	return &CompletionResponse{
		Content:  content,
		Model:    "stub",
		Duration: time.Since(start),
	}, nil
}
