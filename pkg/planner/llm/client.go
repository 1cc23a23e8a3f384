// Package llm provides the generation adapter: a uniform completion
// contract over a live text-generation backend (Ollama) and a
// deterministic stub usable with zero external dependencies.
package llm

import (
	"context"
	"time"
)

// Client is the uniform invoke contract for text generation.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends the rendered prompt to the backend and returns the
	// generated text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name identifies the backend for logging and metrics.
	Name() string
}

// CompletionRequest configures a completion call.
type CompletionRequest struct {
	// Prompt configuration
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	// Model configuration
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CompletionResponse is the output of a completion call.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// promptText flattens the request into a single text blob.
// The stub inspects this to pick its canned reply.
func promptText(req CompletionRequest) string {
	text := req.SystemPrompt
	for _, msg := range req.Messages {
		text += "\n" + msg.Content
	}
	return text
}
