package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama implements Client using the Ollama chat API.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaOption configures Ollama.
type OllamaOption func(*Ollama)

// NewOllama creates an Ollama client.
// Defaults: base URL http://localhost:11434, model llama3, 2 minute timeout.
func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL: "http://localhost:11434",
		model:   "llama3",
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBaseURL sets the Ollama server base URL.
func WithBaseURL(url string) OllamaOption {
	return func(o *Ollama) { o.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) OllamaOption {
	return func(o *Ollama) { o.model = model }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) OllamaOption {
	return func(o *Ollama) { o.client = client }
}

// Name implements Client.
func (o *Ollama) Name() string { return "ollama" }

// chatRequest is the Ollama /api/chat request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

// chatResponse is the Ollama /api/chat response body (non-streaming).
type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Complete implements Client.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := o.model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: string(RoleSystem), Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  chatOptions{Temperature: req.Temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", httpResp.StatusCode, respBody)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", resp.Error)
	}

	return &CompletionResponse{
		Content:  resp.Message.Content,
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}
