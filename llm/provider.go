// Package llm adapts the chat-completion providers the engine can call.
// Each provider is a thin HTTP client translating the unified request shape
// onto the provider's wire format; tool execution happens in the caller.
package llm

import (
	"context"
	"time"

	"github.com/flowgrid-io/flowgrid/types"
)

// ChatRequest is the unified chat-completion request.
type ChatRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []types.Message    `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
	Tools       []types.ToolSchema `json:"tools,omitempty"`
}

// ChatUsage reports token consumption.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Message      types.Message `json:"message"`
}

// ChatResponse is the unified chat-completion response.
type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// FirstChoice returns the first choice, if any.
func (r *ChatResponse) FirstChoice() (ChatChoice, bool) {
	if len(r.Choices) == 0 {
		return ChatChoice{}, false
	}
	return r.Choices[0], true
}

// Provider is a chat-completion backend. Tool calls come back in the
// response message; the caller resolves them and re-invokes Completion.
type Provider interface {
	// Completion issues one synchronous chat request.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider's identifier.
	Name() string
}
