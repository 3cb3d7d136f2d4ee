// Package llmtest provides a scripted Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/flowgrid-io/flowgrid/llm"
	"github.com/flowgrid-io/flowgrid/types"
)

// ScriptedProvider returns pre-canned responses in order and records every
// request it receives. When the script runs out, the last response repeats.
type ScriptedProvider struct {
	mu        sync.Mutex
	name      string
	responses []*llm.ChatResponse
	Requests  []*llm.ChatRequest
	Err       error
}

// New creates a scripted provider with the given responses.
func New(name string, responses ...*llm.ChatResponse) *ScriptedProvider {
	return &ScriptedProvider{name: name, responses: responses}
}

// TextResponse builds a plain assistant text response.
func TextResponse(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      types.Message{Role: types.RoleAssistant, Content: text},
		}},
	}
}

// ToolCallResponse builds a response that invokes one tool.
func ToolCallResponse(callID, name, arguments string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{
			FinishReason: "tool_calls",
			Message: types.Message{
				Role: types.RoleAssistant,
				ToolCalls: []types.ToolCall{{
					ID:        callID,
					Name:      name,
					Arguments: []byte(arguments),
				}},
			},
		}},
	}
}

// Completion implements llm.Provider.
func (p *ScriptedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}

	// Snapshot the request so later mutation by the caller cannot rewrite
	// what the test observed.
	snapshot := *req
	snapshot.Messages = append([]types.Message(nil), req.Messages...)
	snapshot.Tools = append([]types.ToolSchema(nil), req.Tools...)
	p.Requests = append(p.Requests, &snapshot)

	idx := len(p.Requests) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return TextResponse(""), nil
	}
	return p.responses[idx], nil
}

// Name implements llm.Provider.
func (p *ScriptedProvider) Name() string {
	if p.name == "" {
		return "scripted"
	}
	return p.name
}

// Calls returns how many completions were requested.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}
