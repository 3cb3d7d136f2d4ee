package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/types"
)

func TestResolveProvider(t *testing.T) {
	assert.Equal(t, ProviderOpenAI, ResolveProvider("openai"))
	assert.Equal(t, ProviderAnthropic, ResolveProvider("anthropic"))
	assert.Equal(t, ProviderGemini, ResolveProvider("gemini"))
	assert.Equal(t, ProviderGemini, ResolveProvider("mystery"), "unknown providers fall back to gemini")
	assert.Equal(t, ProviderGemini, ResolveProvider(""))
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", DefaultModel("gemini"))
	assert.Equal(t, "gpt-4o", DefaultModel("openai"))
	assert.Equal(t, "claude-sonnet-4-5", DefaultModel("anthropic"))
	assert.Equal(t, "gemini-2.0-flash", DefaultModel("mystery"))
}

func TestOpenAICompletion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "calculator", "arguments": "{\"expression\":\"1+1\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", Options{BaseURL: srv.URL}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &ChatRequest{
		Model:    "gpt-4o",
		System:   "be terse",
		Messages: []types.Message{types.NewUserMessage("hi")},
		Tools: []types.ToolSchema{{
			Name:       "calculator",
			Parameters: json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

	choice, ok := resp.FirstChoice()
	require.True(t, ok)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "calculator", choice.Message.ToolCalls[0].Name)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", Options{BaseURL: srv.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &ChatRequest{Model: "gpt-4o"})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err), "5xx is retryable")
	assert.Contains(t, err.Error(), "boom")
}

func TestAnthropicCompletion(t *testing.T) {
	var gotKey, gotVersion string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"model": "claude-sonnet-4-5",
			"role": "assistant",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "web_scraper", "input": {"url": "https://x"}}
			],
			"usage": {"input_tokens": 7, "output_tokens": 3}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("sk-ant", Options{BaseURL: srv.URL}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &ChatRequest{
		Model:  "claude-sonnet-4-5",
		System: "be helpful",
		Messages: []types.Message{
			types.NewUserMessage("fetch it"),
			types.NewToolMessage("toolu_0", "web_scraper", "previous result"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "be helpful", gotBody["system"])
	assert.NotNil(t, gotBody["max_tokens"], "messages API requires max_tokens")

	choice, ok := resp.FirstChoice()
	require.True(t, ok)
	assert.Equal(t, "Let me check.", choice.Message.Content)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "web_scraper", choice.Message.ToolCalls[0].Name)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestGeminiCompletion(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{
				"content": {
					"role": "model",
					"parts": [{"functionCall": {"name": "calculator", "args": {"expression": "sqrt(144)"}}}]
				},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 2, "totalTokenCount": 6}
		}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("g-key", Options{BaseURL: srv.URL}, zap.NewNop())
	resp, err := p.Completion(context.Background(), &ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: []types.Message{types.NewUserMessage("what is sqrt(144)?")},
		Tools: []types.ToolSchema{{
			Name:       "calculator",
			Parameters: json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "g-key", gotKey)
	assert.Contains(t, gotBody, "tools")

	choice, ok := resp.FirstChoice()
	require.True(t, ok)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "calculator", choice.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"expression":"sqrt(144)"}`, string(choice.Message.ToolCalls[0].Arguments))
}
