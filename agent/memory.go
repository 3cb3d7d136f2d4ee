package agent

import (
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

// Memory defaults.
const (
	defaultWindowSize = 10
	defaultMemoryKey  = "chatHistory"
)

// memorySettings configures the agent's conversation window.
type memorySettings struct {
	enabled    bool
	windowSize int
	memoryKey  string
}

// memoryFromNode reads {windowSize, memoryKey} off the memory sub-node.
func memoryFromNode(node *graph.Node) memorySettings {
	if node == nil {
		return memorySettings{}
	}
	s := memorySettings{
		enabled:    true,
		windowSize: defaultWindowSize,
		memoryKey:  defaultMemoryKey,
	}
	if v, ok := node.Data["windowSize"].(float64); ok && v > 0 {
		s.windowSize = int(v)
	}
	if v, ok := node.Data["windowSize"].(int); ok && v > 0 {
		s.windowSize = v
	}
	if v, ok := node.Data["memoryKey"].(string); ok && v != "" {
		s.memoryKey = v
	}
	return s
}

// load reads the conversation history from the run context and returns the
// last windowSize turns as prior messages.
func (s memorySettings) load(ctx map[string]any) []types.Message {
	if !s.enabled {
		return nil
	}
	raw, ok := ctx[s.memoryKey].([]any)
	if !ok {
		return nil
	}

	history := make([]types.Message, 0, len(raw))
	for _, item := range raw {
		turn, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := turn["role"].(string)
		content, _ := turn["content"].(string)
		if role == "" {
			continue
		}
		history = append(history, types.Message{Role: types.Role(role), Content: content})
	}

	if len(history) > s.windowSize {
		history = history[len(history)-s.windowSize:]
	}
	return history
}

// appendTurns appends the new user prompt and assistant answer to the full
// stored history and truncates to 2× the window size, returning the tree
// written back under memoryKey.
func (s memorySettings) appendTurns(ctx map[string]any, userPrompt, answer string) []any {
	var stored []any
	if raw, ok := ctx[s.memoryKey].([]any); ok {
		stored = append(stored, raw...)
	}
	stored = append(stored,
		map[string]any{"role": string(types.RoleUser), "content": userPrompt},
		map[string]any{"role": string(types.RoleAssistant), "content": answer},
	)

	limit := 2 * s.windowSize
	if len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}
	return stored
}
