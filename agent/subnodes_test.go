package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid-io/flowgrid/graph"
)

func TestDiscoverSubNodes(t *testing.T) {
	wf := &graph.Workflow{
		ID: "wf",
		Nodes: []graph.Node{
			{ID: "agent", Kind: graph.KindAIAgent},
			{ID: "model", Kind: graph.KindChatModel},
			{ID: "mem", Kind: graph.KindMemory},
			{ID: "calc", Kind: graph.KindCalculator},
			{ID: "scrape", Kind: graph.KindWebScraper},
			{ID: "upstream", Kind: graph.KindManualTrigger},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNodeID: "upstream", ToNodeID: "agent", ToInput: "main"},
			{ID: "c2", FromNodeID: "model", ToNodeID: "agent", ToInput: "chat-model-target"},
			{ID: "c3", FromNodeID: "mem", ToNodeID: "agent", ToInput: "memory-target"},
			{ID: "c4", FromNodeID: "calc", ToNodeID: "agent", ToInput: "tool-target"},
			{ID: "c5", FromNodeID: "scrape", ToNodeID: "agent", ToInput: "tool-target"},
		},
	}

	sub := discoverSubNodes(wf, "agent")
	require.NotNil(t, sub.chatModel)
	assert.Equal(t, "model", sub.chatModel.ID)
	require.NotNil(t, sub.memory)
	assert.Equal(t, "mem", sub.memory.ID)
	require.Len(t, sub.tools, 2)
	assert.ElementsMatch(t, []string{"model", "mem", "calc", "scrape"}, sub.ids())
}

func TestDiscoverSubNodesIgnoresMainEdgesAndMissingNodes(t *testing.T) {
	wf := &graph.Workflow{
		ID: "wf",
		Nodes: []graph.Node{
			{ID: "agent", Kind: graph.KindAIAgent},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNodeID: "ghost", ToNodeID: "agent", ToInput: "tool-target"},
			{ID: "c2", FromNodeID: "ghost2", ToNodeID: "agent", ToInput: "main"},
		},
	}
	sub := discoverSubNodes(wf, "agent")
	assert.Nil(t, sub.chatModel)
	assert.Nil(t, sub.memory)
	assert.Empty(t, sub.tools)
}

func TestDiscoverSubNodesFirstModelWins(t *testing.T) {
	wf := &graph.Workflow{
		ID: "wf",
		Nodes: []graph.Node{
			{ID: "agent", Kind: graph.KindAIAgent},
			{ID: "m1", Kind: graph.KindChatModel},
			{ID: "m2", Kind: graph.KindChatModel},
		},
		Connections: []graph.Connection{
			{ID: "c1", FromNodeID: "m1", ToNodeID: "agent", ToInput: "chat-model-target"},
			{ID: "c2", FromNodeID: "m2", ToNodeID: "agent", ToInput: "chat-model-target"},
		},
	}
	sub := discoverSubNodes(wf, "agent")
	require.NotNil(t, sub.chatModel)
	assert.Equal(t, "m1", sub.chatModel.ID)
}
