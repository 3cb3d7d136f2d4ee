package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPort(t *testing.T) {
	tests := []struct {
		toInput string
		want    PortLabel
	}{
		{"", PortMain},
		{"main", PortMain},
		{"target-1", PortMain},
		{"chat-model-target", PortChatModel},
		{"memory-target", PortMemory},
		{"tool-target", PortTool},
		{"mystery-handle", PortOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPort(tt.toInput), tt.toInput)
	}
}

func TestIsTrigger(t *testing.T) {
	for _, kind := range []NodeKind{KindInitial, KindManualTrigger, KindGoogleFormTrigger, KindStripeTrigger} {
		assert.True(t, kind.IsTrigger(), string(kind))
	}
	for _, kind := range []NodeKind{KindHTTPRequest, KindAIAgent, KindChatModel, KindCalculator} {
		assert.False(t, kind.IsTrigger(), string(kind))
	}
}

func TestSubConnections(t *testing.T) {
	wf := &Workflow{
		Nodes: []Node{
			{ID: "agent", Kind: KindAIAgent},
			{ID: "model", Kind: KindChatModel},
			{ID: "up", Kind: KindManualTrigger},
		},
		Connections: []Connection{
			{ID: "c1", FromNodeID: "up", ToNodeID: "agent", ToInput: "main"},
			{ID: "c2", FromNodeID: "model", ToNodeID: "agent", ToInput: "chat-model-target"},
			{ID: "c3", FromNodeID: "model", ToNodeID: "other", ToInput: "tool-target"},
		},
	}

	subs := wf.SubConnections("agent")
	require.Len(t, subs, 1)
	assert.Equal(t, "c2", subs[0].ID)

	node, ok := wf.NodeByID("model")
	require.True(t, ok)
	assert.Equal(t, KindChatModel, node.Kind)
	_, ok = wf.NodeByID("ghost")
	assert.False(t, ok)
}
