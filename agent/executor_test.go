package agent

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flowgrid-io/flowgrid/channel"
	"github.com/flowgrid-io/flowgrid/credentials"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/llm"
	"github.com/flowgrid-io/flowgrid/llm/llmtest"
	"github.com/flowgrid-io/flowgrid/store"
	"github.com/flowgrid-io/flowgrid/types"
)

const vaultKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type agentFixture struct {
	workflow *graph.Workflow
	creds    *credentials.Store
	store    *store.Store
	credID   string
}

// newAgentFixture builds an org, a credential, and a workflow holding an
// agent node wired to a gemini chat-model sub-node.
func newAgentFixture(t *testing.T, agentData map[string]any, extraNodes []graph.Node, extraConns []graph.Connection) *agentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	backing := store.NewStore(db, nil)
	require.NoError(t, backing.AutoMigrate())
	require.NoError(t, db.Create(&store.Organization{ID: "org-1", Name: "one"}).Error)

	vault, err := credentials.NewVault(vaultKey)
	require.NoError(t, err)
	creds := credentials.NewStore(backing, vault, nil)

	credID := uuid.NewString()
	require.NoError(t, creds.Save(context.Background(),
		&store.Credential{ID: credID, OrgID: "org-1", Kind: "GEMINI", Name: "key"}, "g-key"))

	if agentData == nil {
		agentData = map[string]any{}
	}
	if _, ok := agentData["userPrompt"]; !ok {
		agentData["userPrompt"] = "hello"
	}
	if _, ok := agentData["variableName"]; !ok {
		agentData["variableName"] = "agent"
	}

	wf := &graph.Workflow{
		ID:    "wf-1",
		OrgID: "org-1",
		Nodes: []graph.Node{
			{ID: "agent-1", Kind: graph.KindAIAgent, Data: agentData},
			{ID: "model-1", Kind: graph.KindChatModel,
				Data:         map[string]any{"provider": "gemini"},
				CredentialID: credID},
		},
		Connections: []graph.Connection{
			{ID: "c-model", FromNodeID: "model-1", ToNodeID: "agent-1", ToInput: "chat-model-target"},
		},
	}
	wf.Nodes = append(wf.Nodes, extraNodes...)
	wf.Connections = append(wf.Connections, extraConns...)

	return &agentFixture{workflow: wf, creds: creds, store: backing, credID: credID}
}

func (f *agentFixture) execute(t *testing.T, provider llm.Provider, initial engine.RunContext, bus channel.Publisher) (engine.RunContext, error) {
	t.Helper()
	executor := NewExecutor(Deps{
		Credentials: f.creds,
		Store:       f.store,
		Providers:   func(name, key string) llm.Provider { return provider },
	})

	agentNode, ok := f.workflow.NodeByID("agent-1")
	require.True(t, ok)

	if initial == nil {
		initial = engine.RunContext{}
	}
	return executor.Execute(context.Background(), &engine.ExecutionInput{
		RunID:    "run-1",
		OrgID:    "org-1",
		Node:     agentNode,
		Workflow: f.workflow,
		Context:  initial,
		Step:     durable.NewMemoStore(nil).ForRun("run-1"),
		Publish:  bus,
	})
}

func TestAgentSingleShotNoTools(t *testing.T) {
	f := newAgentFixture(t, map[string]any{"maxIterations": float64(1)}, nil, nil)
	provider := llmtest.New("gemini", llmtest.TextResponse("hi there"))

	out, err := f.execute(t, provider, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls(), "exactly one LLM call")
	result := out["agent"].(map[string]any)
	assert.Equal(t, "hi there", result["agentResponse"])
	assert.Equal(t, 0, result["toolCallCount"])
}

func TestAgentCalculatorLoop(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"userPrompt": "what is sqrt(144) + 3?", "maxIterations": float64(3)},
		[]graph.Node{{ID: "calc-1", Kind: graph.KindCalculator, Data: map[string]any{}}},
		[]graph.Connection{{ID: "c-calc", FromNodeID: "calc-1", ToNodeID: "agent-1", ToInput: "tool-target"}},
	)

	provider := llmtest.New("gemini",
		llmtest.ToolCallResponse("call-1", "calculator", `{"expression":"sqrt(144) + 3"}`),
		llmtest.TextResponse("The answer is 15."),
	)

	out, err := f.execute(t, provider, nil, nil)
	require.NoError(t, err)

	result := out["agent"].(map[string]any)
	assert.Contains(t, result["agentResponse"], "15")
	assert.GreaterOrEqual(t, result["toolCallCount"].(int), 1)

	// The second request carries the tool observation back to the model.
	require.Equal(t, 2, provider.Calls())
	second := provider.Requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, types.RoleTool, last.Role)
	assert.Equal(t, "15", last.Content)

	// Tool schemas were offered on every call.
	require.NotEmpty(t, second.Tools)
	assert.Equal(t, "calculator", second.Tools[0].Name)
}

func TestAgentToolErrorBecomesObservation(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"maxIterations": float64(3)},
		[]graph.Node{{ID: "calc-1", Kind: graph.KindCalculator, Data: map[string]any{}}},
		[]graph.Connection{{ID: "c-calc", FromNodeID: "calc-1", ToNodeID: "agent-1", ToInput: "tool-target"}},
	)

	provider := llmtest.New("gemini",
		llmtest.ToolCallResponse("call-1", "calculator", `{"expression":"require('fs')"}`),
		llmtest.TextResponse("That expression is not allowed."),
	)

	out, err := f.execute(t, provider, nil, nil)
	require.NoError(t, err, "tool failures do not abort the run")

	second := provider.Requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, types.RoleTool, last.Role)
	assert.Contains(t, last.Content, "Error:")
	assert.Contains(t, last.Content, "disallowed")

	result := out["agent"].(map[string]any)
	assert.Equal(t, 1, result["toolCallCount"])
}

func TestAgentMissingModel(t *testing.T) {
	f := newAgentFixture(t, nil, nil, nil)
	// Sever the chat-model edge.
	f.workflow.Connections = nil

	_, err := f.execute(t, llmtest.New("gemini"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentMissingModel, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestAgentModelWithoutCredentialIsMissingModel(t *testing.T) {
	f := newAgentFixture(t, nil, nil, nil)
	for i := range f.workflow.Nodes {
		if f.workflow.Nodes[i].ID == "model-1" {
			f.workflow.Nodes[i].CredentialID = ""
		}
	}

	_, err := f.execute(t, llmtest.New("gemini"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentMissingModel, types.GetErrorCode(err))
}

func TestAgentUndecryptableKeyIsMissingKey(t *testing.T) {
	f := newAgentFixture(t, nil, nil, nil)
	// Corrupt the stored credential so decryption fails.
	require.NoError(t, f.store.DB().Model(&store.Credential{}).
		Where("id = ?", f.credID).
		Update("encrypted_value", "garbage").Error)

	_, err := f.execute(t, llmtest.New("gemini"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentMissingKey, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestAgentUnknownProviderFallsBackToGemini(t *testing.T) {
	f := newAgentFixture(t, nil, nil, nil)
	for i := range f.workflow.Nodes {
		if f.workflow.Nodes[i].ID == "model-1" {
			f.workflow.Nodes[i].Data = map[string]any{"provider": "mystery"}
		}
	}

	var gotProvider string
	executor := NewExecutor(Deps{
		Credentials: f.creds,
		Store:       f.store,
		Providers: func(name, key string) llm.Provider {
			gotProvider = name
			return llmtest.New(name, llmtest.TextResponse("ok"))
		},
	})

	agentNode, _ := f.workflow.NodeByID("agent-1")
	_, err := executor.Execute(context.Background(), &engine.ExecutionInput{
		RunID:    "run-1",
		OrgID:    "org-1",
		Node:     agentNode,
		Workflow: f.workflow,
		Context:  engine.RunContext{},
		Step:     durable.NewMemoStore(nil).ForRun("run-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", gotProvider)
}

func TestAgentSubNodeStatusFanOut(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"maxIterations": float64(1)},
		[]graph.Node{{ID: "calc-1", Kind: graph.KindCalculator, Data: map[string]any{}}},
		[]graph.Connection{{ID: "c-calc", FromNodeID: "calc-1", ToNodeID: "agent-1", ToInput: "tool-target"}},
	)

	bus := channel.NewMemoryBus(nil)
	events, cancelSub, err := bus.Subscribe(context.Background(), "run-1")
	require.NoError(t, err)
	defer cancelSub()

	provider := llmtest.New("gemini", llmtest.TextResponse("done"))
	_, err = f.execute(t, provider, nil, bus)
	require.NoError(t, err)

	statuses := map[string][]channel.Status{}
	for i := 0; i < 4; i++ {
		ev := <-events
		statuses[ev.NodeID] = append(statuses[ev.NodeID], ev.Status)
	}
	assert.Equal(t, []channel.Status{channel.StatusLoading, channel.StatusSuccess}, statuses["model-1"])
	assert.Equal(t, []channel.Status{channel.StatusLoading, channel.StatusSuccess}, statuses["calc-1"])
}

func TestAgentMemoryTrimming(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"maxIterations": float64(1)},
		[]graph.Node{{ID: "mem-1", Kind: graph.KindMemory,
			Data: map[string]any{"windowSize": float64(2)}}},
		[]graph.Connection{{ID: "c-mem", FromNodeID: "mem-1", ToNodeID: "agent-1", ToInput: "memory-target"}},
	)

	runCtx := engine.RunContext{}
	prompts := []string{"p1", "p2", "p3"}
	for i, prompt := range prompts {
		f.workflow.Nodes[0].Data["userPrompt"] = prompt
		provider := llmtest.New("gemini", llmtest.TextResponse("a"+prompt))

		out, err := f.execute(t, provider, runCtx, nil)
		require.NoError(t, err)
		runCtx = engine.Merge(runCtx, out)

		history := runCtx["chatHistory"].([]any)
		if i == 0 {
			assert.Len(t, history, 2)
		}
	}

	history := runCtx["chatHistory"].([]any)
	require.Len(t, history, 4, "history is truncated to 2x windowSize")

	turn := func(i int) (string, string) {
		m := history[i].(map[string]any)
		return m["role"].(string), m["content"].(string)
	}
	role, content := turn(0)
	assert.Equal(t, "user", role)
	assert.Equal(t, "p2", content)
	role, content = turn(3)
	assert.Equal(t, "assistant", role)
	assert.Equal(t, "ap3", content)
}

func TestAgentMemoryWindowFeedsPriorTurns(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"maxIterations": float64(1), "userPrompt": "again"},
		[]graph.Node{{ID: "mem-1", Kind: graph.KindMemory,
			Data: map[string]any{"windowSize": float64(2), "memoryKey": "convo"}}},
		[]graph.Connection{{ID: "c-mem", FromNodeID: "mem-1", ToNodeID: "agent-1", ToInput: "memory-target"}},
	)

	initial := engine.RunContext{
		"convo": []any{
			map[string]any{"role": "user", "content": "old-1"},
			map[string]any{"role": "assistant", "content": "old-2"},
			map[string]any{"role": "user", "content": "recent-1"},
			map[string]any{"role": "assistant", "content": "recent-2"},
		},
	}

	provider := llmtest.New("gemini", llmtest.TextResponse("ok"))
	_, err := f.execute(t, provider, initial, nil)
	require.NoError(t, err)

	req := provider.Requests[0]
	// Only the last windowSize turns precede the new prompt.
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "recent-1", req.Messages[0].Content)
	assert.Equal(t, "recent-2", req.Messages[1].Content)
	assert.Equal(t, "again", req.Messages[2].Content)
}

func TestAgentIterationLimitClamp(t *testing.T) {
	assert.Equal(t, 10, iterationLimit(map[string]any{}))
	assert.Equal(t, 1, iterationLimit(map[string]any{"maxIterations": float64(-3)}))
	assert.Equal(t, 25, iterationLimit(map[string]any{"maxIterations": float64(100)}))
	assert.Equal(t, 5, iterationLimit(map[string]any{"maxIterations": 5}))
}

func TestAgentStopsAtIterationLimit(t *testing.T) {
	f := newAgentFixture(t,
		map[string]any{"maxIterations": float64(2)},
		[]graph.Node{{ID: "calc-1", Kind: graph.KindCalculator, Data: map[string]any{}}},
		[]graph.Connection{{ID: "c-calc", FromNodeID: "calc-1", ToNodeID: "agent-1", ToInput: "tool-target"}},
	)

	// The model keeps calling tools forever; the loop must stop anyway.
	provider := llmtest.New("gemini",
		llmtest.ToolCallResponse("call-1", "calculator", `{"expression":"1+1"}`),
		llmtest.ToolCallResponse("call-2", "calculator", `{"expression":"2+2"}`),
		llmtest.ToolCallResponse("call-3", "calculator", `{"expression":"3+3"}`),
	)

	out, err := f.execute(t, provider, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
	result := out["agent"].(map[string]any)
	assert.Equal(t, 2, result["toolCallCount"])
}
