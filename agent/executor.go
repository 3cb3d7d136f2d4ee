// Package agent implements the AI-agent node: at run time it discovers its
// locally connected sub-nodes (chat model, memory, tools) by edge label,
// compiles them into a bounded tool-calling loop over an LLM, and merges
// the conversation back into the shared run context.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/channel"
	"github.com/flowgrid-io/flowgrid/credentials"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/llm"
	"github.com/flowgrid-io/flowgrid/store"
	"github.com/flowgrid-io/flowgrid/template"
	"github.com/flowgrid-io/flowgrid/types"

	agenttools "github.com/flowgrid-io/flowgrid/agent/tools"
)

// Iteration bounds for the generation loop.
const (
	defaultMaxIterations = 10
	minIterations        = 1
	maxIterations        = 25
)

// defaultSystemPrompt anchors agents whose node carries no systemPrompt.
const defaultSystemPrompt = "You are a helpful assistant inside an automated workflow. " +
	"Use the available tools when they help you answer, then reply with a final text answer."

// ProviderFactory builds a provider client from a normalised provider name
// and API key.
type ProviderFactory func(provider, apiKey string) llm.Provider

// Deps wires the agent executor.
type Deps struct {
	Credentials *credentials.Store
	Store       *store.Store
	Providers   ProviderFactory
	// DefaultKeys maps provider name to the environment-supplied fallback
	// key; per-credential keys take precedence.
	DefaultKeys map[string]string
	HTTPClient  *http.Client
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// Executor runs AI_AGENT nodes.
type Executor struct {
	deps   Deps
	logger *zap.Logger
}

// NewExecutor creates the agent executor.
func NewExecutor(deps Deps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		deps:   deps,
		logger: logger.With(zap.String("executor", "ai_agent")),
	}
}

// Execute implements engine.Executor.
func (e *Executor) Execute(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
	varName, err := in.VariableName("agent")
	if err != nil {
		return nil, err
	}
	rawPrompt, err := in.RequireConfigString("userPrompt")
	if err != nil {
		return nil, err
	}

	sub := discoverSubNodes(in.Workflow, in.Node.ID)

	// The editor lights up the whole star while the agent thinks, so the
	// agent fans its lifecycle out to every discovered sub-node. Its own
	// node id is covered by the driver.
	e.fanOut(ctx, in, sub, channel.StatusLoading)

	out, err := e.run(ctx, in, sub, varName, rawPrompt)
	if err != nil {
		e.fanOut(ctx, in, sub, channel.StatusError)
		return nil, err
	}
	e.fanOut(ctx, in, sub, channel.StatusSuccess)
	return out, nil
}

func (e *Executor) run(ctx context.Context, in *engine.ExecutionInput, sub subNodes, varName, rawPrompt string) (engine.RunContext, error) {
	provider, err := e.resolveModel(ctx, in, sub.chatModel)
	if err != nil {
		return nil, err
	}

	mem := memoryFromNode(sub.memory)
	ctxMap := in.Context.AsMap()
	userPrompt := template.Evaluate(rawPrompt, ctxMap)
	priorTurns := mem.load(ctxMap)

	toolset, schemas := e.assembleTools(in, sub.tools)

	limit := iterationLimit(in.NodeConfig())
	systemPrompt := in.ConfigString("systemPrompt")
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	} else {
		systemPrompt = template.Evaluate(systemPrompt, ctxMap)
	}

	messages := append([]types.Message{}, priorTurns...)
	messages = append(messages, types.NewUserMessage(userPrompt))

	nodeStep := durable.ChildName("node", in.Node.ID)
	logger := e.logger.With(
		zap.String("node_id", in.Node.ID),
		zap.String("provider", provider.name),
		zap.String("model", provider.model),
	)

	answer := ""
	toolCallCount := 0
	for i := 0; i < limit; i++ {
		req := &llm.ChatRequest{
			Model:    provider.model,
			System:   systemPrompt,
			Messages: messages,
			Tools:    schemas,
		}

		// Each generation is its own durable step so a re-entered run never
		// re-bills a completed provider call.
		stepName := durable.ChildName(nodeStep, fmt.Sprintf("generate:%d", i+1))
		raw, err := in.Step.Run(ctx, stepName, func(stepCtx context.Context) (any, error) {
			resp, callErr := provider.client.Completion(stepCtx, req)
			if callErr != nil {
				e.deps.Metrics.ObserveLLM(provider.name, "error", 0, 0)
				return nil, callErr
			}
			e.deps.Metrics.ObserveLLM(provider.name, "success",
				resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			return resp, nil
		})
		if err != nil {
			return nil, err
		}
		resp, ok := raw.(*llm.ChatResponse)
		if !ok {
			return nil, types.NewError(types.ErrInternalError, "unexpected generation step result")
		}

		choice, ok := resp.FirstChoice()
		if !ok {
			return nil, types.NewError(types.ErrUpstreamError, "model returned no choices").
				WithRetryable(true)
		}

		if len(choice.Message.ToolCalls) == 0 {
			answer = choice.Message.Content
			logger.Debug("agent loop finished",
				zap.Int("iterations", i+1),
				zap.Int("tool_calls", toolCallCount),
			)
			break
		}

		messages = append(messages, choice.Message)
		for _, call := range choice.Message.ToolCalls {
			result := e.executeToolCall(ctx, in, nodeStep, toolset, i+1, call)
			if result.IsError() {
				logger.Warn("tool call failed",
					zap.String("tool", call.Name),
					zap.String("error", result.Error),
				)
			}
			messages = append(messages, result.ToMessage())
			toolCallCount++
		}

		// Step count reached with the model still calling tools: fall back
		// to its last text, which may be empty.
		answer = choice.Message.Content
	}

	result := engine.RunContext{
		varName: map[string]any{
			"agentResponse": answer,
			"toolCallCount": toolCallCount,
		},
	}
	if mem.enabled {
		result[mem.memoryKey] = mem.appendTurns(ctxMap, userPrompt, answer)
	}
	return result, nil
}

// resolvedModel is the outcome of chat-model sub-node resolution.
type resolvedModel struct {
	name   string
	model  string
	client llm.Provider
}

// resolveModel turns the chat-model sub-node into a provider client. A
// missing sub-node, provider, or credential reference is a model error; a
// credential that cannot be resolved to a usable key is a key error. Both
// are non-retriable.
func (e *Executor) resolveModel(ctx context.Context, in *engine.ExecutionInput, chatModel *graph.Node) (*resolvedModel, error) {
	if chatModel == nil {
		return nil, types.NewError(types.ErrAgentMissingModel,
			"AI_AGENT node has no chat-model sub-node").WithNodeID(in.Node.ID)
	}
	providerName, _ := chatModel.Data["provider"].(string)
	if providerName == "" || chatModel.CredentialID == "" {
		return nil, types.NewError(types.ErrAgentMissingModel,
			"chat-model sub-node lacks provider or credential").WithNodeID(in.Node.ID)
	}

	resolved := llm.ResolveProvider(providerName)
	model, _ := chatModel.Data["model"].(string)
	if model == "" {
		model = llm.DefaultModel(resolved)
	}

	apiKey := ""
	if e.deps.Credentials != nil {
		if key, err := e.deps.Credentials.Secret(ctx, in.OrgID, chatModel.CredentialID); err == nil {
			apiKey = key
		}
	}
	if apiKey == "" {
		apiKey = e.deps.DefaultKeys[resolved]
	}
	if apiKey == "" {
		return nil, types.NewError(types.ErrAgentMissingKey,
			"no usable API key for chat model").WithNodeID(in.Node.ID)
	}

	return &resolvedModel{
		name:   resolved,
		model:  model,
		client: e.deps.Providers(resolved, apiKey),
	}, nil
}

// assembleTools builds the tool catalogue from the connected tool
// sub-nodes. The first tool wins a name collision.
func (e *Executor) assembleTools(in *engine.ExecutionInput, toolNodes []graph.Node) (map[string]agenttools.Tool, []types.ToolSchema) {
	deps := agenttools.Deps{
		Store:      e.deps.Store,
		OrgID:      in.OrgID,
		HTTPClient: e.deps.HTTPClient,
		Metrics:    e.deps.Metrics,
		Logger:     e.logger,
	}

	toolset := make(map[string]agenttools.Tool)
	var schemas []types.ToolSchema
	for _, node := range toolNodes {
		for _, tool := range agenttools.FromNode(node, deps) {
			if _, exists := toolset[tool.Schema.Name]; exists {
				e.logger.Warn("duplicate tool name, keeping first",
					zap.String("tool", tool.Schema.Name),
					zap.String("node_id", node.ID),
				)
				continue
			}
			toolset[tool.Schema.Name] = tool
			schemas = append(schemas, tool.Schema)
		}
	}
	return toolset, schemas
}

// executeToolCall runs one tool call inside its own durable step and maps
// the outcome onto a ToolResult. Tool failures become observations for the
// model, not run failures.
func (e *Executor) executeToolCall(ctx context.Context, in *engine.ExecutionInput, nodeStep string, toolset map[string]agenttools.Tool, iteration int, call types.ToolCall) types.ToolResult {
	result := types.ToolResult{ToolCallID: call.ID, Name: call.Name}

	tool, ok := toolset[call.Name]
	if !ok {
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
		e.deps.Metrics.ObserveTool(call.Name, "error")
		return result
	}

	started := time.Now()
	stepName := durable.ChildName(nodeStep, fmt.Sprintf("tool:%d:%s:%s", iteration, call.Name, call.ID))
	raw, err := in.Step.Run(ctx, stepName, func(stepCtx context.Context) (any, error) {
		return tool.Execute(stepCtx, call.Arguments)
	})
	result.Duration = time.Since(started)

	if err != nil {
		result.Error = err.Error()
		e.deps.Metrics.ObserveTool(call.Name, "error")
		return result
	}

	text, _ := raw.(string)
	result.Result = []byte(text)
	e.deps.Metrics.ObserveTool(call.Name, "success")
	return result
}

func (e *Executor) fanOut(ctx context.Context, in *engine.ExecutionInput, sub subNodes, status channel.Status) {
	if in.Publish == nil {
		return
	}
	for _, id := range sub.ids() {
		node, _ := in.Workflow.NodeByID(id)
		ev := channel.Event{
			WorkflowRunID: in.RunID,
			NodeID:        id,
			NodeKind:      string(node.Kind),
			Status:        status,
		}
		if err := in.Publish.Publish(ctx, ev); err != nil {
			e.logger.Warn("sub-node status publish failed",
				zap.String("node_id", id),
				zap.Error(err),
			)
		}
	}
}

// iterationLimit reads maxIterations off the node config, clamped to the
// supported range.
func iterationLimit(cfg map[string]any) int {
	limit := defaultMaxIterations
	switch v := cfg["maxIterations"].(type) {
	case float64:
		if v != 0 {
			limit = int(v)
		}
	case int:
		if v != 0 {
			limit = v
		}
	}
	if limit < minIterations {
		limit = minIterations
	}
	if limit > maxIterations {
		limit = maxIterations
	}
	return limit
}
