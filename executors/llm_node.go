package executors

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/credentials"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/llm"
	"github.com/flowgrid-io/flowgrid/template"
	"github.com/flowgrid-io/flowgrid/types"
)

// ProviderFactory builds a provider client from a normalised provider name
// and API key. Tests substitute scripted providers through it.
type ProviderFactory func(provider, apiKey string) llm.Provider

// DefaultProviderFactory builds the real HTTP provider clients.
func DefaultProviderFactory(logger *zap.Logger) ProviderFactory {
	return func(provider, apiKey string) llm.Provider {
		return llm.New(provider, apiKey, llm.Options{}, logger)
	}
}

// LLMNodeDeps wires a single-shot LLM executor.
type LLMNodeDeps struct {
	Credentials *credentials.Store
	Providers   ProviderFactory
	// DefaultKeys maps provider name to the environment-supplied fallback
	// key, overridden by per-credential keys.
	DefaultKeys map[string]string
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// NewLLMNodeExecutor handles GEMINI, OPENAI, and ANTHROPIC nodes: one
// prompt in, one completion out. Configuration: prompt (required,
// templated), systemPrompt (templated), model, variableName. The result
// lands under variableName as {aiResponse}.
func NewLLMNodeExecutor(provider string, deps LLMNodeDeps) engine.Executor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("executor", provider))

	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		prompt, err := in.RequireConfigString("prompt")
		if err != nil {
			return nil, err
		}
		varName, err := in.VariableName("aiResponse")
		if err != nil {
			return nil, err
		}

		apiKey, err := resolveAPIKey(ctx, in, provider, deps.Credentials, deps.DefaultKeys)
		if err != nil {
			return nil, err
		}

		model := in.ConfigString("model")
		if model == "" {
			model = llm.DefaultModel(provider)
		}

		ctxMap := in.Context.AsMap()
		req := &llm.ChatRequest{
			Model:    model,
			System:   template.Evaluate(in.ConfigString("systemPrompt"), ctxMap),
			Messages: []types.Message{types.NewUserMessage(template.Evaluate(prompt, ctxMap))},
		}

		client := deps.Providers(provider, apiKey)
		stepName := durable.ChildName(durable.ChildName("node", in.Node.ID), "completion")
		result, err := in.Step.Run(ctx, stepName, func(stepCtx context.Context) (any, error) {
			resp, callErr := client.Completion(stepCtx, req)
			if callErr != nil {
				deps.Metrics.ObserveLLM(provider, "error", 0, 0)
				return nil, callErr
			}
			deps.Metrics.ObserveLLM(provider, "success", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			choice, ok := resp.FirstChoice()
			if !ok {
				return nil, types.NewErrorf(types.ErrUpstreamError, "%s returned no choices", provider).
					WithRetryable(true)
			}
			return choice.Message.Content, nil
		})
		if err != nil {
			log.Warn("completion failed", zap.String("node_id", in.Node.ID), zap.Error(err))
			return nil, err
		}

		text, _ := result.(string)
		return engine.RunContext{varName: map[string]any{"aiResponse": text}}, nil
	})
}

// resolveAPIKey prefers the node's credential over the provider-default
// environment key.
func resolveAPIKey(ctx context.Context, in *engine.ExecutionInput, provider string, creds *credentials.Store, defaults map[string]string) (string, error) {
	if in.Node.CredentialID != "" && creds != nil {
		key, err := creds.Secret(ctx, in.OrgID, in.Node.CredentialID)
		if err == nil && key != "" {
			return key, nil
		}
	}
	if key := defaults[provider]; key != "" {
		return key, nil
	}
	return "", types.NewErrorf(types.ErrNodeConfig,
		"%s node has no usable API key", in.Node.Kind).
		WithNodeID(in.Node.ID)
}
