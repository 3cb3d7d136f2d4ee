package executors

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/agent"
	"github.com/flowgrid-io/flowgrid/credentials"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/store"
)

// Deps wires the full executor registry.
type Deps struct {
	Credentials *credentials.Store
	Store       *store.Store
	Providers   ProviderFactory
	DefaultKeys map[string]string
	HTTPClient  *http.Client
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// NewRegistry builds the registry covering every node kind. Sub-node kinds
// (chat model, memory, tool configuration nodes) are registered as no-ops:
// they carry configuration for the agent and do nothing when a main-flow
// edge happens to schedule them.
func NewRegistry(deps Deps) *engine.Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Providers == nil {
		deps.Providers = DefaultProviderFactory(logger)
	}

	r := engine.NewRegistry()

	trigger := NewTriggerExecutor()
	r.Register(graph.KindInitial, trigger)
	r.Register(graph.KindManualTrigger, trigger)
	r.Register(graph.KindGoogleFormTrigger, NewWebhookTriggerExecutor("googleForm"))
	r.Register(graph.KindStripeTrigger, NewWebhookTriggerExecutor("stripe"))

	r.Register(graph.KindHTTPRequest, NewHTTPRequestExecutor(deps.HTTPClient, logger))

	llmDeps := LLMNodeDeps{
		Credentials: deps.Credentials,
		Providers:   deps.Providers,
		DefaultKeys: deps.DefaultKeys,
		Metrics:     deps.Metrics,
		Logger:      logger,
	}
	r.Register(graph.KindGemini, NewLLMNodeExecutor("gemini", llmDeps))
	r.Register(graph.KindOpenAI, NewLLMNodeExecutor("openai", llmDeps))
	r.Register(graph.KindAnthropic, NewLLMNodeExecutor("anthropic", llmDeps))

	r.Register(graph.KindDiscord, NewWebhookMessageExecutor("DISCORD", "content", deps.HTTPClient, logger))
	r.Register(graph.KindSlack, NewWebhookMessageExecutor("SLACK", "text", deps.HTTPClient, logger))

	r.Register(graph.KindAIAgent, agent.NewExecutor(agent.Deps{
		Credentials: deps.Credentials,
		Store:       deps.Store,
		Providers:   agent.ProviderFactory(deps.Providers),
		DefaultKeys: deps.DefaultKeys,
		HTTPClient:  deps.HTTPClient,
		Metrics:     deps.Metrics,
		Logger:      logger,
	}))

	configOnly := newConfigOnlyExecutor()
	for _, kind := range []graph.NodeKind{
		graph.KindChatModel,
		graph.KindMemory,
		graph.KindSendEmail,
		graph.KindWebScraper,
		graph.KindCalculator,
		graph.KindInventoryLookup,
		graph.KindOrderManager,
	} {
		r.Register(kind, configOnly)
	}

	return r
}

// newConfigOnlyExecutor covers kinds that only carry configuration for an
// agent. Scheduling one is a no-op.
func newConfigOnlyExecutor() engine.Executor {
	return engine.ExecutorFunc(func(ctx context.Context, in *engine.ExecutionInput) (engine.RunContext, error) {
		return nil, nil
	})
}
