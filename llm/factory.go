package llm

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Provider names recognised by the factory.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider.
const (
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// Options tune a constructed provider. The zero value is production-ready.
type Options struct {
	// BaseURL overrides the provider endpoint, for tests and proxies.
	BaseURL string
	// Timeout bounds one completion call. Defaults to 60s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// ResolveProvider normalises a stored provider name. Unknown providers fall
// back to gemini.
func ResolveProvider(name string) string {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return name
	default:
		return ProviderGemini
	}
}

// DefaultModel returns the fixed default model for a provider name.
func DefaultModel(provider string) string {
	switch ResolveProvider(provider) {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	default:
		return DefaultGeminiModel
	}
}

// New constructs the provider client for a normalised provider name.
func New(provider, apiKey string, opts Options, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch ResolveProvider(provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, opts, logger)
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, opts, logger)
	default:
		return NewGeminiProvider(apiKey, opts, logger)
	}
}
