package providers

import (
	"fmt"

	"github.com/prdforge/prdforge/internal/llm"
)

// ProviderType identifies a supported LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenRouter ProviderType = "openrouter"
)

// BuildApiHandler creates an API handler for the given provider type.
// An unsupported provider is an error, never a silent default.
func BuildApiHandler(provider ProviderType, options llm.ApiHandlerOptions) (llm.ApiHandler, error) {
	if options.APIKey == "" {
		return nil, fmt.Errorf("provider %s: API key is required", provider)
	}
	if options.ModelID == "" {
		return nil, fmt.Errorf("provider %s: model ID is required", provider)
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAISDKHandler(options), nil
	case ProviderAnthropic:
		return NewAnthropicSDKHandler(options), nil
	case ProviderOpenRouter:
		return NewOpenRouterSDKHandler(options), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", provider)
	}
}
