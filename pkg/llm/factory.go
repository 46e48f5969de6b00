package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ProviderType LLM provider type
type ProviderType string

const (
	ProviderTypeOpenAI ProviderType = "openai" // OpenAI compatible API
	ProviderTypeOllama ProviderType = "ollama" // Ollama API
)

// NewLLMProvider creates the DialogueAgent for provider; empty means OpenAI.
func NewLLMProvider(provider string, opts Options, logger *zap.Logger) (DialogueAgent, error) {
	providerType := strings.ToLower(strings.TrimSpace(provider))
	if providerType == "" {
		providerType = string(ProviderTypeOpenAI)
	}
	switch ProviderType(providerType) {
	case ProviderTypeOllama:
		return NewOllamaProvider(opts, logger), nil
	case ProviderTypeOpenAI:
		if opts.BaseURL == "" {
			opts.BaseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIProvider(opts, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
