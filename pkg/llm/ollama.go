package llm

import "go.uber.org/zap"

const defaultOllamaURL = "http://localhost:11434/v1"

// OllamaProvider talks to Ollama through its OpenAI compatible endpoint.
type OllamaProvider struct {
	*OpenAIProvider
}

func NewOllamaProvider(opts Options, logger *zap.Logger) *OllamaProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaURL
	}
	if opts.APIKey == "" {
		opts.APIKey = "ollama"
	}
	if opts.Model == "" {
		opts.Model = "llama3"
	}
	return &OllamaProvider{OpenAIProvider: NewOpenAIProvider(opts, logger)}
}
