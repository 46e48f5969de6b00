package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrEmptyReply = errors.New("empty reply")

// Message one entry of the dialogue context
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DialogueAgent produces the assistant reply for an ordered history.
type DialogueAgent interface {
	Reply(ctx context.Context, history []Message) (string, error)
}

// Options shared provider options
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

// OpenAIProvider chat completions against an OpenAI compatible API
type OpenAIProvider struct {
	client *openai.Client
	opts   Options
	logger *zap.Logger
}

func NewOpenAIProvider(opts Options, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		logger: logger,
	}
}

func (p *OpenAIProvider) Reply(ctx context.Context, history []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if p.opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.opts.SystemPrompt,
		})
	}
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	p.logger.Debug("[LLM] reply received",
		zap.String("model", p.opts.Model),
		zap.Int("context", len(history)),
		zap.Int("totalTokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))
	return text, nil
}
