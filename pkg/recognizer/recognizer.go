package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrEmptyAudio = errors.New("empty audio")

// Transcriber turns one finished utterance into text. An empty string is a
// valid result and means nothing intelligible was said.
type Transcriber interface {
	Transcribe(ctx context.Context, audio media.Audio, durationMs uint) (string, error)
}

// OpenAITranscriber calls an OpenAI compatible /audio/transcriptions endpoint.
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

func NewOpenAITranscriber(cfg Config, logger *zap.Logger) *OpenAITranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		logger:   logger,
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio media.Audio, durationMs uint) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}

	var buf bytes.Buffer
	if err := media.EncodeWAV(&buf, audio); err != nil {
		return "", fmt.Errorf("encode utterance: %w", err)
	}

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "utterance.wav",
		Reader:   &buf,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	t.logger.Debug("[Transcriber] transcription completed",
		zap.String("model", t.model),
		zap.Uint("durationMs", durationMs),
		zap.Int("chars", len(text)),
		zap.Duration("latency", time.Since(start)))
	return text, nil
}
