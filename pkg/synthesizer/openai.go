package synthesizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIFormat is what the speech endpoint returns for response_format=pcm.
var openAIFormat = media.StreamFormat{SampleRate: 24000, BitDepth: 16, Channels: 1}

type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAISynthesizer(opts Options, logger *zap.Logger) *OpenAISynthesizer {
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
	model := opts.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{client: openai.NewClientWithConfig(cfg), model: model, logger: logger}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voice string) (media.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return media.Audio{}, ErrEmptyText
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return media.Audio{}, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return media.Audio{}, fmt.Errorf("read speech: %w", err)
	}
	if len(data) == 0 {
		return media.Audio{}, fmt.Errorf("openai tts returned no audio")
	}

	audio := media.Audio{Data: data, Format: openAIFormat}
	s.logger.Debug("[TTS] synthesis completed",
		zap.String("provider", string(ProviderOpenAI)),
		zap.String("voice", voice),
		zap.Int("bytes", len(data)),
		zap.Duration("audio", audio.Duration()),
		zap.Duration("latency", time.Since(start)))
	return audio, nil
}
