package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const fishAudioURL = "https://api.fish.audio"

// FishAudioRequest Fish Audio TTS request
type FishAudioRequest struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id,omitempty"`
	Format      string `json:"format"`
	SampleRate  int    `json:"sample_rate"`
	ChunkLength int    `json:"chunk_length,omitempty"`
	Normalize   bool   `json:"normalize"`
	Latency     string `json:"latency,omitempty"`
}

// FishAudioSynthesizer Fish Audio REST TTS. The voice is the reference model id.
type FishAudioSynthesizer struct {
	client *resty.Client
	model  string
	format media.StreamFormat
	logger *zap.Logger
}

func NewFishAudioSynthesizer(opts Options, logger *zap.Logger) *FishAudioSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" || strings.Contains(baseURL, "api.openai.com") {
		baseURL = fishAudioURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	model := opts.Model
	if model == "" || strings.HasPrefix(model, "tts-") {
		model = "s1"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &FishAudioSynthesizer{
		client: client,
		model:  model,
		format: media.StreamFormat{SampleRate: sampleRate, BitDepth: 16, Channels: 1},
		logger: logger,
	}
}

func (fa *FishAudioSynthesizer) Synthesize(ctx context.Context, text, voice string) (media.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return media.Audio{}, ErrEmptyText
	}

	start := time.Now()
	resp, err := fa.client.R().
		SetContext(ctx).
		SetHeader("model", fa.model).
		SetBody(FishAudioRequest{
			Text:        text,
			ReferenceID: voice,
			Format:      "pcm",
			SampleRate:  fa.format.SampleRate,
			ChunkLength: 300,
			Normalize:   true,
			Latency:     "normal",
		}).
		Post("/v1/tts")
	if err != nil {
		return media.Audio{}, fmt.Errorf("call fishaudio: %w", err)
	}
	if resp.IsError() {
		fa.logger.Error("[TTS] fishaudio api error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()))
		return media.Audio{}, &HTTPError{Provider: string(ProviderFishAudio), Status: resp.StatusCode(), Body: resp.String()}
	}

	data := resp.Body()
	if len(data) == 0 {
		return media.Audio{}, fmt.Errorf("empty audio data from fishaudio")
	}

	audio := media.Audio{Data: data, Format: fa.format}
	fa.logger.Debug("[TTS] synthesis completed",
		zap.String("provider", string(ProviderFishAudio)),
		zap.String("model", fa.model),
		zap.Int("bytes", len(data)),
		zap.Duration("audio", audio.Duration()),
		zap.Duration("latency", time.Since(start)))
	return audio, nil
}
