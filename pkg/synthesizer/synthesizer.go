package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"go.uber.org/zap"
)

var ErrEmptyText = errors.New("nothing to synthesize")

// SpeechSynthesizer renders text with a voice into playable PCM.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (media.Audio, error)
}

// TTSProvider synthesis provider
type TTSProvider string

const (
	ProviderOpenAI    TTSProvider = "openai"
	ProviderFishAudio TTSProvider = "fishaudio"
)

// Options provider options
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	SampleRate int
	Timeout    time.Duration
}

// HTTPError is a non-2xx answer from a REST synthesis API.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s tts returned status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *HTTPError) StatusCode() int {
	return e.Status
}

// NewSynthesizer creates the SpeechSynthesizer for provider; empty means OpenAI.
func NewSynthesizer(provider string, opts Options, logger *zap.Logger) (SpeechSynthesizer, error) {
	switch TTSProvider(strings.ToLower(strings.TrimSpace(provider))) {
	case "", ProviderOpenAI:
		return NewOpenAISynthesizer(opts, logger), nil
	case ProviderFishAudio:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("fishaudio api key is required")
		}
		return NewFishAudioSynthesizer(opts, logger), nil
	default:
		return nil, fmt.Errorf("unsupported tts provider: %s", provider)
	}
}
