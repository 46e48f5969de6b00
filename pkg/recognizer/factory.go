package recognizer

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Vendor transcription provider
type Vendor string

const (
	// VendorOpenAI hosted Whisper
	VendorOpenAI Vendor = "openai"
	// VendorWhisper self-hosted server speaking the OpenAI transcription API
	VendorWhisper Vendor = "whisper"
)

// Config transcriber configuration
type Config struct {
	Vendor   Vendor
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// GetSupportedVendors lists the vendors NewTranscriber accepts.
func GetSupportedVendors() []Vendor {
	return []Vendor{VendorOpenAI, VendorWhisper}
}

// NewTranscriber creates a Transcriber for cfg.Vendor; an empty vendor means OpenAI.
func NewTranscriber(cfg Config, logger *zap.Logger) (Transcriber, error) {
	vendor := Vendor(strings.ToLower(strings.TrimSpace(string(cfg.Vendor))))
	switch vendor {
	case "", VendorOpenAI:
		return NewOpenAITranscriber(cfg, logger), nil
	case VendorWhisper:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("whisper transcriber requires a base url")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = "whisper"
		}
		return NewOpenAITranscriber(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transcriber vendor: %s", cfg.Vendor)
	}
}
