// Package settings holds the tunable parameters of the dialogue engine and
// the stores that persist them.
package settings

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultVADThreshold         = 0.02
	DefaultSilenceTimeoutMs     = 700
	DefaultMinRecordingLengthMs = 1000
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings is immutable once handed to a session; changes produce a new value.
type Settings struct {
	VADThreshold         float64 `json:"vadThreshold"`
	SilenceTimeoutMs     uint    `json:"silenceTimeoutMs"`
	MinRecordingLengthMs uint    `json:"minRecordingLengthMs"`
}

func Defaults() Settings {
	return Settings{
		VADThreshold:         DefaultVADThreshold,
		SilenceTimeoutMs:     DefaultSilenceTimeoutMs,
		MinRecordingLengthMs: DefaultMinRecordingLengthMs,
	}
}

// Validate reports an error wrapping ErrInvalidSettings when a field is out of range.
func (s Settings) Validate() error {
	if !(s.VADThreshold > 0 && s.VADThreshold < 1) {
		return fmt.Errorf("%w: vadThreshold must be in (0,1), got %v", ErrInvalidSettings, s.VADThreshold)
	}
	if s.SilenceTimeoutMs == 0 {
		return fmt.Errorf("%w: silenceTimeoutMs must be positive", ErrInvalidSettings)
	}
	if s.MinRecordingLengthMs == 0 {
		return fmt.Errorf("%w: minRecordingLengthMs must be positive", ErrInvalidSettings)
	}
	return nil
}

func (s Settings) SilenceTimeout() time.Duration {
	return time.Duration(s.SilenceTimeoutMs) * time.Millisecond
}

func (s Settings) MinRecordingLength() time.Duration {
	return time.Duration(s.MinRecordingLengthMs) * time.Millisecond
}
