// Package media defines the audio capabilities the dialogue engine depends on
// and the formats exchanged between them.
package media

import (
	"context"
	"errors"
	"time"
)

// ErrPlaybackCancelled is returned by Player.Play when Cancel interrupted it.
var ErrPlaybackCancelled = errors.New("playback cancelled")

// StreamFormat describes raw PCM. BitDepth 8 is unsigned with midpoint 128,
// BitDepth 16 is signed little-endian.
type StreamFormat struct {
	SampleRate int `json:"sampleRate"`
	BitDepth   int `json:"bitDepth"`
	Channels   int `json:"channels"`
}

// BytesPerSecond returns 0 for an incomplete format.
func (f StreamFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Duration of n bytes in this format.
func (f StreamFormat) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// Audio is a complete buffer of PCM in a known format.
type Audio struct {
	Data   []byte       `json:"-"`
	Format StreamFormat `json:"format"`
}

func (a Audio) Duration() time.Duration {
	return a.Format.Duration(len(a.Data))
}

// AudioSource is an acquired capture stream. Window copies the most recent
// 8-bit samples into dst and returns how many were copied; 0 means the
// source is not producing yet. Chunks delivers every captured buffer in order
// and is closed by Close.
type AudioSource interface {
	Window(dst []uint8) int
	Chunks() <-chan []byte
	Format() StreamFormat
	Close() error
}

// Player plays one Audio at a time. Play blocks until playback finishes,
// ctx ends, or Cancel is called (ErrPlaybackCancelled). Cancel with nothing
// playing is a no-op.
type Player interface {
	Play(ctx context.Context, audio Audio) error
	Cancel()
}
