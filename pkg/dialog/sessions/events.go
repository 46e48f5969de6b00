package sessions

import (
	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/code-100-precent/LingTalk/pkg/vad"
)

// Event is anything posted onto the session queue. Network events carry the
// turn they belong to; results for a turn that is no longer current are dropped.
type Event interface {
	event()
}

type ActivityTick struct {
	Reading vad.ActivityReading
}

type AudioChunk struct {
	Data []byte
}

type SilenceTimeout struct {
	Timer uint64
}

// ManualStop force-finishes the current recording.
type ManualStop struct{}

type SettingsChanged struct {
	Settings settings.Settings
}

type TranscriptReady struct {
	Turn uint64
	Text string
}

type ReplyReady struct {
	Turn uint64
	Text string
}

type AudioReady struct {
	Turn  uint64
	Audio media.Audio
}

// PlaybackEnded reports completion; a non-nil Err is a playback failure and
// is treated like completion.
type PlaybackEnded struct {
	Turn uint64
	Err  error
}

type NetworkError struct {
	Turn uint64
	Err  *Error
}

func (ActivityTick) event()    {}
func (AudioChunk) event()      {}
func (SilenceTimeout) event()  {}
func (ManualStop) event()      {}
func (SettingsChanged) event() {}
func (TranscriptReady) event() {}
func (ReplyReady) event()      {}
func (AudioReady) event()      {}
func (PlaybackEnded) event()   {}
func (NetworkError) event()    {}
