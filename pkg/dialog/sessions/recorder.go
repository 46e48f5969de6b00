package sessions

import (
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"go.uber.org/zap"
)

// maxRecording caps a single utterance buffer.
const maxRecording = 60 * time.Second

type StopReason int

const (
	StopSilence StopReason = iota
	StopManual
)

func (r StopReason) String() string {
	if r == StopManual {
		return "manual"
	}
	return "silence"
}

// Utterance is one finished recording handed to the transcriber.
type Utterance struct {
	Audio      media.Audio
	StartedAt  time.Time
	DurationMs uint
	Reason     StopReason
}

// Recorder accumulates captured chunks for the active turn.
type Recorder interface {
	// Begin starts a recording at the first voiced reading.
	Begin(at time.Time)
	Append(chunk []byte)
	MarkVoice(at time.Time)
	// MarkSilence records the first unvoiced reading after voice.
	MarkSilence(at time.Time)
	// Finish ends the recording. A nil Utterance means nothing usable was captured.
	Finish(reason StopReason, minLength time.Duration) *Utterance
	Discard()
	Recording() bool
}

type SegmentRecorder struct {
	clock     Clock
	format    media.StreamFormat
	logger    *zap.Logger
	maxBytes  int
	buf       []byte
	startedAt time.Time
	lastVoice time.Time
	voiceEnd  time.Time
	recording bool
	truncated bool
}

func NewSegmentRecorder(clock Clock, format media.StreamFormat, logger *zap.Logger) *SegmentRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = RealClock()
	}
	maxBytes := format.BytesPerSecond() * int(maxRecording/time.Second)
	return &SegmentRecorder{clock: clock, format: format, logger: logger, maxBytes: maxBytes}
}

func (r *SegmentRecorder) Begin(at time.Time) {
	r.reset()
	r.recording = true
	if at.IsZero() {
		at = r.clock.Now()
	}
	r.startedAt = at
}

func (r *SegmentRecorder) Append(chunk []byte) {
	if !r.recording {
		return
	}
	if r.maxBytes > 0 && len(r.buf)+len(chunk) > r.maxBytes {
		if !r.truncated {
			r.truncated = true
			r.logger.Warn("[Recorder] recording too long, dropping further audio",
				zap.Duration("max", maxRecording))
		}
		return
	}
	r.buf = append(r.buf, chunk...)
}

func (r *SegmentRecorder) MarkVoice(at time.Time) {
	if r.recording {
		r.lastVoice = at
		r.voiceEnd = time.Time{}
	}
}

func (r *SegmentRecorder) MarkSilence(at time.Time) {
	if r.recording && !r.lastVoice.IsZero() && r.voiceEnd.IsZero() {
		r.voiceEnd = at
	}
}

// voicedSpan runs from the first voiced reading to the end of the last voiced
// window, which is the first unvoiced reading after it.
func (r *SegmentRecorder) voicedSpan() time.Duration {
	end := r.voiceEnd
	if end.IsZero() {
		end = r.lastVoice
	}
	return end.Sub(r.startedAt)
}

// Finish applies the minimum length to silence-triggered stops only; it is
// measured over the voiced span so trailing silence does not count.
func (r *SegmentRecorder) Finish(reason StopReason, minLength time.Duration) *Utterance {
	if !r.recording {
		return nil
	}
	defer r.reset()

	now := r.clock.Now()
	if reason == StopSilence {
		voiced := r.voicedSpan()
		if r.lastVoice.IsZero() || voiced < minLength {
			r.logger.Info("[Recorder] recording too short, discarded",
				zap.Duration("voiced", voiced), zap.Duration("min", minLength))
			return nil
		}
	}
	if len(r.buf) == 0 {
		r.logger.Info("[Recorder] no audio captured, discarded", zap.Stringer("reason", reason))
		return nil
	}

	elapsed := now.Sub(r.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return &Utterance{
		Audio:      media.Audio{Data: r.buf, Format: r.format},
		StartedAt:  r.startedAt,
		DurationMs: uint(elapsed.Milliseconds()),
		Reason:     reason,
	}
}

func (r *SegmentRecorder) Discard() {
	r.reset()
}

func (r *SegmentRecorder) Recording() bool {
	return r.recording
}

func (r *SegmentRecorder) reset() {
	r.buf = nil
	r.recording = false
	r.truncated = false
	r.startedAt = time.Time{}
	r.lastVoice = time.Time{}
	r.voiceEnd = time.Time{}
}
