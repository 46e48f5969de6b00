package sessions

import (
	"errors"
	"testing"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/code-100-precent/LingTalk/pkg/vad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const tick = 20 * time.Millisecond

type fakeOrchestrator struct {
	utterances  []Utterance
	transcripts []string
	replies     []string
	played      []media.Audio
	cancels     int
	reported    []*Error
	turns       []uint64
}

func (o *fakeOrchestrator) HandleUtterance(turn uint64, u Utterance) {
	o.turns = append(o.turns, turn)
	o.utterances = append(o.utterances, u)
}
func (o *fakeOrchestrator) HandleTranscript(_ uint64, text string) {
	o.transcripts = append(o.transcripts, text)
}
func (o *fakeOrchestrator) HandleReply(_ uint64, text string) { o.replies = append(o.replies, text) }
func (o *fakeOrchestrator) Play(_ uint64, a media.Audio)      { o.played = append(o.played, a) }
func (o *fakeOrchestrator) CancelPlayback()                   { o.cancels++ }
func (o *fakeOrchestrator) ReportError(err *Error)            { o.reported = append(o.reported, err) }

type harness struct {
	t        *testing.T
	clock    *fakeClock
	orch     *fakeOrchestrator
	m        *TurnStateMachine
	queue    []Event
	states   []State
	bargeIns int
	halted   *Error
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, clock: newFakeClock(), orch: &fakeOrchestrator{}}
	logger := zaptest.NewLogger(t)
	h.m = NewTurnStateMachine(MachineConfig{
		Settings:     settings.Defaults(),
		Recorder:     NewSegmentRecorder(h.clock, testFormat, logger),
		Orchestrator: h.orch,
		Clock:        h.clock,
		Post:         func(ev Event) { h.queue = append(h.queue, ev) },
		Logger:       logger,
		OnTransition: func(_, to State) { h.states = append(h.states, to) },
		OnBargeIn:    func() { h.bargeIns++ },
		OnHalt:       func(err *Error) { h.halted = err },
	})
	require.NoError(t, h.m.Start())
	return h
}

func (h *harness) pump() {
	for len(h.queue) > 0 {
		ev := h.queue[0]
		h.queue = h.queue[1:]
		h.m.Handle(ev)
	}
}

// run feeds ticks carrying score for d, advancing the clock between ticks.
func (h *harness) run(d time.Duration, score float64) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += tick {
		h.m.Handle(ActivityTick{Reading: vad.ActivityReading{Timestamp: h.clock.Now(), Score: score}})
		h.m.Handle(AudioChunk{Data: make([]byte, 320)})
		h.clock.Advance(tick)
		h.pump()
	}
}

// speakTurn records a long utterance and lets silence dispatch it.
func (h *harness) speakTurn() {
	h.run(1200*time.Millisecond, 0.5)
	h.run(time.Second, 0.001)
	require.Equal(h.t, StateTranscribing, h.m.State())
}

func TestMachine_ShortUtteranceIsDiscarded(t *testing.T) {
	h := newHarness(t)

	h.run(500*time.Millisecond, 0.5)
	assert.Equal(t, StateRecording, h.m.State())

	h.run(time.Second, 0.001)
	assert.Equal(t, StateListening, h.m.State())
	assert.Empty(t, h.orch.utterances)
}

func TestMachine_UtteranceAtMinimumLengthIsKept(t *testing.T) {
	h := newHarness(t)

	h.run(time.Second, 0.5)
	h.run(time.Second, 0.001)
	assert.Equal(t, StateTranscribing, h.m.State())
	require.Len(t, h.orch.utterances, 1)
}

func TestMachine_LongUtteranceIsTranscribed(t *testing.T) {
	h := newHarness(t)

	h.run(1200*time.Millisecond, 0.5)
	h.run(600*time.Millisecond, 0.001)
	assert.Equal(t, StateRecording, h.m.State(), "silence timeout not reached yet")

	h.run(200*time.Millisecond, 0.001)
	assert.Equal(t, StateTranscribing, h.m.State())
	require.Len(t, h.orch.utterances, 1)
	assert.Equal(t, []uint64{1}, h.orch.turns)

	u := h.orch.utterances[0]
	assert.Equal(t, StopSilence, u.Reason)
	assert.GreaterOrEqual(t, u.DurationMs, uint(1800))
	assert.NotEmpty(t, u.Audio.Data)
	assert.Equal(t, testFormat, u.Audio.Format)
}

func TestMachine_ContinuousActivityKeepsRecording(t *testing.T) {
	h := newHarness(t)

	h.run(3*time.Second, 0.5)
	assert.Equal(t, StateRecording, h.m.State())
	assert.Empty(t, h.queue)
	assert.Empty(t, h.orch.utterances)
}

func TestMachine_ActivityResetsSilenceTimer(t *testing.T) {
	h := newHarness(t)

	h.run(1200*time.Millisecond, 0.5)
	h.run(400*time.Millisecond, 0.001)
	h.run(100*time.Millisecond, 0.5)
	h.run(400*time.Millisecond, 0.001)
	assert.Equal(t, StateRecording, h.m.State())

	h.run(400*time.Millisecond, 0.001)
	assert.Equal(t, StateTranscribing, h.m.State())
}

func TestMachine_StaleSilenceTimeoutIgnored(t *testing.T) {
	h := newHarness(t)

	h.run(100*time.Millisecond, 0.5)
	h.run(40*time.Millisecond, 0.001)
	h.run(40*time.Millisecond, 0.5)

	for id := uint64(0); id < 10; id++ {
		h.m.Handle(SilenceTimeout{Timer: id})
	}
	assert.Equal(t, StateRecording, h.m.State())
}

func TestMachine_FullTurn(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()

	h.m.Handle(TranscriptReady{Turn: 1, Text: "  what time is it  "})
	assert.Equal(t, StateThinking, h.m.State())
	assert.Equal(t, []string{"what time is it"}, h.orch.transcripts)

	h.m.Handle(ReplyReady{Turn: 1, Text: "noon"})
	assert.Equal(t, StateSpeaking, h.m.State())
	assert.Equal(t, []string{"noon"}, h.orch.replies)

	h.m.Handle(AudioReady{Turn: 1, Audio: media.Audio{Data: []byte{1, 2}}})
	require.Len(t, h.orch.played, 1)

	h.m.Handle(PlaybackEnded{Turn: 1})
	assert.Equal(t, StateListening, h.m.State())
	assert.Equal(t,
		[]State{StateListening, StateRecording, StateTranscribing, StateThinking, StateSpeaking, StateListening},
		h.states)
}

func TestMachine_PlaybackFailureTreatedAsCompletion(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()
	h.m.Handle(TranscriptReady{Turn: 1, Text: "hi"})
	h.m.Handle(ReplyReady{Turn: 1, Text: "hello"})

	h.m.Handle(PlaybackEnded{Turn: 1, Err: errors.New("device lost")})
	assert.Equal(t, StateListening, h.m.State())
	assert.Empty(t, h.orch.reported)
}

func TestMachine_EmptyTranscriptResumesListening(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()

	h.m.Handle(TranscriptReady{Turn: 1, Text: "   "})
	assert.Equal(t, StateListening, h.m.State())
	assert.Empty(t, h.orch.transcripts)

	h.speakTurn()
	assert.Equal(t, []uint64{1, 2}, h.orch.turns)
}

func TestMachine_BargeIn(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()
	h.m.Handle(TranscriptReady{Turn: 1, Text: "tell me a story"})
	h.m.Handle(ReplyReady{Turn: 1, Text: "once upon a time"})
	h.m.Handle(AudioReady{Turn: 1, Audio: media.Audio{Data: []byte{1}}})
	cancelsBefore := h.orch.cancels

	h.run(tick, 0.5)
	assert.Equal(t, StateRecording, h.m.State())
	assert.Equal(t, cancelsBefore+1, h.orch.cancels)
	assert.Equal(t, 1, h.bargeIns)

	// the interrupted turn's completion arrives late
	h.m.Handle(PlaybackEnded{Turn: 1, Err: media.ErrPlaybackCancelled})
	assert.Equal(t, StateRecording, h.m.State())

	h.run(1200*time.Millisecond, 0.5)
	h.run(time.Second, 0.001)
	assert.Equal(t, StateTranscribing, h.m.State())
	assert.Equal(t, []uint64{1, 2}, h.orch.turns)
}

func TestMachine_ActivityIgnoredWhileBusy(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()

	h.run(200*time.Millisecond, 0.5)
	assert.Equal(t, StateTranscribing, h.m.State())

	h.m.Handle(TranscriptReady{Turn: 1, Text: "hi"})
	h.run(200*time.Millisecond, 0.5)
	assert.Equal(t, StateThinking, h.m.State())
	assert.Len(t, h.orch.utterances, 1)
}

func TestMachine_RecoverableErrorResumesListening(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()

	err := NewRecoverableError(KindTranscription, "transcription failed", errors.New("bad audio"))
	h.m.Handle(NetworkError{Turn: 1, Err: err})

	assert.Equal(t, StateListening, h.m.State())
	require.Len(t, h.orch.reported, 1)
	assert.Same(t, err, h.orch.reported[0])
	assert.Contains(t, h.states, StateError)
	assert.Nil(t, h.halted)
}

func TestMachine_RateLimitStopsSession(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()
	h.m.Handle(TranscriptReady{Turn: 1, Text: "hi"})

	err := NewRateLimitError("dialogue", "quota reached", errors.New("429"))
	h.m.Handle(NetworkError{Turn: 1, Err: err})

	assert.Equal(t, StateIdle, h.m.State())
	assert.Same(t, err, h.halted)
	require.Len(t, h.orch.reported, 1)

	h.run(2*time.Second, 0.5)
	assert.Equal(t, StateIdle, h.m.State())
	assert.Len(t, h.orch.utterances, 1)
}

func TestMachine_StaleResultsDropped(t *testing.T) {
	h := newHarness(t)
	h.speakTurn()

	h.m.Stop()
	require.NoError(t, h.m.Start())

	h.m.Handle(TranscriptReady{Turn: 1, Text: "late"})
	h.m.Handle(NetworkError{Turn: 1, Err: NewRecoverableError(KindTranscription, "late", nil)})
	assert.Equal(t, StateListening, h.m.State())
	assert.Empty(t, h.orch.transcripts)
	assert.Empty(t, h.orch.reported)
}

func TestMachine_StopIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.run(200*time.Millisecond, 0.5)

	h.m.Stop()
	h.m.Stop()
	assert.Equal(t, StateIdle, h.m.State())

	idle := 0
	for _, s := range h.states {
		if s == StateIdle {
			idle++
		}
	}
	assert.Equal(t, 1, idle)

	h.run(time.Second, 0.001)
	assert.Empty(t, h.queue)
	assert.Equal(t, StateIdle, h.m.State())
}

func TestMachine_StartTwice(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.m.Start(), ErrSessionActive)
}

func TestMachine_ManualStopBypassesMinimumLength(t *testing.T) {
	h := newHarness(t)
	h.run(300*time.Millisecond, 0.5)

	h.m.Handle(ManualStop{})
	assert.Equal(t, StateTranscribing, h.m.State())
	require.Len(t, h.orch.utterances, 1)
	assert.Equal(t, StopManual, h.orch.utterances[0].Reason)
}

func TestMachine_ManualStopOutsideRecordingIgnored(t *testing.T) {
	h := newHarness(t)
	h.m.Handle(ManualStop{})
	assert.Equal(t, StateListening, h.m.State())
	assert.Empty(t, h.orch.utterances)
}

func TestMachine_SettingsChangeAppliesToNextTick(t *testing.T) {
	h := newHarness(t)

	s := settings.Defaults()
	s.VADThreshold = 0.3
	h.m.Handle(SettingsChanged{Settings: s})

	h.run(200*time.Millisecond, 0.2)
	assert.Equal(t, StateListening, h.m.State())

	h.run(tick, 0.4)
	assert.Equal(t, StateRecording, h.m.State())
}
