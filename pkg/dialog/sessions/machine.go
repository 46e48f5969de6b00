package sessions

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/code-100-precent/LingTalk/pkg/vad"
	"go.uber.org/zap"
)

// Orchestrator performs the network and playback work of a turn. Every call
// must return immediately; results come back as events tagged with turn.
type Orchestrator interface {
	HandleUtterance(turn uint64, u Utterance)
	HandleTranscript(turn uint64, text string)
	HandleReply(turn uint64, text string)
	Play(turn uint64, audio media.Audio)
	CancelPlayback()
	ReportError(err *Error)
}

type MachineConfig struct {
	Settings     settings.Settings
	Recorder     Recorder
	Orchestrator Orchestrator
	Clock        Clock
	// Post enqueues an event for Handle. It is called from timer goroutines
	// and must not block.
	Post   func(Event)
	Logger *zap.Logger

	OnTransition func(from, to State)
	OnBargeIn    func()
	// OnHalt runs after the machine stopped itself because of err.
	OnHalt func(err *Error)
}

// TurnStateMachine owns turn taking. Handle, Start and Stop must be called
// from a single goroutine; State may be read from anywhere.
type TurnStateMachine struct {
	settings settings.Settings
	recorder Recorder
	orch     Orchestrator
	clock    Clock
	post     func(Event)
	logger   *zap.Logger

	onTransition func(from, to State)
	onBargeIn    func()
	onHalt       func(err *Error)

	state State
	view  atomic.Int32

	timer    Timer
	timerSeq uint64

	turn     uint64
	inFlight bool
}

func NewTurnStateMachine(cfg MachineConfig) *TurnStateMachine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	m := &TurnStateMachine{
		settings:     cfg.Settings,
		recorder:     cfg.Recorder,
		orch:         cfg.Orchestrator,
		clock:        cfg.Clock,
		post:         cfg.Post,
		logger:       cfg.Logger,
		onTransition: cfg.OnTransition,
		onBargeIn:    cfg.OnBargeIn,
		onHalt:       cfg.OnHalt,
		state:        StateIdle,
	}
	m.view.Store(int32(StateIdle))
	return m
}

func (m *TurnStateMachine) State() State {
	return State(m.view.Load())
}

func (m *TurnStateMachine) Start() error {
	if m.state != StateIdle {
		return ErrSessionActive
	}
	m.transition(StateListening)
	return nil
}

// Stop returns to Idle from any state. In-flight results become stale.
func (m *TurnStateMachine) Stop() {
	m.cancelSilenceTimer()
	m.recorder.Discard()
	m.orch.CancelPlayback()
	m.turn++
	m.inFlight = false
	m.transition(StateIdle)
}

func (m *TurnStateMachine) Handle(ev Event) {
	if m.state == StateIdle {
		if e, ok := ev.(SettingsChanged); ok {
			m.settings = e.Settings
		}
		return
	}

	switch e := ev.(type) {
	case ActivityTick:
		m.onActivity(e.Reading)
	case AudioChunk:
		if m.state == StateRecording {
			m.recorder.Append(e.Data)
		}
	case SilenceTimeout:
		m.onSilenceTimeout(e.Timer)
	case ManualStop:
		m.onManualStop()
	case SettingsChanged:
		m.settings = e.Settings
		m.logger.Info("[TurnStateMachine] settings updated",
			zap.Float64("vadThreshold", e.Settings.VADThreshold),
			zap.Uint("silenceTimeoutMs", e.Settings.SilenceTimeoutMs),
			zap.Uint("minRecordingLengthMs", e.Settings.MinRecordingLengthMs))
	case TranscriptReady:
		m.onTranscript(e)
	case ReplyReady:
		m.onReply(e)
	case AudioReady:
		if m.current(e.Turn, StateSpeaking) {
			m.orch.Play(e.Turn, e.Audio)
		} else {
			m.dropStale("audio", e.Turn)
		}
	case PlaybackEnded:
		m.onPlaybackEnded(e)
	case NetworkError:
		m.onNetworkError(e)
	}
}

func (m *TurnStateMachine) onActivity(r vad.ActivityReading) {
	voiced := r.Score > m.settings.VADThreshold

	switch m.state {
	case StateListening:
		if voiced {
			m.beginRecording(r)
		}
	case StateRecording:
		if voiced {
			m.cancelSilenceTimer()
			m.recorder.MarkVoice(r.Timestamp)
		} else if m.timer == nil {
			m.recorder.MarkSilence(r.Timestamp)
			m.armSilenceTimer()
		}
	case StateSpeaking:
		if voiced {
			m.logger.Info("[TurnStateMachine] barge-in", zap.Float64("score", r.Score), zap.Uint64("turn", m.turn))
			m.orch.CancelPlayback()
			m.inFlight = false
			m.beginRecording(r)
			if m.onBargeIn != nil {
				m.onBargeIn()
			}
		}
	}
}

func (m *TurnStateMachine) beginRecording(r vad.ActivityReading) {
	m.cancelSilenceTimer()
	m.recorder.Begin(r.Timestamp)
	m.recorder.MarkVoice(r.Timestamp)
	m.transition(StateRecording)
}

func (m *TurnStateMachine) armSilenceTimer() {
	m.timerSeq++
	id := m.timerSeq
	m.timer = m.clock.AfterFunc(m.settings.SilenceTimeout(), func() {
		m.post(SilenceTimeout{Timer: id})
	})
}

// cancelSilenceTimer also invalidates a timeout that already fired but is still queued.
func (m *TurnStateMachine) cancelSilenceTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerSeq++
}

func (m *TurnStateMachine) onSilenceTimeout(id uint64) {
	if id != m.timerSeq || m.timer == nil || m.state != StateRecording {
		return
	}
	m.timer = nil
	m.finishRecording(StopSilence)
}

func (m *TurnStateMachine) onManualStop() {
	if m.state != StateRecording {
		return
	}
	m.cancelSilenceTimer()
	m.finishRecording(StopManual)
}

func (m *TurnStateMachine) finishRecording(reason StopReason) {
	u := m.recorder.Finish(reason, m.settings.MinRecordingLength())
	if u == nil {
		m.transition(StateListening)
		return
	}
	m.dispatch(*u)
}

// dispatch starts a new turn. Recording is only reachable with no turn in flight.
func (m *TurnStateMachine) dispatch(u Utterance) {
	m.turn++
	m.inFlight = true
	m.transition(StateTranscribing)
	m.logger.Info("[TurnStateMachine] utterance dispatched",
		zap.Uint64("turn", m.turn),
		zap.Uint("durationMs", u.DurationMs),
		zap.Int("bytes", len(u.Audio.Data)),
		zap.Stringer("reason", u.Reason))
	m.orch.HandleUtterance(m.turn, u)
}

func (m *TurnStateMachine) current(turn uint64, want State) bool {
	return m.inFlight && turn == m.turn && m.state == want
}

func (m *TurnStateMachine) dropStale(what string, turn uint64) {
	m.logger.Debug("[TurnStateMachine] stale result dropped",
		zap.String("result", what), zap.Uint64("turn", turn), zap.Uint64("current", m.turn))
}

func (m *TurnStateMachine) onTranscript(e TranscriptReady) {
	if !m.current(e.Turn, StateTranscribing) {
		m.dropStale("transcript", e.Turn)
		return
	}
	text := strings.TrimSpace(e.Text)
	if text == "" {
		m.logger.Info("[TurnStateMachine] empty transcript, resuming", zap.Uint64("turn", e.Turn))
		m.resolveTurn(StateListening)
		return
	}
	m.transition(StateThinking)
	m.orch.HandleTranscript(e.Turn, text)
}

func (m *TurnStateMachine) onReply(e ReplyReady) {
	if !m.current(e.Turn, StateThinking) {
		m.dropStale("reply", e.Turn)
		return
	}
	m.transition(StateSpeaking)
	m.orch.HandleReply(e.Turn, e.Text)
}

func (m *TurnStateMachine) onPlaybackEnded(e PlaybackEnded) {
	if !m.current(e.Turn, StateSpeaking) {
		m.dropStale("playback", e.Turn)
		return
	}
	if e.Err != nil && !errors.Is(e.Err, media.ErrPlaybackCancelled) {
		m.logger.Warn("[TurnStateMachine] playback failed, treating as complete",
			zap.Uint64("turn", e.Turn), zap.Error(e.Err))
	}
	m.resolveTurn(StateListening)
}

func (m *TurnStateMachine) onNetworkError(e NetworkError) {
	if !m.inFlight || e.Turn != m.turn || e.Err == nil {
		m.dropStale("error", e.Turn)
		return
	}
	m.transition(StateError)
	m.orch.ReportError(e.Err)

	if e.Err.Kind == KindRateLimit {
		m.logger.Warn("[TurnStateMachine] rate limited, stopping session", zap.Error(e.Err))
		m.Stop()
		if m.onHalt != nil {
			m.onHalt(e.Err)
		}
		return
	}
	m.resolveTurn(StateListening)
}

func (m *TurnStateMachine) resolveTurn(next State) {
	m.inFlight = false
	m.transition(next)
}

func (m *TurnStateMachine) transition(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.view.Store(int32(to))
	m.logger.Info("[TurnStateMachine] state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}
