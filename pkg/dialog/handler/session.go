// Package handler owns the live audio session: it acquires the microphone,
// drives the sampling loop and feeds every event to the turn state machine
// from a single goroutine.
package handler

import (
	"context"
	"sync"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/dialog/sessions"
	"github.com/code-100-precent/LingTalk/pkg/dialog/stream"
	"github.com/code-100-precent/LingTalk/pkg/events"
	"github.com/code-100-precent/LingTalk/pkg/llm"
	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/recognizer"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/code-100-precent/LingTalk/pkg/synthesizer"
	"github.com/code-100-precent/LingTalk/pkg/vad"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTickInterval = 20 * time.Millisecond
	levelInterval       = 100 * time.Millisecond
	queueSize           = 64
)

// SourceOpener acquires the capture device for one session run.
type SourceOpener func(ctx context.Context) (media.AudioSource, error)

type Options struct {
	OpenSource  SourceOpener
	Player      media.Player
	Transcriber recognizer.Transcriber
	Agent       llm.DialogueAgent
	Synthesizer synthesizer.SpeechSynthesizer
	Voice       string

	Store   settings.Store
	Bus     *events.EventBus
	Metrics *stream.Metrics

	TickInterval   time.Duration
	WindowSize     int
	ServiceTimeout time.Duration
	Clock          sessions.Clock
	Logger         *zap.Logger
}

// Snapshot is a point-in-time view of the session for status endpoints.
type Snapshot struct {
	ID       string             `json:"id"`
	State    string             `json:"state"`
	Status   string             `json:"status"`
	Active   bool               `json:"active"`
	Settings settings.Settings  `json:"settings"`
	History  []sessions.Message `json:"history"`
}

// AudioSession is the single live conversation of this process.
type AudioSession struct {
	opts    Options
	id      string
	logger  *zap.Logger
	history *sessions.History
	errs    *sessions.ErrHandler

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	settings settings.Settings
	rt       *runtime
}

// runtime is everything acquired by one Start and released by the matching stop.
type runtime struct {
	source    media.AudioSource
	detector  *vad.EnergyDetector
	machine   *sessions.TurnStateMachine
	orch      *stream.ConversationOrchestrator
	queue     chan sessions.Event
	done      chan struct{}
	exited    chan struct{}
	stopOnce  sync.Once
	lastLevel time.Time
}

// post enqueues ev for the actor. After stop it is a no-op.
func (rt *runtime) post(ev sessions.Event) {
	select {
	case <-rt.done:
	case rt.queue <- ev:
	}
}

func NewAudioSession(opts Options) *AudioSession {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = vad.DefaultWindowSize
	}
	if opts.Clock == nil {
		opts.Clock = sessions.RealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &AudioSession{
		opts:    opts,
		id:      uuid.NewString(),
		logger:  opts.Logger,
		history: sessions.NewHistory(sessions.MaxHistory),
		errs:    sessions.NewErrHandler(opts.Logger),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.settings = opts.Store.Load(ctx)
	return s
}

func (s *AudioSession) ID() string { return s.id }

// Start acquires the microphone and begins listening. Acquisition failures
// are returned as *sessions.Error of kind acquisition and leave the session idle.
func (s *AudioSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rt != nil {
		return sessions.ErrSessionActive
	}

	source, err := s.opts.OpenSource(ctx)
	if err != nil {
		aerr := sessions.NewAcquisitionError(err)
		s.logger.Error("[AudioSession] microphone unavailable", zap.Error(err))
		s.publish(events.TypeSessionError, map[string]interface{}{
			"kind":   string(aerr.Kind),
			"notice": aerr.Notice(),
		})
		return aerr
	}

	current := s.opts.Store.Load(ctx)
	s.settings = current

	rt := &runtime{
		source:   source,
		detector: vad.NewEnergyDetector(source, s.opts.WindowSize, s.logger.Named("vad")),
		queue:    make(chan sessions.Event, queueSize),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	rt.orch = stream.NewConversationOrchestrator(s.baseCtx, stream.Config{
		Transcriber: s.opts.Transcriber,
		Agent:       s.opts.Agent,
		Synthesizer: s.opts.Synthesizer,
		Player:      s.opts.Player,
		Voice:       s.opts.Voice,
		History:     s.history,
		Post:        rt.post,
		Errors:      s.errs,
		Metrics:     s.opts.Metrics,
		Timeout:     s.opts.ServiceTimeout,
		Logger:      s.logger,
		OnMessage:   s.publishMessage,
	})
	rt.machine = sessions.NewTurnStateMachine(sessions.MachineConfig{
		Settings:     current,
		Recorder:     sessions.NewSegmentRecorder(s.opts.Clock, source.Format(), s.logger),
		Orchestrator: rt.orch,
		Clock:        s.opts.Clock,
		Post:         rt.post,
		Logger:       s.logger,
		OnTransition: s.publishState,
		OnBargeIn: func() {
			s.opts.Metrics.BargeIn()
			s.publish(events.TypeBargeIn, nil)
		},
		OnHalt: func(err *sessions.Error) {
			s.publish(events.TypeSessionError, map[string]interface{}{
				"kind":   string(err.Kind),
				"notice": err.Notice(),
			})
			go s.halt(rt)
		},
	})

	if err := rt.machine.Start(); err != nil {
		_ = source.Close()
		return err
	}
	s.rt = rt
	go s.run(rt)

	s.logger.Info("[AudioSession] started",
		zap.String("session", s.id),
		zap.Duration("tick", s.opts.TickInterval),
		zap.Float64("vadThreshold", current.VADThreshold),
		zap.Uint("silenceTimeoutMs", current.SilenceTimeoutMs),
		zap.Uint("minRecordingLengthMs", current.MinRecordingLengthMs))
	return nil
}

// Stop returns the session to idle and releases the microphone. Calling it
// again, or on an idle session, does nothing.
func (s *AudioSession) Stop() {
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	s.mu.Unlock()

	if rt != nil {
		s.shutdown(rt)
	}
}

// Close stops the session and abandons outstanding service calls.
func (s *AudioSession) Close() {
	s.Stop()
	s.cancel()
}

// FinishUtterance ends the current recording now, bypassing the minimum length.
func (s *AudioSession) FinishUtterance() error {
	s.mu.Lock()
	rt := s.rt
	s.mu.Unlock()
	if rt == nil {
		return sessions.ErrSessionInactive
	}
	rt.post(sessions.ManualStop{})
	return nil
}

// UpdateSettings validates and persists next, then applies it to a running session.
func (s *AudioSession) UpdateSettings(ctx context.Context, next settings.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.opts.Store.Save(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = next
	rt := s.rt
	s.mu.Unlock()

	if rt != nil {
		rt.post(sessions.SettingsChanged{Settings: next})
	}
	s.logger.Info("[AudioSession] settings saved", zap.Bool("applied", rt != nil))
	return nil
}

func (s *AudioSession) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *AudioSession) History() []sessions.Message {
	return s.history.Messages()
}

func (s *AudioSession) State() sessions.State {
	s.mu.Lock()
	rt := s.rt
	s.mu.Unlock()
	if rt == nil {
		return sessions.StateIdle
	}
	return rt.machine.State()
}

func (s *AudioSession) Snapshot() Snapshot {
	s.mu.Lock()
	rt := s.rt
	current := s.settings
	s.mu.Unlock()

	state := sessions.StateIdle
	if rt != nil {
		state = rt.machine.State()
	}
	return Snapshot{
		ID:       s.id,
		State:    state.String(),
		Status:   state.StatusText(),
		Active:   rt != nil,
		Settings: current,
		History:  s.history.Messages(),
	}
}

func (s *AudioSession) run(rt *runtime) {
	defer close(rt.exited)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	chunks := rt.source.Chunks()

	for {
		select {
		case <-rt.done:
			return
		case now := <-ticker.C:
			reading, ok := rt.detector.Sample(now)
			if !ok {
				continue
			}
			s.publishLevel(rt, reading)
			rt.machine.Handle(sessions.ActivityTick{Reading: reading})
		case chunk, ok := <-chunks:
			if !ok {
				s.logger.Warn("[AudioSession] audio source closed")
				chunks = nil
				continue
			}
			rt.machine.Handle(sessions.AudioChunk{Data: chunk})
		case ev := <-rt.queue:
			rt.machine.Handle(ev)
		}
	}
}

// halt is the self-stop after a session-ending error.
func (s *AudioSession) halt(rt *runtime) {
	s.mu.Lock()
	if s.rt == rt {
		s.rt = nil
	}
	s.mu.Unlock()
	s.shutdown(rt)
}

func (s *AudioSession) shutdown(rt *runtime) {
	rt.stopOnce.Do(func() {
		close(rt.done)
		<-rt.exited

		rt.machine.Stop()
		if err := rt.source.Close(); err != nil {
			s.logger.Warn("[AudioSession] release microphone failed", zap.Error(err))
		}
		s.logger.Info("[AudioSession] stopped", zap.String("session", s.id))
	})
}

func (s *AudioSession) publish(eventType string, data map[string]interface{}) {
	s.opts.Bus.PublishEvent(eventType, data, "session:"+s.id)
}

func (s *AudioSession) publishState(from, to sessions.State) {
	s.publish(events.TypeSessionState, map[string]interface{}{
		"from":   from.String(),
		"to":     to.String(),
		"status": to.StatusText(),
	})
}

func (s *AudioSession) publishMessage(msg sessions.Message) {
	s.publish(events.TypeSessionMessage, map[string]interface{}{
		"id":        msg.ID,
		"role":      string(msg.Role),
		"content":   msg.Content,
		"timestamp": msg.Timestamp,
	})
}

// publishLevel emits the meter value at most every levelInterval.
func (s *AudioSession) publishLevel(rt *runtime, r vad.ActivityReading) {
	if r.Timestamp.Sub(rt.lastLevel) < levelInterval {
		return
	}
	rt.lastLevel = r.Timestamp

	s.mu.Lock()
	threshold := s.settings.VADThreshold
	s.mu.Unlock()

	s.publish(events.TypeSessionLevel, map[string]interface{}{
		"score":     r.Score,
		"intensity": vad.Intensity(r.Score, threshold),
	})
}
