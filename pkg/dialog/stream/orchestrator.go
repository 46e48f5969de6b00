// Package stream runs the network half of a dialogue turn: transcription,
// reply generation, synthesis and playback.
package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/dialog/sessions"
	"github.com/code-100-precent/LingTalk/pkg/llm"
	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/recognizer"
	"github.com/code-100-precent/LingTalk/pkg/synthesizer"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	Transcriber recognizer.Transcriber
	Agent       llm.DialogueAgent
	Synthesizer synthesizer.SpeechSynthesizer
	Player      media.Player
	Voice       string

	History *sessions.History
	// Post delivers results to the state machine. It must not block.
	Post    func(sessions.Event)
	Errors  *sessions.ErrHandler
	Metrics *Metrics
	// Timeout bounds each service call.
	Timeout time.Duration
	Logger  *zap.Logger
	// OnMessage is called for every message appended to History.
	OnMessage func(sessions.Message)
}

// ConversationOrchestrator implements sessions.Orchestrator. Each stage runs
// on its own goroutine and posts exactly one event when done.
type ConversationOrchestrator struct {
	cfg    Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	playMu     sync.Mutex
	stopPlayer context.CancelFunc
}

var _ sessions.Orchestrator = (*ConversationOrchestrator)(nil)

func NewConversationOrchestrator(ctx context.Context, cfg Config) *ConversationOrchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Errors == nil {
		cfg.Errors = sessions.NewErrHandler(cfg.Logger)
	}
	if cfg.History == nil {
		cfg.History = sessions.NewHistory(sessions.MaxHistory)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ConversationOrchestrator{
		cfg:    cfg,
		logger: cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (o *ConversationOrchestrator) HandleUtterance(turn uint64, u sessions.Utterance) {
	o.spawn(func(ctx context.Context) {
		var text string
		start := time.Now()
		serr := o.attempt(ctx, sessions.KindTranscription, func(ctx context.Context) error {
			var err error
			text, err = o.cfg.Transcriber.Transcribe(ctx, u.Audio, u.DurationMs)
			return err
		})
		o.cfg.Metrics.stage("transcribe", start)
		if serr != nil {
			o.fail(turn, serr)
			return
		}
		if text == "" {
			o.cfg.Metrics.turn(OutcomeEmpty)
		}
		o.cfg.Post(sessions.TranscriptReady{Turn: turn, Text: text})
	})
}

// HandleTranscript records the user message and asks for a reply.
func (o *ConversationOrchestrator) HandleTranscript(turn uint64, text string) {
	o.appendMessage(sessions.RoleUser, text)
	window := o.cfg.History.Context(sessions.ContextWindow)

	o.spawn(func(ctx context.Context) {
		history := make([]llm.Message, 0, len(window))
		for _, m := range window {
			history = append(history, llm.Message{Role: string(m.Role), Content: m.Content})
		}

		var reply string
		start := time.Now()
		serr := o.attempt(ctx, sessions.KindDialogue, func(ctx context.Context) error {
			var err error
			reply, err = o.cfg.Agent.Reply(ctx, history)
			return err
		})
		o.cfg.Metrics.stage("dialogue", start)
		if serr != nil {
			o.fail(turn, serr)
			return
		}
		o.cfg.Post(sessions.ReplyReady{Turn: turn, Text: reply})
	})
}

// HandleReply records the assistant message and synthesizes it.
func (o *ConversationOrchestrator) HandleReply(turn uint64, text string) {
	o.appendMessage(sessions.RoleAssistant, text)

	o.spawn(func(ctx context.Context) {
		var audio media.Audio
		start := time.Now()
		serr := o.attempt(ctx, sessions.KindSynthesis, func(ctx context.Context) error {
			var err error
			audio, err = o.cfg.Synthesizer.Synthesize(ctx, text, o.cfg.Voice)
			return err
		})
		o.cfg.Metrics.stage("synthesis", start)
		if serr != nil {
			o.fail(turn, serr)
			return
		}
		o.cfg.Post(sessions.AudioReady{Turn: turn, Audio: audio})
	})
}

// Play starts playback on its own context so CancelPlayback also stops a
// playback whose goroutine has not reached the player yet.
func (o *ConversationOrchestrator) Play(turn uint64, audio media.Audio) {
	playCtx, stop := context.WithCancel(o.ctx)
	o.playMu.Lock()
	if o.stopPlayer != nil {
		o.stopPlayer()
	}
	o.stopPlayer = stop
	o.playMu.Unlock()

	o.spawn(func(context.Context) {
		defer stop()
		start := time.Now()
		err := o.play(playCtx, audio)
		o.cfg.Metrics.stage("playback", start)

		switch {
		case err == nil:
			o.cfg.Metrics.turn(OutcomeCompleted)
		case errors.Is(err, media.ErrPlaybackCancelled):
			o.cfg.Metrics.turn(OutcomeInterrupted)
		default:
			o.cfg.Metrics.failure(string(sessions.KindPlayback))
			o.cfg.Metrics.turn(OutcomeCompleted)
		}
		o.cfg.Post(sessions.PlaybackEnded{Turn: turn, Err: err})
	})
}

func (o *ConversationOrchestrator) play(ctx context.Context, audio media.Audio) error {
	if ctx.Err() != nil {
		return media.ErrPlaybackCancelled
	}
	err := o.cfg.Player.Play(ctx, audio)
	if err != nil && errors.Is(err, context.Canceled) {
		return media.ErrPlaybackCancelled
	}
	return err
}

func (o *ConversationOrchestrator) CancelPlayback() {
	o.playMu.Lock()
	if o.stopPlayer != nil {
		o.stopPlayer()
		o.stopPlayer = nil
	}
	o.playMu.Unlock()
	o.cfg.Player.Cancel()
}

// ReportError surfaces err as a system notice. Notices never reach the dialogue agent.
func (o *ConversationOrchestrator) ReportError(err *sessions.Error) {
	o.appendMessage(sessions.RoleSystem, err.Notice())
}

// Close cancels outstanding calls and waits for their goroutines.
func (o *ConversationOrchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *ConversationOrchestrator) spawn(fn func(ctx context.Context)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(o.ctx)
	}()
}

// attempt runs fn with the call timeout and retries a transient failure once.
func (o *ConversationOrchestrator) attempt(ctx context.Context, kind sessions.Kind, fn func(ctx context.Context) error) *sessions.Error {
	err := o.call(ctx, fn)
	if err == nil {
		return nil
	}
	classified := o.cfg.Errors.Classify(err, kind)
	if classified.Type == sessions.ErrorTypeTransient && ctx.Err() == nil {
		o.logger.Warn("[Orchestrator] transient failure, retrying once",
			zap.String("kind", string(kind)), zap.Error(err))
		if err = o.call(ctx, fn); err == nil {
			return nil
		}
	}
	final := o.cfg.Errors.HandleError(err, kind)
	if final.Type == sessions.ErrorTypeTransient {
		final.Type = sessions.ErrorTypeRecoverable
	}
	return final
}

func (o *ConversationOrchestrator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	return fn(ctx)
}

func (o *ConversationOrchestrator) fail(turn uint64, err *sessions.Error) {
	o.cfg.Metrics.failure(string(err.Kind))
	o.cfg.Metrics.turn(OutcomeFailed)
	o.cfg.Post(sessions.NetworkError{Turn: turn, Err: err})
}

func (o *ConversationOrchestrator) appendMessage(role sessions.Role, content string) {
	msg := o.cfg.History.Append(role, content)
	if o.cfg.OnMessage != nil {
		o.cfg.OnMessage(msg)
	}
}
