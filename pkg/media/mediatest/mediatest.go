// Package mediatest provides in-memory media.AudioSource and media.Player
// implementations for tests.
package mediatest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/code-100-precent/LingTalk/pkg/media"
)

// Source is an AudioSource fed by Push. Push must not be called after Close.
type Source struct {
	format media.StreamFormat
	ring   *media.RingBuffer
	chunks chan []byte

	closeOnce sync.Once
	closes    atomic.Int32
}

func NewSource(format media.StreamFormat, window int) *Source {
	return &Source{
		format: format,
		ring:   media.NewRingBuffer(window),
		chunks: make(chan []byte, 64),
	}
}

// Push records chunk as captured audio.
func (s *Source) Push(chunk []byte) {
	s.ring.Write(chunk)
	select {
	case s.chunks <- append([]byte(nil), chunk...):
	default:
	}
}

// Tone returns n 8-bit samples alternating around the midpoint by amp.
func Tone(n int, amp uint8) []byte {
	out := make([]byte, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 128 + amp
		} else {
			out[i] = 128 - amp
		}
	}
	return out
}

func (s *Source) Window(dst []uint8) int { return s.ring.Latest(dst) }

func (s *Source) Chunks() <-chan []byte { return s.chunks }

func (s *Source) Format() media.StreamFormat { return s.format }

func (s *Source) Close() error {
	s.closes.Add(1)
	s.closeOnce.Do(func() { close(s.chunks) })
	return nil
}

// Closes reports how many times Close was called.
func (s *Source) Closes() int { return int(s.closes.Load()) }

// Player records played audio. Playback lasts until Finish, Cancel or ctx.
type Player struct {
	mu       sync.Mutex
	played   []media.Audio
	current  chan error
	cancels  int
	AutoDone bool
	Err      error
}

func NewPlayer() *Player { return &Player{} }

func (p *Player) Play(ctx context.Context, audio media.Audio) error {
	p.mu.Lock()
	p.played = append(p.played, audio)
	if p.AutoDone {
		err := p.Err
		p.mu.Unlock()
		return err
	}
	done := make(chan error, 1)
	p.current = done
	p.mu.Unlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.mu.Lock()
		if p.current == done {
			p.current = nil
		}
		p.mu.Unlock()
		return ctx.Err()
	}
}

// Finish ends the current playback with err (nil for natural completion).
func (p *Player) Finish(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	p.current <- err
	p.current = nil
	return true
}

func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	if p.current != nil {
		p.current <- media.ErrPlaybackCancelled
		p.current = nil
	}
}

// Playing reports whether a Play call is waiting.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Player) Played() []media.Audio {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.Audio(nil), p.played...)
}

func (p *Player) Cancels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancels
}
