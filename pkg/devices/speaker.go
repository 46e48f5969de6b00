package devices

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// Speaker plays signed 16-bit PCM on the default or a named playback device.
// A device is opened per Play call so each reply can carry its own sample rate.
type Speaker struct {
	mctx     *malgo.AllocatedContext
	deviceID *malgo.DeviceID
	logger   *zap.Logger

	mu      sync.Mutex
	current chan struct{}
}

var _ media.Player = (*Speaker)(nil)

func OpenSpeaker(deviceName string, logger *zap.Logger) (*Speaker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("[Speaker] backend", zap.String("msg", strings.TrimSpace(msg)))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	s := &Speaker{mctx: mctx, logger: logger}
	if deviceName != "" {
		id, err := findDevice(mctx, malgo.Playback, deviceName)
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			return nil, err
		}
		s.deviceID = &id
	}
	return s, nil
}

func (s *Speaker) Play(ctx context.Context, audio media.Audio) error {
	data, err := toPCM16(audio)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	channels := audio.Format.Channels
	if channels <= 0 {
		channels = 1
	}

	dcfg := malgo.DefaultDeviceConfig(malgo.Playback)
	dcfg.Playback.Format = malgo.FormatS16
	dcfg.Playback.Channels = uint32(channels)
	dcfg.SampleRate = uint32(audio.Format.SampleRate)
	if s.deviceID != nil {
		dcfg.Playback.DeviceID = s.deviceID.Pointer()
	}

	reader := bytes.NewReader(data)
	done := make(chan struct{})
	var doneOnce sync.Once
	onData := func(output, _ []byte, _ uint32) {
		n, _ := io.ReadFull(reader, output)
		if n < len(output) {
			clear(output[n:])
			doneOnce.Do(func() { close(done) })
		}
	}

	cancel := make(chan struct{})
	s.mu.Lock()
	if s.current != nil {
		close(s.current)
	}
	s.current = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.current == cancel {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	device, err := malgo.InitDevice(s.mctx.Context, dcfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	// Cancel may have arrived while the device was opening.
	select {
	case <-cancel:
		return media.ErrPlaybackCancelled
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	defer func() { _ = device.Stop() }()

	select {
	case <-done:
		return nil
	case <-cancel:
		return media.ErrPlaybackCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the current playback immediately, discarding unplayed audio.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		close(s.current)
		s.current = nil
	}
}

func (s *Speaker) Close() error {
	s.Cancel()
	err := s.mctx.Uninit()
	s.mctx.Free()
	return err
}

// toPCM16 returns audio as signed 16-bit little-endian bytes.
func toPCM16(a media.Audio) ([]byte, error) {
	switch a.Format.BitDepth {
	case 16:
		return a.Data, nil
	case 8:
		samples := media.U8ToS16(a.Data)
		out := make([]byte, len(samples)*2)
		for i, v := range samples {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", a.Format.BitDepth)
	}
}
