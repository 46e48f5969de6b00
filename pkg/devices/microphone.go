// Package devices adapts the local sound card to media.AudioSource and
// media.Player using miniaudio.
package devices

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

const chunkQueue = 256

type MicrophoneConfig struct {
	SampleRate int
	// WindowSize is how many recent samples Window can return.
	WindowSize int
	// DeviceName selects a capture device; empty uses the system default.
	DeviceName string
}

// Microphone captures mono signed 16-bit PCM. Window serves an unsigned
// 8-bit copy for activity detection.
type Microphone struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	ring   *media.RingBuffer
	format media.StreamFormat
	logger *zap.Logger

	mu      sync.Mutex
	chunks  chan []byte
	closed  bool
	dropped atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

var _ media.AudioSource = (*Microphone)(nil)

// OpenMicrophone acquires and starts the capture device.
func OpenMicrophone(cfg MicrophoneConfig, logger *zap.Logger) (*Microphone, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("[Microphone] backend", zap.String("msg", strings.TrimSpace(msg)))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	m := &Microphone{
		mctx:   mctx,
		ring:   media.NewRingBuffer(cfg.WindowSize),
		format: media.StreamFormat{SampleRate: cfg.SampleRate, BitDepth: 16, Channels: 1},
		logger: logger,
		chunks: make(chan []byte, chunkQueue),
	}

	dcfg := malgo.DefaultDeviceConfig(malgo.Capture)
	dcfg.Capture.Format = malgo.FormatS16
	dcfg.Capture.Channels = 1
	dcfg.SampleRate = uint32(cfg.SampleRate)

	if cfg.DeviceName != "" {
		id, err := findDevice(mctx, malgo.Capture, cfg.DeviceName)
		if err != nil {
			m.freeContext()
			return nil, err
		}
		dcfg.Capture.DeviceID = id.Pointer()
	}

	device, err := malgo.InitDevice(mctx.Context, dcfg, malgo.DeviceCallbacks{Data: m.onData})
	if err != nil {
		m.freeContext()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		m.freeContext()
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	m.device = device

	logger.Info("[Microphone] capture started",
		zap.Int("sampleRate", cfg.SampleRate),
		zap.String("device", cfg.DeviceName))
	return m, nil
}

func (m *Microphone) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	chunk := append([]byte(nil), input...)
	m.ring.Write(media.S16ToU8(chunk))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.chunks <- chunk:
	default:
		if m.dropped.Add(1)%100 == 1 {
			m.logger.Warn("[Microphone] consumer too slow, dropping audio", zap.Uint64("dropped", m.dropped.Load()))
		}
	}
}

func (m *Microphone) Window(dst []uint8) int {
	return m.ring.Latest(dst)
}

func (m *Microphone) Chunks() <-chan []byte {
	return m.chunks
}

func (m *Microphone) Format() media.StreamFormat {
	return m.format
}

// Close stops capture and releases the device. Only the first call has effect.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		if m.device != nil {
			if err := m.device.Stop(); err != nil {
				m.closeErr = fmt.Errorf("stop capture device: %w", err)
			}
			m.device.Uninit()
		}
		m.freeContext()

		m.mu.Lock()
		m.closed = true
		close(m.chunks)
		m.mu.Unlock()

		m.logger.Info("[Microphone] capture released", zap.Uint64("dropped", m.dropped.Load()))
	})
	return m.closeErr
}

func (m *Microphone) freeContext() {
	_ = m.mctx.Uninit()
	m.mctx.Free()
}
