package vad

import (
	"math"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"go.uber.org/zap"
)

const (
	// DefaultWindowSize is the number of samples reduced per tick.
	DefaultWindowSize = 1024

	midpoint    = 128.0
	logInterval = 3 * time.Second
)

// ActivityReading is one energy sample. It is consumed immediately and never stored.
type ActivityReading struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// EnergyDetector reduces the newest window of an AudioSource to an RMS score.
// It is driven by the caller's ticker and is not safe for concurrent Sample calls.
type EnergyDetector struct {
	source  media.AudioSource
	window  []uint8
	logger  *zap.Logger
	lastLog time.Time
}

func NewEnergyDetector(source media.AudioSource, windowSize int, logger *zap.Logger) *EnergyDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &EnergyDetector{
		source: source,
		window: make([]uint8, windowSize),
		logger: logger,
	}
}

// Sample reads the current window. ok is false while the source has no data.
func (d *EnergyDetector) Sample(now time.Time) (reading ActivityReading, ok bool) {
	n := d.source.Window(d.window)
	if n == 0 {
		return ActivityReading{}, false
	}
	score := RMS(d.window[:n])

	if now.Sub(d.lastLog) >= logInterval {
		d.lastLog = now
		d.logger.Debug("[VAD] activity", zap.Float64("rms", score), zap.Int("samples", n))
	}
	return ActivityReading{Timestamp: now, Score: score}, true
}

// RMS of 8-bit samples normalised to [-1, 1] around the midpoint.
func RMS(samples []uint8) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := (float64(s) - midpoint) / midpoint
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Intensity maps a score to [0, 1] for level meters; it plays no part in turn taking.
func Intensity(score, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return math.Min(score/(threshold*3), 1)
}
