package vad

import (
	"testing"
	"time"

	"github.com/code-100-precent/LingTalk/pkg/media"
	"github.com/code-100-precent/LingTalk/pkg/media/mediatest"
	"github.com/stretchr/testify/assert"
)

var testFormat = media.StreamFormat{SampleRate: 16000, BitDepth: 8, Channels: 1}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []uint8
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", []uint8{128, 128, 128, 128}, 0},
		{"full scale", []uint8{0, 0, 0}, 1},
		{"half", []uint8{192, 64, 192, 64}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RMS(tt.samples), 1e-9)
		})
	}
}

func TestIntensity(t *testing.T) {
	assert.InDelta(t, 0.5, Intensity(0.03, 0.02), 1e-9)
	assert.Equal(t, 1.0, Intensity(0.5, 0.02))
	assert.Equal(t, 0.0, Intensity(0, 0.02))
	assert.Equal(t, 0.0, Intensity(0.5, 0))
}

func TestEnergyDetector_NoDataNoReading(t *testing.T) {
	src := mediatest.NewSource(testFormat, 256)
	d := NewEnergyDetector(src, 256, nil)

	_, ok := d.Sample(time.Now())
	assert.False(t, ok)
}

func TestEnergyDetector_TracksNewestWindow(t *testing.T) {
	src := mediatest.NewSource(testFormat, 64)
	d := NewEnergyDetector(src, 64, nil)

	src.Push(mediatest.Tone(64, 64))
	now := time.Now()
	r, ok := d.Sample(now)
	assert.True(t, ok)
	assert.Equal(t, now, r.Timestamp)
	assert.InDelta(t, 0.5, r.Score, 1e-9)

	src.Push(make([]byte, 0))
	src.Push(mediatest.Tone(64, 0))
	r, ok = d.Sample(now.Add(20 * time.Millisecond))
	assert.True(t, ok)
	assert.InDelta(t, 0, r.Score, 1e-9)
}

func TestEnergyDetector_ThresholdSeparatesSpeechFromSilence(t *testing.T) {
	src := mediatest.NewSource(testFormat, 128)
	d := NewEnergyDetector(src, 128, nil)
	threshold := 0.02

	src.Push(mediatest.Tone(128, 1))
	quiet, _ := d.Sample(time.Now())
	assert.LessOrEqual(t, quiet.Score, threshold)

	src.Push(mediatest.Tone(128, 20))
	loud, _ := d.Sample(time.Now())
	assert.Greater(t, loud.Score, threshold)
}
