package media

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFormat_Duration(t *testing.T) {
	f := StreamFormat{SampleRate: 16000, BitDepth: 8, Channels: 1}
	assert.Equal(t, 16000, f.BytesPerSecond())
	assert.Equal(t, 500*time.Millisecond, f.Duration(8000))

	pcm := Audio{Data: make([]byte, 48000), Format: StreamFormat{SampleRate: 24000, BitDepth: 16, Channels: 1}}
	assert.Equal(t, time.Second, pcm.Duration())

	assert.Equal(t, time.Duration(0), StreamFormat{}.Duration(100))
}

func TestRingBuffer_Latest(t *testing.T) {
	r := NewRingBuffer(4)
	dst := make([]byte, 4)

	assert.Equal(t, 0, r.Latest(dst))

	r.Write([]byte{1, 2})
	n := r.Latest(dst)
	assert.Equal(t, []byte{1, 2}, dst[:n])

	r.Write([]byte{3, 4, 5})
	n = r.Latest(dst)
	assert.Equal(t, []byte{2, 3, 4, 5}, dst[:n])

	small := make([]byte, 2)
	n = r.Latest(small)
	assert.Equal(t, []byte{4, 5}, small[:n])

	r.Write([]byte{6, 7, 8, 9, 10, 11})
	n = r.Latest(dst)
	assert.Equal(t, []byte{8, 9, 10, 11}, dst[:n])

	r.Reset()
	assert.Equal(t, 0, r.Latest(dst))
}

func TestU8ToS16(t *testing.T) {
	got := U8ToS16([]byte{128, 255, 0})
	assert.Equal(t, []int16{0, 127 << 8, -128 << 8}, got)
}

func TestS16ToU8(t *testing.T) {
	// 0, 32767, -32768 little-endian
	got := S16ToU8([]byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80})
	assert.Equal(t, []byte{128, 255, 0}, got)
}

func TestSamples16_RejectsOddLength(t *testing.T) {
	_, err := Samples16(Audio{Data: []byte{1, 2, 3}, Format: StreamFormat{SampleRate: 8000, BitDepth: 16, Channels: 1}})
	assert.Error(t, err)

	_, err = Samples16(Audio{Data: []byte{1}, Format: StreamFormat{BitDepth: 24}})
	assert.Error(t, err)
}

func TestEncodeWAV(t *testing.T) {
	audio := Audio{
		Data:   []byte{128, 200, 128},
		Format: StreamFormat{SampleRate: 16000, BitDepth: 8, Channels: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, audio))

	out := buf.Bytes()
	require.Greater(t, len(out), 12)
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.True(t, bytes.HasSuffix(out, []byte{0x00, 0x00, 0x00, 0x48, 0x00, 0x00}))
}

func TestEncodeWAV_RequiresSampleRate(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeWAV(&buf, Audio{Data: []byte{1, 2}, Format: StreamFormat{BitDepth: 16}}))
}
