package media

import (
	"errors"
	"io"

	wav "github.com/youpy/go-wav"
)

// EncodeWAV writes a as a 16-bit PCM WAV container. 8-bit input is widened.
func EncodeWAV(w io.Writer, a Audio) error {
	if a.Format.SampleRate <= 0 {
		return errors.New("wav: sample rate is required")
	}
	channels := a.Format.Channels
	if channels <= 0 {
		channels = 1
	}
	if channels > 2 {
		return errors.New("wav: at most two channels are supported")
	}

	pcm, err := Samples16(a)
	if err != nil {
		return err
	}
	frames := len(pcm) / channels

	samples := make([]wav.Sample, frames)
	for i := range samples {
		for ch := 0; ch < channels; ch++ {
			samples[i].Values[ch] = int(pcm[i*channels+ch])
		}
	}

	writer := wav.NewWriter(w, uint32(frames), uint16(channels), uint32(a.Format.SampleRate), 16)
	return writer.WriteSamples(samples)
}
