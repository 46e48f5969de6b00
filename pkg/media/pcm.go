package media

import (
	"encoding/binary"
	"fmt"
)

// U8ToS16 widens unsigned 8-bit PCM to signed 16-bit values.
func U8ToS16(src []byte) []int16 {
	out := make([]int16, len(src))
	for i, b := range src {
		out[i] = int16(int(b)-128) << 8
	}
	return out
}

// S16ToU8 narrows signed 16-bit little-endian PCM to unsigned 8-bit samples.
func S16ToU8(src []byte) []byte {
	out := make([]byte, len(src)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(src[i*2:]))
		out[i] = byte((int(v) >> 8) + 128)
	}
	return out
}

// Samples16 decodes audio into signed 16-bit samples (interleaved).
func Samples16(a Audio) ([]int16, error) {
	switch a.Format.BitDepth {
	case 8:
		return U8ToS16(a.Data), nil
	case 16:
		if len(a.Data)%2 != 0 {
			return nil, fmt.Errorf("odd byte count %d for 16-bit audio", len(a.Data))
		}
		out := make([]int16, len(a.Data)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(a.Data[i*2:]))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported bit depth %d", a.Format.BitDepth)
}
