package audio

import (
	"encoding/binary"
	"fmt"
)

// SampleDivisor returns the divisor for converting integer PCM samples of the
// given bit depth to float32 in [-1, 1].
func SampleDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

// S16LEToFloat32 converts little-endian signed 16-bit PCM bytes to float32
// samples in [-1, 1]. A trailing odd byte is ignored.
func S16LEToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// Float32ToS16LE converts float32 samples in [-1, 1] to little-endian signed
// 16-bit PCM bytes, clamping out-of-range values.
func Float32ToS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		scaled := int32(s * 32767.0)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaled))) //nolint:gosec // G115: clamped above
	}
	return out
}

// DownmixToMono folds interleaved multi-channel samples into mono by
// averaging the channels of each sample frame.
func DownmixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// IntToFloat32 converts integer PCM samples to float32 using the divisor for
// the given bit depth.
func IntToFloat32(samples []int, bitDepth int) ([]float32, error) {
	divisor, err := SampleDivisor(bitDepth)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / divisor
	}
	return out, nil
}
