// Package dsp implements the deterministic signal-processing stages of the
// pipeline: amplitude preprocessing and acoustic feature extraction.
package dsp

import (
	"math"

	"github.com/voxwatch/voxwatch-go/internal/audio"
)

// Preprocessor normalizes frame amplitude and applies a fixed noise gate.
// Both steps are pure functions of the input frame.
type Preprocessor struct {
	// NoiseFloor is the absolute amplitude subtracted from each sample's
	// magnitude after normalization, results clamped at zero.
	NoiseFloor float64
}

// NewPreprocessor returns a Preprocessor with the given noise floor.
func NewPreprocessor(noiseFloor float64) *Preprocessor {
	return &Preprocessor{NoiseFloor: noiseFloor}
}

// Process returns a new frame with normalized, noise-gated samples. The input
// frame is not modified. An all-zero frame passes through unchanged.
func (p *Preprocessor) Process(frame *audio.Frame) *audio.Frame {
	samples := NoiseGate(Normalize(frame.Samples), float32(p.NoiseFloor))
	return &audio.Frame{
		Samples:   samples,
		Rate:      frame.Rate,
		Index:     frame.Index,
		Timestamp: frame.Timestamp,
		Source:    frame.Source,
	}
}

// Normalize scales samples so the maximum absolute sample equals 1.0. Silent
// input is returned as an untouched copy, avoiding division by zero.
func Normalize(samples []float32) []float32 {
	out := make([]float32, len(samples))

	var peak float32
	for _, s := range samples {
		if abs := float32(math.Abs(float64(s))); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		copy(out, samples)
		return out
	}

	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}

// NoiseGate subtracts floor from each sample's magnitude, clamping results at
// zero and preserving sign (spectral-subtraction style gate).
func NoiseGate(samples []float32, floor float32) []float32 {
	if floor <= 0 {
		return samples
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		mag := float32(math.Abs(float64(s))) - floor
		if mag <= 0 {
			out[i] = 0
			continue
		}
		if s < 0 {
			out[i] = -mag
		} else {
			out[i] = mag
		}
	}
	return out
}
