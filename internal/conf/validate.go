// conf/validate.go settings validation
package conf

import (
	"fmt"
	"log/slog"
)

// ValidateSettings checks the loaded settings for values the pipeline cannot
// run with. Recoverable oddities are normalized with a warning, everything
// else returns an error.
func ValidateSettings(s *Settings) error {
	if s.Audio.WindowSize <= 0 && s.Audio.WindowMs <= 0 {
		return fmt.Errorf("audio.windowsize must be positive, got %d", s.Audio.WindowSize)
	}
	if s.Audio.QueueSize <= 0 {
		return fmt.Errorf("audio.queuesize must be positive, got %d", s.Audio.QueueSize)
	}
	if s.Audio.CaptureTimeout <= 0 {
		slog.Warn("audio.capturetimeout not positive, using 5s", "configured", s.Audio.CaptureTimeout)
		s.Audio.CaptureTimeout = 5.0
	}

	if s.DSP.NoiseFloor < 0 || s.DSP.NoiseFloor >= 1 {
		return fmt.Errorf("dsp.noisefloor must be in [0,1), got %g", s.DSP.NoiseFloor)
	}
	if s.DSP.MFCCCount <= 0 {
		return fmt.Errorf("dsp.mfcccount must be positive, got %d", s.DSP.MFCCCount)
	}
	if s.DSP.MelBands < s.DSP.MFCCCount {
		return fmt.Errorf("dsp.melbands (%d) must be >= dsp.mfcccount (%d)",
			s.DSP.MelBands, s.DSP.MFCCCount)
	}
	if s.DSP.RolloffFraction <= 0 || s.DSP.RolloffFraction > 1 {
		return fmt.Errorf("dsp.rollofffraction must be in (0,1], got %g", s.DSP.RolloffFraction)
	}

	if len(s.Ensemble.Models) == 0 {
		return fmt.Errorf("ensemble.models must list at least one model")
	}
	seen := make(map[string]bool, len(s.Ensemble.Models))
	for i := range s.Ensemble.Models {
		m := &s.Ensemble.Models[i]
		if m.Name == "" {
			return fmt.Errorf("ensemble.models[%d]: name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("ensemble.models: duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Weight < 0 {
			return fmt.Errorf("ensemble.models[%d] %q: weight must not be negative", i, m.Name)
		}
		switch m.Type {
		case "spectral", "cepstral", "combined":
		case "tflite":
			if m.Path == "" {
				return fmt.Errorf("ensemble.models[%d] %q: tflite models require a path", i, m.Name)
			}
		default:
			return fmt.Errorf("ensemble.models[%d] %q: unknown type %q", i, m.Name, m.Type)
		}
	}
	if s.Ensemble.ScoreTimeout <= 0 {
		slog.Warn("ensemble.scoretimeout not positive, using 50ms", "configured", s.Ensemble.ScoreTimeout)
		s.Ensemble.ScoreTimeout = 0.05
	}

	return nil
}
