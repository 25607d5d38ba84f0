package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Audio.WindowSize = 4096
	s.Audio.QueueSize = 16
	s.Audio.CaptureTimeout = 5.0
	s.DSP.NoiseFloor = 0.02
	s.DSP.MFCCCount = 13
	s.DSP.MelBands = 26
	s.DSP.RolloffFraction = 0.85
	s.Ensemble.ScoreTimeout = 0.05
	s.Ensemble.Models = []ModelSettings{
		{Type: "spectral", Name: "spectral-v1"},
		{Type: "cepstral", Name: "cepstral-v1"},
	}
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero window", func(s *Settings) { s.Audio.WindowSize = 0; s.Audio.WindowMs = 0 }},
		{"negative queue", func(s *Settings) { s.Audio.QueueSize = -1 }},
		{"noise floor at one", func(s *Settings) { s.DSP.NoiseFloor = 1.0 }},
		{"negative noise floor", func(s *Settings) { s.DSP.NoiseFloor = -0.1 }},
		{"zero mfcc count", func(s *Settings) { s.DSP.MFCCCount = 0 }},
		{"fewer mel bands than mfccs", func(s *Settings) { s.DSP.MelBands = 5 }},
		{"rolloff fraction above one", func(s *Settings) { s.DSP.RolloffFraction = 1.5 }},
		{"no models", func(s *Settings) { s.Ensemble.Models = nil }},
		{"unnamed model", func(s *Settings) { s.Ensemble.Models[0].Name = "" }},
		{"duplicate model name", func(s *Settings) { s.Ensemble.Models[1].Name = s.Ensemble.Models[0].Name }},
		{"negative weight", func(s *Settings) { s.Ensemble.Models[0].Weight = -1 }},
		{"unknown model type", func(s *Settings) { s.Ensemble.Models[0].Type = "magic" }},
		{"tflite without path", func(s *Settings) {
			s.Ensemble.Models[0] = ModelSettings{Type: "tflite", Name: "net"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestValidateSettingsNormalizesTimeouts(t *testing.T) {
	s := validSettings()
	s.Audio.CaptureTimeout = 0
	s.Ensemble.ScoreTimeout = -1

	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, 5.0, s.Audio.CaptureTimeout)
	assert.Equal(t, 0.05, s.Ensemble.ScoreTimeout)
}

func TestValidateSettingsWindowMsOverride(t *testing.T) {
	s := validSettings()
	s.Audio.WindowSize = 0
	s.Audio.WindowMs = 100

	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, 100*SampleRate/1000, s.WindowSamples())
}

func TestWindowSamplesPrefersMilliseconds(t *testing.T) {
	s := validSettings()
	assert.Equal(t, 4096, s.WindowSamples())

	s.Audio.WindowMs = 50
	assert.Equal(t, 2205, s.WindowSamples())
}
