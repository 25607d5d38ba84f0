package ensemble

import (
	"context"

	"github.com/voxwatch/voxwatch-go/internal/dsp"
)

// Combined blends the spectral and cepstral reference models into one scorer
// over the full feature vector.
type Combined struct {
	name     string
	spectral *SpectralHeuristic
	cepstral *CepstralLogistic
}

// NewCombined builds the combined-feature reference model.
func NewCombined(name string, sampleRate int) *Combined {
	return &Combined{
		name:     name,
		spectral: NewSpectralHeuristic(name+"/spectral", sampleRate),
		cepstral: NewCepstralLogistic(name + "/cepstral"),
	}
}

// Name returns the model identifier.
func (m *Combined) Name() string { return m.name }

// Score averages the two feature-family probabilities.
func (m *Combined) Score(ctx context.Context, fv *dsp.FeatureVector) (float64, error) {
	ps, err := m.spectral.Score(ctx, fv)
	if err != nil {
		return 0, err
	}
	pc, err := m.cepstral.Score(ctx, fv)
	if err != nil {
		return 0, err
	}
	return clamp01((ps + pc) / 2.0), nil
}
