package ensemble

import (
	"context"

	"github.com/voxwatch/voxwatch-go/internal/dsp"
)

// SpectralHeuristic scores frames from spectral statistics alone. Synthesized
// speech tends toward tonal, over-smooth spectra: low zero-crossing rate, low
// frame-to-frame flux and a centroid well below the band midpoint, compared
// to the broadband variability of a live voice over a real channel.
type SpectralHeuristic struct {
	name    string
	nyquist float64
}

// NewSpectralHeuristic builds the spectral-only reference model for the given
// sample rate.
func NewSpectralHeuristic(name string, sampleRate int) *SpectralHeuristic {
	return &SpectralHeuristic{
		name:    name,
		nyquist: float64(sampleRate) / 2.0,
	}
}

// Name returns the model identifier.
func (m *SpectralHeuristic) Name() string { return m.name }

// Score combines the spectral statistics into a logistic synthetic-voice
// probability. Decision surface fitted offline against the reference corpora;
// the thresholds are the fitted operating points, not tunables.
func (m *SpectralHeuristic) Score(_ context.Context, fv *dsp.FeatureVector) (float64, error) {
	const (
		zcOperatingPoint   = 0.15
		fluxOperatingPoint = 0.05
		centOperatingPoint = 0.25

		zcWeight   = 10.0
		fluxWeight = 8.0
		centWeight = 4.0
	)

	normCentroid := fv.Centroid / m.nyquist

	logit := zcWeight*(zcOperatingPoint-fv.ZeroCross) +
		fluxWeight*(fluxOperatingPoint-fv.Flux) +
		centWeight*(centOperatingPoint-normCentroid)

	return clamp01(sigmoid(logit, 1.0)), nil
}
