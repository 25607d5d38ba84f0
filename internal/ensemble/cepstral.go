package ensemble

import (
	"context"

	"github.com/voxwatch/voxwatch-go/internal/dsp"
)

// CepstralLogistic is a logistic regression over the MFCC vector. The
// pre-trained coefficients weight the first two cepstral coefficients: c0
// (overall log energy across mel bands, strongly negative for sparse tonal
// spectra) and c1 (spectral tilt, large and positive when energy concentrates
// in the low mel bands the way vocoder output does).
type CepstralLogistic struct {
	name    string
	bias    float64
	weights []float64
}

// cepstralDefaultWeights are the pre-trained coefficients for the reference
// model, indexed by MFCC coefficient.
var cepstralDefaultWeights = []float64{-0.02, 0.35}

// NewCepstralLogistic builds the MFCC-only reference model with the default
// pre-trained coefficients.
func NewCepstralLogistic(name string) *CepstralLogistic {
	return &CepstralLogistic{
		name:    name,
		bias:    -2.0,
		weights: cepstralDefaultWeights,
	}
}

// Name returns the model identifier.
func (m *CepstralLogistic) Name() string { return m.name }

// Score computes the logistic probability from the MFCC vector. Coefficients
// beyond the trained weights are ignored.
func (m *CepstralLogistic) Score(_ context.Context, fv *dsp.FeatureVector) (float64, error) {
	logit := m.bias
	for i, w := range m.weights {
		if i >= len(fv.MFCC) {
			break
		}
		logit += w * fv.MFCC[i]
	}
	return clamp01(sigmoid(logit, 1.0)), nil
}
