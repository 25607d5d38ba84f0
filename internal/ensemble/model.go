// Package ensemble implements the classifier models and the weighted,
// fault-tolerant voting detector that combines them.
package ensemble

import (
	"context"
	"math"

	"github.com/voxwatch/voxwatch-go/internal/dsp"
)

// Model scores a feature vector with the probability that the frame contains
// AI-synthesized speech. Implementations must be safe for concurrent use and
// must honor ctx cancellation on any blocking work.
//
// A model can only fail to join the ensemble at construction time; scoring
// errors invalidate single votes, never the model.
type Model interface {
	Name() string
	Score(ctx context.Context, fv *dsp.FeatureVector) (float64, error)
}

// sigmoid applies a logistic squash with sensitivity adjustment.
func sigmoid(x, sensitivity float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sensitivity*x))
}

// clamp01 bounds a probability to [0, 1].
func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
