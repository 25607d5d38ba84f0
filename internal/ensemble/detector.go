package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/detection"
	"github.com/voxwatch/voxwatch-go/internal/dsp"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// member is one loaded model with its normalized combination weight.
type member struct {
	model  Model
	weight float64
}

// Detector runs every loaded model concurrently on a feature vector and
// combines the votes with weighted majority. The member list and weights are
// frozen at construction and never mutated during streaming.
type Detector struct {
	members []member
	timeout time.Duration
	log     *slog.Logger
}

// NewDetector loads the configured models. A model that fails to load is
// dropped with a warning and the remaining weights are renormalized; if no
// model loads, ErrNoModelsAvailable is returned.
func NewDetector(settings *conf.Settings) (*Detector, error) {
	log := logging.ForService("ensemble")

	var members []member
	for i := range settings.Ensemble.Models {
		mc := &settings.Ensemble.Models[i]

		model, err := buildModel(mc, settings)
		if err != nil {
			log.Warn("classifier failed to load, dropping from ensemble",
				"model", mc.Name, "type", mc.Type, "error", err)
			continue
		}

		weight := mc.Weight
		if weight <= 0 {
			weight = 1 // equal share by default, normalized below
		}
		members = append(members, member{model: model, weight: weight})
	}

	if len(members) == 0 {
		return nil, errors.New(fmt.Errorf("%w: all %d configured models failed to load",
			errors.ErrNoModelsAvailable, len(settings.Ensemble.Models))).
			Component("ensemble").
			Category(errors.CategoryModelLoad).
			Build()
	}

	var total float64
	for _, m := range members {
		total += m.weight
	}
	for i := range members {
		members[i].weight /= total
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.model.Name()
	}
	log.Info("ensemble ready",
		"models", names,
		"configured", len(settings.Ensemble.Models),
		"loaded", len(members))

	return &Detector{
		members: members,
		timeout: time.Duration(settings.Ensemble.ScoreTimeout * float64(time.Second)),
		log:     log,
	}, nil
}

func buildModel(mc *conf.ModelSettings, settings *conf.Settings) (Model, error) {
	switch mc.Type {
	case "spectral":
		return NewSpectralHeuristic(mc.Name, conf.SampleRate), nil
	case "cepstral":
		return NewCepstralLogistic(mc.Name), nil
	case "combined":
		return NewCombined(mc.Name, conf.SampleRate), nil
	case "tflite":
		return NewTFLiteModel(mc.Name, mc.Path, settings.Ensemble.Sensitivity)
	default:
		return nil, errors.Newf("unknown model type %q", mc.Type).
			Component("ensemble").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Models returns the names of the loaded models in ensemble order.
func (d *Detector) Models() []string {
	names := make([]string, len(d.members))
	for i, m := range d.members {
		names[i] = m.model.Name()
	}
	return names
}

// Size returns the number of loaded models.
func (d *Detector) Size() int { return len(d.members) }

// Detect scores the feature vector with every model concurrently, waits for
// all votes or the per-model timeout, and aggregates with weighted majority.
//
// A vote that errors or times out is excluded from this frame's aggregation
// only; its model stays loaded. When every vote is invalid the partial is
// marked indeterminate rather than defaulting to a human verdict.
func (d *Detector) Detect(ctx context.Context, fv *dsp.FeatureVector) *detection.Partial {
	scoreCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		prob float64
		err  error
	}

	// One buffered channel per model so a late scorer never blocks after the
	// deadline has passed.
	channels := make([]chan outcome, len(d.members))
	for i := range d.members {
		channels[i] = make(chan outcome, 1)
		go func(idx int) {
			prob, err := d.members[idx].model.Score(scoreCtx, fv)
			channels[idx] <- outcome{prob: prob, err: err}
		}(i)
	}

	votes := make([]detection.ModelVote, len(d.members))
	for i, m := range d.members {
		vote := detection.ModelVote{
			Model:  m.model.Name(),
			Weight: m.weight,
		}
		select {
		case out := <-channels[i]:
			if out.err != nil {
				vote.Err = out.err.Error()
				d.log.Debug("vote invalidated", "model", vote.Model, "error", out.err)
			} else {
				vote.Probability = out.prob
				vote.Valid = true
			}
		case <-scoreCtx.Done():
			vote.Err = fmt.Sprintf("score timeout after %s", d.timeout)
			d.log.Debug("vote timed out", "model", vote.Model, "timeout", d.timeout)
		}
		votes[i] = vote
	}

	return aggregate(votes)
}

// aggregate combines votes with weighted majority, renormalizing over the
// valid votes of this frame.
func aggregate(votes []detection.ModelVote) *detection.Partial {
	var validWeight, aiWeight, confidence float64
	for _, v := range votes {
		if !v.Valid {
			continue
		}
		validWeight += v.Weight
		confidence += v.Weight * v.Probability
		if v.Probability >= 0.5 {
			aiWeight += v.Weight
		}
	}

	if validWeight == 0 {
		return &detection.Partial{
			Indeterminate: true,
			Votes:         votes,
		}
	}

	return &detection.Partial{
		IsAIVoice:  aiWeight > 0.5*validWeight,
		Confidence: confidence / validWeight,
		Votes:      votes,
	}
}
