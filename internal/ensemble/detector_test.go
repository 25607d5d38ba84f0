package ensemble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/detection"
	"github.com/voxwatch/voxwatch-go/internal/dsp"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// stubModel returns a fixed probability, or an error, optionally after a
// delay.
type stubModel struct {
	name  string
	prob  float64
	err   error
	delay time.Duration
}

func (m *stubModel) Name() string { return m.name }

func (m *stubModel) Score(ctx context.Context, _ *dsp.FeatureVector) (float64, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return m.prob, m.err
}

func testDetector(timeout time.Duration, models ...Model) *Detector {
	members := make([]member, len(models))
	for i, m := range models {
		members[i] = member{model: m, weight: 1.0 / float64(len(models))}
	}
	return &Detector{
		members: members,
		timeout: timeout,
		log:     logging.ForService("ensemble"),
	}
}

func TestAggregateWeightedMajority(t *testing.T) {
	tests := []struct {
		name           string
		votes          []detection.ModelVote
		wantAI         bool
		wantConfidence float64
	}{
		{
			name: "two of three vote AI",
			votes: []detection.ModelVote{
				{Model: "a", Probability: 0.9, Weight: 1.0 / 3, Valid: true},
				{Model: "b", Probability: 0.8, Weight: 1.0 / 3, Valid: true},
				{Model: "c", Probability: 0.1, Weight: 1.0 / 3, Valid: true},
			},
			wantAI:         true,
			wantConfidence: 0.6,
		},
		{
			name: "unanimous human",
			votes: []detection.ModelVote{
				{Model: "a", Probability: 0.1, Weight: 0.5, Valid: true},
				{Model: "b", Probability: 0.2, Weight: 0.5, Valid: true},
			},
			wantAI:         false,
			wantConfidence: 0.15,
		},
		{
			name: "heavy model outvotes two light ones",
			votes: []detection.ModelVote{
				{Model: "a", Probability: 0.9, Weight: 0.6, Valid: true},
				{Model: "b", Probability: 0.1, Weight: 0.2, Valid: true},
				{Model: "c", Probability: 0.2, Weight: 0.2, Valid: true},
			},
			wantAI:         true,
			wantConfidence: 0.6,
		},
		{
			name: "exact tie goes to human",
			votes: []detection.ModelVote{
				{Model: "a", Probability: 0.9, Weight: 0.5, Valid: true},
				{Model: "b", Probability: 0.1, Weight: 0.5, Valid: true},
			},
			wantAI:         false,
			wantConfidence: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partial := aggregate(tt.votes)

			assert.False(t, partial.Indeterminate)
			assert.Equal(t, tt.wantAI, partial.IsAIVoice)
			assert.InDelta(t, tt.wantConfidence, partial.Confidence, 1e-9)
		})
	}
}

func TestAggregateRenormalizesOverValidVotes(t *testing.T) {
	// One of three equal-weight votes invalid: the two survivors carry half
	// the decision each.
	votes := []detection.ModelVote{
		{Model: "a", Probability: 0.9, Weight: 1.0 / 3, Valid: true},
		{Model: "b", Weight: 1.0 / 3, Valid: false, Err: "score timeout"},
		{Model: "c", Probability: 0.7, Weight: 1.0 / 3, Valid: true},
	}

	partial := aggregate(votes)

	assert.True(t, partial.IsAIVoice)
	assert.InDelta(t, 0.8, partial.Confidence, 1e-9)
}

func TestAggregateAllInvalidIsIndeterminate(t *testing.T) {
	votes := []detection.ModelVote{
		{Model: "a", Weight: 0.5, Valid: false, Err: "boom"},
		{Model: "b", Weight: 0.5, Valid: false, Err: "boom"},
	}

	partial := aggregate(votes)

	assert.True(t, partial.Indeterminate)
	assert.False(t, partial.IsAIVoice)
	assert.Zero(t, partial.Confidence)
	assert.Len(t, partial.Votes, 2, "invalid votes are still reported")
}

func TestDetectExcludesSlowModel(t *testing.T) {
	d := testDetector(20*time.Millisecond,
		&stubModel{name: "fast-a", prob: 0.9},
		&stubModel{name: "fast-b", prob: 0.8},
		&stubModel{name: "slow", prob: 0.1, delay: time.Second},
	)

	partial := d.Detect(context.Background(), &dsp.FeatureVector{})

	require.Len(t, partial.Votes, 3)
	assert.True(t, partial.Votes[0].Valid)
	assert.True(t, partial.Votes[1].Valid)
	assert.False(t, partial.Votes[2].Valid, "slow model's vote must be invalidated")
	assert.NotEmpty(t, partial.Votes[2].Err)

	assert.True(t, partial.IsAIVoice)
	assert.InDelta(t, 0.85, partial.Confidence, 1e-9)
}

func TestDetectExcludesErroringModel(t *testing.T) {
	d := testDetector(time.Second,
		&stubModel{name: "ok", prob: 0.9},
		&stubModel{name: "broken", err: errors.NewStd("inference failed")},
	)

	partial := d.Detect(context.Background(), &dsp.FeatureVector{})

	require.Len(t, partial.Votes, 2)
	assert.True(t, partial.Votes[0].Valid)
	assert.False(t, partial.Votes[1].Valid)
	assert.Contains(t, partial.Votes[1].Err, "inference failed")

	assert.True(t, partial.IsAIVoice)
	assert.InDelta(t, 0.9, partial.Confidence, 1e-9)
}

func TestDetectAllTimedOutIsIndeterminate(t *testing.T) {
	d := testDetector(10*time.Millisecond,
		&stubModel{name: "slow-a", prob: 0.9, delay: time.Second},
		&stubModel{name: "slow-b", prob: 0.9, delay: time.Second},
	)

	partial := d.Detect(context.Background(), &dsp.FeatureVector{})

	assert.True(t, partial.Indeterminate)
	require.Len(t, partial.Votes, 2)
	for _, v := range partial.Votes {
		assert.False(t, v.Valid)
	}
}

func TestNewDetectorDropsFailingModels(t *testing.T) {
	settings := referenceSettings()
	settings.Ensemble.Models = append(settings.Ensemble.Models, conf.ModelSettings{
		Type: "tflite", Name: "missing", Path: "/nonexistent/model.tflite",
	})

	d, err := NewDetector(settings)

	require.NoError(t, err)
	assert.Equal(t, 3, d.Size(), "unloadable model must be dropped, not fatal")
	assert.NotContains(t, d.Models(), "missing")

	// The survivors share the weight equally and still decide frames.
	for _, m := range d.members {
		assert.InDelta(t, 1.0/3, m.weight, 1e-9)
	}
	partial := d.Detect(context.Background(), syntheticFeatures())
	assert.False(t, partial.Indeterminate)
	require.Len(t, partial.Votes, 3)
}

func TestDetectIsDeterministic(t *testing.T) {
	settings := referenceSettings()
	d, err := NewDetector(settings)
	require.NoError(t, err)

	fv := syntheticFeatures()
	a := d.Detect(context.Background(), fv)
	b := d.Detect(context.Background(), fv)

	assert.Equal(t, a.IsAIVoice, b.IsAIVoice)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.Votes, b.Votes)
}

func TestNewDetectorAllModelsFailing(t *testing.T) {
	settings := referenceSettings()
	settings.Ensemble.Models = []conf.ModelSettings{
		{Type: "tflite", Name: "missing", Path: "/nonexistent/model.tflite"},
	}

	_, err := NewDetector(settings)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoModelsAvailable))
}

func TestNewDetectorNormalizesWeights(t *testing.T) {
	settings := referenceSettings()
	settings.Ensemble.Models = []conf.ModelSettings{
		{Type: "spectral", Name: "a", Weight: 2},
		{Type: "cepstral", Name: "b", Weight: 1},
		{Type: "combined", Name: "c", Weight: 1},
	}

	d, err := NewDetector(settings)
	require.NoError(t, err)

	var total float64
	for _, m := range d.members {
		total += m.weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.5, d.members[0].weight, 1e-9)
}

func referenceSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Ensemble.ScoreTimeout = 0.05
	s.Ensemble.Sensitivity = 1.0
	s.Ensemble.Models = []conf.ModelSettings{
		{Type: "spectral", Name: "spectral-v1"},
		{Type: "cepstral", Name: "cepstral-v1"},
		{Type: "combined", Name: "combined-v1"},
	}
	return s
}

// syntheticFeatures approximates a vocoder-style tonal frame: sparse spectrum,
// near-zero flux, energy concentrated in the low band.
func syntheticFeatures() *dsp.FeatureVector {
	return &dsp.FeatureVector{
		MFCC:      []float64{-40, 18, 3, 1, 0.5, 0.2, 0.1, 0, 0, 0, 0, 0, 0},
		Centroid:  440,
		Flux:      0.001,
		Rolloff:   900,
		Energy:    0.3,
		ZeroCross: 0.03,
	}
}

// naturalFeatures approximates a broadband live recording: energy spread over
// the band, high zero-crossing rate, flat cepstrum.
func naturalFeatures() *dsp.FeatureVector {
	return &dsp.FeatureVector{
		MFCC:      []float64{10, -0.5, 0.3, -0.2, 0.1, 0, 0, 0, 0, 0, 0, 0, 0},
		Centroid:  11000,
		Flux:      0.4,
		Rolloff:   18000,
		Energy:    0.1,
		ZeroCross: 0.48,
	}
}

func TestReferenceModelsOnSyntheticFrame(t *testing.T) {
	ctx := context.Background()
	fv := syntheticFeatures()

	models := []Model{
		NewSpectralHeuristic("spectral", conf.SampleRate),
		NewCepstralLogistic("cepstral"),
		NewCombined("combined", conf.SampleRate),
	}

	for _, m := range models {
		p, err := m.Score(ctx, fv)
		require.NoError(t, err, m.Name())
		assert.Greater(t, p, 0.5, "%s must flag the tonal frame as AI", m.Name())
	}
}

func TestReferenceModelsOnNaturalFrame(t *testing.T) {
	ctx := context.Background()
	fv := naturalFeatures()

	models := []Model{
		NewSpectralHeuristic("spectral", conf.SampleRate),
		NewCepstralLogistic("cepstral"),
		NewCombined("combined", conf.SampleRate),
	}

	for _, m := range models {
		p, err := m.Score(ctx, fv)
		require.NoError(t, err, m.Name())
		assert.Less(t, p, 0.5, "%s must pass the broadband frame as human", m.Name())
	}
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0, 1.0), 1e-9)
	assert.Greater(t, sigmoid(2, 1.0), 0.85)
	assert.Less(t, sigmoid(-2, 1.0), 0.15)

	// Higher sensitivity sharpens the curve.
	assert.Greater(t, sigmoid(1, 2.0), sigmoid(1, 1.0))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.1))
	assert.Equal(t, 1.0, clamp01(1.1))
	assert.Equal(t, 0.5, clamp01(0.5))
}
