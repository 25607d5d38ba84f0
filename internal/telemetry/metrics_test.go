package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposedOverHTTP(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.RecordResult(true, false)
	m.RecordResult(false, false)
	m.RecordResult(false, true)
	m.FramesDropped.Add(2)
	m.DecodeErrors.Inc()
	m.InvalidVotes.WithLabelValues("cepstral-v1").Inc()
	m.ScoreDuration.Observe(0.004)
	m.InputLevel.Set(42)

	mux := http.NewServeMux()
	m.RegisterMetricsHandlers(mux)

	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `voxwatch_detections_total{verdict="ai"} 1`)
	assert.Contains(t, out, `voxwatch_detections_total{verdict="human"} 1`)
	assert.Contains(t, out, `voxwatch_detections_total{verdict="indeterminate"} 1`)
	assert.Contains(t, out, "voxwatch_frames_processed_total 3")
	assert.Contains(t, out, "voxwatch_frames_dropped_total 2")
	assert.Contains(t, out, "voxwatch_decode_errors_total 1")
	assert.Contains(t, out, `voxwatch_invalid_votes_total{model="cepstral-v1"} 1`)
	assert.Contains(t, out, "voxwatch_ensemble_score_duration_seconds_count 1")
	assert.Contains(t, out, "voxwatch_input_level 42")
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)

	a.FramesProcessed.Inc()

	assert.NotSame(t, a.registry, b.registry)
}
