// metrics.go: Prometheus metrics setup and manipulation for telemetry
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FramesDropped   prometheus.Counter
	DecodeErrors    prometheus.Counter
	Detections      *prometheus.CounterVec // partitioned by verdict
	InvalidVotes    *prometheus.CounterVec // partitioned by model
	ScoreDuration   prometheus.Histogram
	QueueDepth      prometheus.Gauge
	InputLevel      prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics initializes and registers all Prometheus metrics used by the
// detection pipeline. Each call uses its own registry so tests can create
// metrics independently.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxwatch_frames_processed_total",
			Help: "Number of audio frames run through the full pipeline.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxwatch_frames_dropped_total",
			Help: "Number of unprocessed audio frames dropped under backpressure.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxwatch_decode_errors_total",
			Help: "Number of malformed audio chunks skipped.",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxwatch_detections_total",
			Help: "Detection results partitioned by verdict.",
		}, []string{"verdict"}),
		InvalidVotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxwatch_invalid_votes_total",
			Help: "Classifier votes excluded from aggregation, partitioned by model.",
		}, []string{"model"}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxwatch_ensemble_score_duration_seconds",
			Help:    "Wall time of one full ensemble scoring round.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxwatch_frame_queue_depth",
			Help: "Frames currently waiting in the bounded queue.",
		}),
		InputLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxwatch_input_level",
			Help: "RMS level of the most recent frame, scaled to 0-100.",
		}),
		registry: prometheus.NewRegistry(),
	}

	collectors := []prometheus.Collector{
		m.FramesProcessed,
		m.FramesDropped,
		m.DecodeErrors,
		m.Detections,
		m.InvalidVotes,
		m.ScoreDuration,
		m.QueueDepth,
		m.InputLevel,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RegisterMetricsHandlers adds the metrics route to the provided mux.
func (m *Metrics) RegisterMetricsHandlers(mux *http.ServeMux) {
	mux.Handle(metricsPath, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordResult updates the detection counters for one emitted result. Frame
// drops are counted at the queue, not here.
func (m *Metrics) RecordResult(isAIVoice, indeterminate bool) {
	verdict := "human"
	switch {
	case indeterminate:
		verdict = "indeterminate"
	case isAIVoice:
		verdict = "ai"
	}
	m.Detections.WithLabelValues(verdict).Inc()
	m.FramesProcessed.Inc()
}
