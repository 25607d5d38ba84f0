// Package analysis wires the audio, dsp and ensemble stages into running
// pipelines for the stream and record commands.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxwatch/voxwatch-go/internal/audio"
	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/detection"
	"github.com/voxwatch/voxwatch-go/internal/dsp"
	"github.com/voxwatch/voxwatch-go/internal/ensemble"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
	"github.com/voxwatch/voxwatch-go/internal/telemetry"
)

// State is the lifecycle phase of a Controller.
type State int32

const (
	// StateIdle means the controller was built but Run has not been called.
	StateIdle State = iota
	// StateRunning means frames are being produced and analyzed.
	StateRunning
	// StateDraining means production has stopped and queued frames are being
	// analyzed before shutdown.
	StateDraining
	// StateStopped means the controller finished; the results channel is
	// closed.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Controller runs one frame source through the full detection pipeline. It
// owns a bounded frame queue between the producing source and the consuming
// analyzer; when the analyzer falls behind, the oldest queued frame is dropped
// so the pipeline tracks live audio instead of building latency.
//
// Results are emitted on Results() in strictly increasing frame order. The
// channel is closed once the controller reaches StateStopped.
type Controller struct {
	settings *conf.Settings
	source   audio.FrameSource
	pre      *dsp.Preprocessor
	extract  *dsp.Extractor
	detector *ensemble.Detector
	metrics  *telemetry.Metrics // nil when telemetry is disabled

	queue   chan *audio.Frame
	results chan *detection.Result

	state   atomic.Int32
	dropped atomic.Uint64 // total frames dropped under backpressure

	log *slog.Logger
}

// NewController assembles a pipeline over the given source. The source is
// owned by the controller from this point and closed when Run returns.
func NewController(settings *conf.Settings, source audio.FrameSource, detector *ensemble.Detector, metrics *telemetry.Metrics) *Controller {
	queueSize := settings.Audio.QueueSize
	if queueSize <= 0 {
		queueSize = conf.DefaultQueueSize
	}

	c := &Controller{
		settings: settings,
		source:   source,
		pre:      dsp.NewPreprocessor(settings.DSP.NoiseFloor),
		extract: dsp.NewExtractor(dsp.ExtractorConfig{
			SampleRate:      conf.SampleRate,
			FFTSize:         settings.WindowSamples(),
			MFCCCount:       settings.DSP.MFCCCount,
			MelBands:        settings.DSP.MelBands,
			RolloffFraction: settings.DSP.RolloffFraction,
		}),
		detector: detector,
		metrics:  metrics,
		queue:    make(chan *audio.Frame, queueSize),
		results:  make(chan *detection.Result, queueSize),
		log:      logging.ForService("analysis"),
	}
	c.state.Store(int32(StateIdle))
	return c
}

// State returns the controller's current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Results returns the channel detection results are delivered on. It is
// closed when the controller stops.
func (c *Controller) Results() <-chan *detection.Result {
	return c.results
}

// DroppedFrames returns the total number of frames dropped so far.
func (c *Controller) DroppedFrames() uint64 {
	return c.dropped.Load()
}

// Run produces frames from the source and analyzes them until the source ends
// or the context is canceled. Queued frames are drained before Run returns,
// so cancellation never discards audio that was already accepted.
//
// Run may be called once; it closes the source and the results channel on
// return.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return errors.Newf("controller already started (state %s)", c.State()).
			Component("analysis").
			Category(errors.CategoryState).
			Build()
	}

	c.log.Info("pipeline starting",
		"queue_size", cap(c.queue),
		"window_samples", c.settings.WindowSamples(),
		"models", c.detector.Models())

	// Draining must outlive the caller's cancellation so accepted frames are
	// still scored; the per-model timeout inside Detect bounds the tail.
	drainCtx := context.WithoutCancel(ctx)

	g, prodCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(c.queue)
		return c.produce(prodCtx)
	})

	g.Go(func() error {
		return c.consume(drainCtx)
	})

	err := g.Wait()
	c.state.Store(int32(StateStopped))
	close(c.results)

	if closeErr := c.source.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	c.log.Info("pipeline stopped", "dropped_total", c.dropped.Load())
	return err
}

// produce reads frames from the source and enqueues them, dropping the oldest
// queued frame when the queue is full.
func (c *Controller) produce(ctx context.Context) error {
	for {
		frame, err := c.source.NextFrame(ctx)
		if err != nil {
			switch {
			case errors.Is(err, audio.ErrEndOfStream):
				c.log.Debug("source ended, draining queue")
				c.state.Store(int32(StateDraining))
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				c.state.Store(int32(StateDraining))
				return nil
			default:
				c.state.Store(int32(StateDraining))
				return err
			}
		}

		c.enqueue(frame)

		if ctx.Err() != nil {
			c.state.Store(int32(StateDraining))
			return nil
		}
	}
}

// enqueue adds a frame to the bounded queue, evicting the oldest entry when
// full. Frames are never dropped silently: the eviction is counted and
// attached to the next emitted result.
func (c *Controller) enqueue(frame *audio.Frame) {
	for {
		select {
		case c.queue <- frame:
			if c.metrics != nil {
				c.metrics.QueueDepth.Set(float64(len(c.queue)))
			}
			return
		default:
		}

		select {
		case old := <-c.queue:
			dropped := c.dropped.Add(1)
			if c.metrics != nil {
				c.metrics.FramesDropped.Inc()
			}
			c.log.Warn("frame queue full, dropping oldest frame",
				"dropped_index", old.Index,
				"dropped_total", dropped)
		default:
			// Consumer emptied the queue between the two selects; retry the
			// send.
		}
	}
}

// decodeErrorSource is implemented by sources that skip malformed chunks,
// such as the WAV file source.
type decodeErrorSource interface {
	DecodeErrors() uint64
}

// consume analyzes queued frames in order until the queue closes.
func (c *Controller) consume(ctx context.Context) error {
	var lastDropped, lastDecodeErrs uint64

	for frame := range c.queue {
		if c.metrics != nil {
			c.metrics.QueueDepth.Set(float64(len(c.queue)))
		}

		result := c.analyze(ctx, frame, &lastDropped, &lastDecodeErrs)

		select {
		case c.results <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// analyze runs one frame through preprocessing, feature extraction and the
// ensemble, attaching the frames dropped and chunks skipped since the
// previous result.
func (c *Controller) analyze(ctx context.Context, frame *audio.Frame, lastDropped, lastDecodeErrs *uint64) *detection.Result {
	level := audio.CalculateLevel(frame.Samples)
	if c.metrics != nil {
		c.metrics.InputLevel.Set(float64(level.Level))
	}
	if level.Clipping {
		c.log.Debug("input clipping", "frame", frame.Index, "level", level.Level)
	}

	processed := c.pre.Process(frame)
	fv := c.extract.Extract(processed)

	start := time.Now()
	partial := c.detector.Detect(ctx, fv)
	if c.metrics != nil {
		c.metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	}

	totalDropped := c.dropped.Load()
	droppedSince := int(totalDropped - *lastDropped)
	*lastDropped = totalDropped

	result := partial.Finalize(frame.Timestamp, frame.Index, frame.Source, droppedSince)

	if ds, ok := c.source.(decodeErrorSource); ok {
		total := ds.DecodeErrors()
		result.DecodeErrors = int(total - *lastDecodeErrs)
		*lastDecodeErrs = total
	}

	if c.metrics != nil {
		c.metrics.RecordResult(result.IsAIVoice, result.Indeterminate)
		if result.DecodeErrors > 0 {
			c.metrics.DecodeErrors.Add(float64(result.DecodeErrors))
		}
		for _, v := range result.Votes {
			if !v.Valid {
				c.metrics.InvalidVotes.WithLabelValues(v.Model).Inc()
			}
		}
	}

	return result
}
