package analysis

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/voxwatch/voxwatch-go/internal/audio"
	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/detection"
	"github.com/voxwatch/voxwatch-go/internal/dsp"
	"github.com/voxwatch/voxwatch-go/internal/ensemble"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// RecordAnalysis captures a fixed-duration clip (or reads the configured input
// file) and prints one aggregated verdict over all of its frames. Frames are
// processed sequentially, there is no backpressure in this mode.
func RecordAnalysis(settings *conf.Settings) error {
	log := logging.ForService("record")

	detector, err := ensemble.NewDetector(settings)
	if err != nil {
		return err
	}

	windowSamples := settings.WindowSamples()

	var source audio.FrameSource
	var maxFrames uint64
	if settings.Input.Path != "" {
		source, err = audio.NewFileSource(settings.Input.Path, windowSamples)
		if err != nil {
			return err
		}
		fmt.Printf("Analyzing %s\n", settings.Input.Path)
	} else {
		source, err = audio.NewCaptureSource(settings)
		if err != nil {
			return err
		}
		maxFrames = uint64(math.Ceil(settings.Input.Duration * conf.SampleRate / float64(windowSamples)))
		fmt.Printf("Recording %.1f seconds from source %q\n", settings.Input.Duration, settings.Audio.Source)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			log.Warn("source close failed", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pre := dsp.NewPreprocessor(settings.DSP.NoiseFloor)
	extract := dsp.NewExtractor(dsp.ExtractorConfig{
		SampleRate:      conf.SampleRate,
		FFTSize:         windowSamples,
		MFCCCount:       settings.DSP.MFCCCount,
		MelBands:        settings.DSP.MelBands,
		RolloffFraction: settings.DSP.RolloffFraction,
	})

	// Keep samples when they will be written back out: captured clips per the
	// export settings, any source when an explicit --out path was given.
	keepSamples := settings.Input.Out != "" ||
		(settings.Input.Path == "" && settings.Audio.Export.Enabled)

	var (
		captured   []float32
		partials   []*detection.Partial
		frameCount uint64
		started    = time.Now()
	)

	for maxFrames == 0 || frameCount < maxFrames {
		frame, err := source.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, audio.ErrEndOfStream) {
				break
			}
			if ctx.Err() != nil {
				log.Info("recording interrupted", "frames", frameCount)
				break
			}
			return err
		}

		if keepSamples {
			captured = append(captured, frame.Samples...)
		}

		fv := extract.Extract(pre.Process(frame))
		partials = append(partials, detector.Detect(ctx, fv))
		frameCount++
	}

	if frameCount == 0 {
		return errors.Newf("no audio frames captured").
			Component("analysis").
			Category(errors.CategoryAudioSource).
			Build()
	}

	result := aggregateRecording(partials, started, settings.Audio.Source)
	if settings.Input.Path != "" {
		result.Source = settings.Input.Path
	}
	if ds, ok := source.(interface{ DecodeErrors() uint64 }); ok {
		result.DecodeErrors = int(ds.DecodeErrors())
	}
	printResult(settings, result)

	if len(captured) > 0 {
		clipPath := settings.Input.Out
		if clipPath == "" {
			clipPath = filepath.Join(settings.Audio.Export.Path, uuid.New().String()+".wav")
		}
		if err := audio.WriteWAV(clipPath, captured); err != nil {
			fmt.Fprintf(os.Stderr, "failed to export clip: %v\n", err)
		} else {
			fmt.Printf("Saved clip to %s\n", clipPath)
		}
	}

	return nil
}

// aggregateRecording reduces per-frame partial verdicts to one result: AI when
// determinate AI frames outnumber determinate human frames, with confidence
// averaged over determinate frames. A recording with no determinate frame at
// all is indeterminate.
func aggregateRecording(partials []*detection.Partial, timestamp time.Time, source string) *detection.Result {
	var aiFrames, determinate int
	var confidence float64
	for _, p := range partials {
		if p.Indeterminate {
			continue
		}
		determinate++
		confidence += p.Confidence
		if p.IsAIVoice {
			aiFrames++
		}
	}

	result := &detection.Result{
		Timestamp:  timestamp,
		FrameIndex: uint64(len(partials) - 1),
		Source:     source,
	}
	if determinate == 0 {
		result.Indeterminate = true
		return result
	}

	result.IsAIVoice = aiFrames*2 > determinate
	result.Confidence = confidence / float64(determinate)
	return result
}
