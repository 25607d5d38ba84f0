// Package audio provides audio frame acquisition for the detection pipeline:
// live capture through miniaudio and WAV file reading, both normalized to the
// pipeline's canonical sample rate and channel count.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrEndOfStream is returned by NextFrame when a finite source has delivered
// its last frame.
var ErrEndOfStream = errors.New("end of audio stream")

// Frame is one fixed-length window of mono float32 samples. A frame is owned
// by exactly one pipeline stage at a time and is never mutated after
// production.
type Frame struct {
	Samples   []float32 // normalized to [-1, 1]
	Rate      int       // sample rate in Hz
	Index     uint64    // monotonically increasing per source
	Timestamp time.Time // capture time of the first sample
	Source    string    // producing source identifier
}

// Duration returns the wall-clock span the frame covers.
func (f *Frame) Duration() time.Duration {
	if f.Rate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.Rate)
}

// FrameSource produces fixed-size frames at the canonical sample rate.
//
// NextFrame blocks until a full frame is available, the context is done, or
// the source ends. A finite source returns ErrEndOfStream after its last
// frame; device failures surface as enhanced errors wrapping
// errors.ErrDeviceUnavailable.
type FrameSource interface {
	NextFrame(ctx context.Context) (*Frame, error)
	Close() error
}
