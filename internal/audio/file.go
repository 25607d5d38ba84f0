package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

// maxConsecutiveDecodeErrors is how many chunk decode failures in a row are
// tolerated before the file is treated as ended.
const maxConsecutiveDecodeErrors = 3

// FileSource is a FrameSource that reads a WAV file sequentially, converting
// it to the pipeline's canonical rate and channel count.
type FileSource struct {
	path      string
	file      *os.File
	decoder   *wav.Decoder
	frameSize int

	sourceRate int
	channels   int
	bitDepth   int

	buf     *goaudio.IntBuffer
	pending []float32
	index   uint64
	eof     bool

	decodeErrors     uint64
	consecutiveFails int

	log *slog.Logger
}

// NewFileSource opens and validates a WAV file for frame-by-frame reading.
func NewFileSource(path string, frameSize int) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot open audio file: %w", err)).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		_ = file.Close()
		return nil, errors.Newf("input is not a valid WAV audio file: %s", path).
			Component("audio").
			Category(errors.CategoryAudioDecode).
			Context("path", path).
			Build()
	}

	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		_ = file.Close()
		return nil, errors.Newf("unsupported bit depth: %d", decoder.BitDepth).
			Component("audio").
			Category(errors.CategoryAudioDecode).
			Context("path", path).
			Build()
	}
	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		_ = file.Close()
		return nil, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("audio").
			Category(errors.CategoryAudioDecode).
			Context("path", path).
			Build()
	}

	fs := &FileSource{
		path:       path,
		file:       file,
		decoder:    decoder,
		frameSize:  frameSize,
		sourceRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		bitDepth:   int(decoder.BitDepth),
		buf: &goaudio.IntBuffer{
			// One source-rate frame's worth of interleaved samples per read.
			Data:   make([]int, frameSize*int(decoder.NumChans)),
			Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: int(decoder.NumChans)},
		},
		log: logging.ForService("audio-file"),
	}

	fs.log.Info("reading audio file",
		"path", path,
		"rate", fs.sourceRate,
		"channels", fs.channels,
		"bit_depth", fs.bitDepth,
		"resample", fs.sourceRate != conf.SampleRate)

	return fs, nil
}

// NextFrame returns the next fixed-size frame, zero-padding the final short
// frame, then ErrEndOfStream.
func (fs *FileSource) NextFrame(ctx context.Context) (*Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(fs.pending) >= fs.frameSize {
			return fs.cutFrame(fs.pending[:fs.frameSize], fs.frameSize), nil
		}

		if fs.eof {
			if len(fs.pending) > 0 {
				// Zero-pad the final short frame to full length.
				padded := make([]float32, fs.frameSize)
				copy(padded, fs.pending)
				fs.pending = nil
				return fs.emit(padded), nil
			}
			return nil, ErrEndOfStream
		}

		if err := fs.fillPending(); err != nil {
			return nil, err
		}
	}
}

// cutFrame copies the first frameSize pending samples out as a frame.
func (fs *FileSource) cutFrame(samples []float32, frameSize int) *Frame {
	out := make([]float32, frameSize)
	copy(out, samples)
	fs.pending = fs.pending[frameSize:]
	return fs.emit(out)
}

func (fs *FileSource) emit(samples []float32) *Frame {
	frame := &Frame{
		Samples:   samples,
		Rate:      conf.SampleRate,
		Index:     fs.index,
		Timestamp: time.Now(),
		Source:    filepath.Base(fs.path),
	}
	fs.index++
	return frame
}

// fillPending decodes one chunk from the file into the pending sample queue.
// A malformed chunk is counted, logged and skipped; repeated consecutive
// failures end the stream.
func (fs *FileSource) fillPending() error {
	n, err := fs.decoder.PCMBuffer(fs.buf)
	if err != nil {
		fs.decodeErrors++
		fs.consecutiveFails++
		fs.log.Warn("skipping malformed audio chunk",
			"path", fs.path,
			"error", err,
			"decode_errors", fs.decodeErrors)
		if fs.consecutiveFails >= maxConsecutiveDecodeErrors {
			fs.log.Error("too many consecutive decode failures, ending stream",
				"path", fs.path, "failures", fs.consecutiveFails)
			fs.eof = true
		}
		return nil
	}
	fs.consecutiveFails = 0

	if n == 0 {
		fs.eof = true
		return nil
	}

	chunk, err := IntToFloat32(fs.buf.Data[:n], fs.bitDepth)
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryAudioDecode).
			Context("path", fs.path).
			Build()
	}

	chunk = DownmixToMono(chunk, fs.channels)
	if fs.sourceRate != conf.SampleRate {
		chunk = Resample(chunk, fs.sourceRate, conf.SampleRate)
	}

	fs.pending = append(fs.pending, chunk...)
	return nil
}

// DecodeErrors returns the number of malformed chunks skipped so far.
func (fs *FileSource) DecodeErrors() uint64 {
	return fs.decodeErrors
}

// Close closes the underlying file.
func (fs *FileSource) Close() error {
	return fs.file.Close()
}
