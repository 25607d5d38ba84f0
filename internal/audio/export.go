package audio

import (
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/errors"
)

// WriteWAV saves mono float32 samples as a 16-bit PCM WAV file at the
// canonical sample rate.
func WriteWAV(path string, samples []float32) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(fmt.Errorf("cannot create export directory: %w", err)).
				Component("audio").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.New(fmt.Errorf("cannot create WAV file: %w", err)).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	enc := wav.NewEncoder(file, conf.SampleRate, conf.BitDepth, conf.NumChannels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		scaled := int(s * 32767.0)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		data[i] = scaled
	}

	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: conf.SampleRate, NumChannels: conf.NumChannels},
		SourceBitDepth: conf.BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = file.Close()
		return errors.New(fmt.Errorf("WAV encode failed: %w", err)).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
