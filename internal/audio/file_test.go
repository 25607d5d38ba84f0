package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxwatch/voxwatch-go/internal/conf"
)

// writeTestWAV writes raw int samples as a WAV file for test input.
func writeTestWAV(t *testing.T, path string, data []int, rate, channels int) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(file, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, file.Close())
}

func toneSamples(n int, freq float64, rate int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(16000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestFileSourceFrameCount(t *testing.T) {
	// Five seconds at the canonical rate with 4096-sample windows yields 54
	// frames, the last one zero-padded.
	const windowSize = 4096
	path := filepath.Join(t.TempDir(), "five-seconds.wav")
	writeTestWAV(t, path, toneSamples(5*conf.SampleRate, 440, conf.SampleRate), conf.SampleRate, 1)

	fs, err := NewFileSource(path, windowSize)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()
	var frames int
	var lastIndex uint64
	for {
		frame, err := fs.NextFrame(ctx)
		if err != nil {
			require.ErrorIs(t, err, ErrEndOfStream)
			break
		}
		require.Len(t, frame.Samples, windowSize)
		assert.Equal(t, conf.SampleRate, frame.Rate)
		if frames > 0 {
			assert.Equal(t, lastIndex+1, frame.Index, "frame indices must be consecutive")
		}
		lastIndex = frame.Index
		frames++
	}

	assert.Equal(t, 54, frames)
	assert.Zero(t, fs.DecodeErrors())
}

func TestFileSourceZeroPadsFinalFrame(t *testing.T) {
	const windowSize = 1024
	// One and a half windows of audio.
	path := filepath.Join(t.TempDir(), "short.wav")
	writeTestWAV(t, path, toneSamples(windowSize+windowSize/2, 440, conf.SampleRate), conf.SampleRate, 1)

	fs, err := NewFileSource(path, windowSize)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()

	first, err := fs.NextFrame(ctx)
	require.NoError(t, err)
	require.Len(t, first.Samples, windowSize)

	second, err := fs.NextFrame(ctx)
	require.NoError(t, err)
	require.Len(t, second.Samples, windowSize)
	for _, s := range second.Samples[windowSize/2:] {
		assert.Zero(t, s, "padding must be silence")
	}

	_, err = fs.NextFrame(ctx)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestFileSourceDownmixesStereo(t *testing.T) {
	const windowSize = 1024
	// Stereo with opposite-phase channels cancels to silence when downmixed.
	data := make([]int, windowSize*2)
	for i := 0; i < windowSize; i++ {
		data[i*2] = 8000
		data[i*2+1] = -8000
	}
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, data, conf.SampleRate, 2)

	fs, err := NewFileSource(path, windowSize)
	require.NoError(t, err)
	defer fs.Close()

	frame, err := fs.NextFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Samples, windowSize)
	for _, s := range frame.Samples {
		assert.Zero(t, s)
	}
}

func TestFileSourceResamples(t *testing.T) {
	const windowSize = 1024
	// One second at 22.05 kHz becomes one second at the canonical rate.
	path := filepath.Join(t.TempDir(), "resample.wav")
	writeTestWAV(t, path, toneSamples(22050, 440, 22050), 22050, 1)

	fs, err := NewFileSource(path, windowSize)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()
	var total int
	for {
		frame, err := fs.NextFrame(ctx)
		if err != nil {
			require.ErrorIs(t, err, ErrEndOfStream)
			break
		}
		total += len(frame.Samples)
	}

	// 44100 samples rounded up to whole frames.
	assert.Equal(t, 44*windowSize, total)
}

func TestFileSourceRejectsInvalidInput(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.wav"), 1024)
		assert.Error(t, err)
	})

	t.Run("not a wav file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.wav")
		require.NoError(t, os.WriteFile(path, []byte("not audio data"), 0o644))

		_, err := NewFileSource(path, 1024)
		assert.Error(t, err)
	})
}

func TestFileSourceContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, toneSamples(4096, 440, conf.SampleRate), conf.SampleRate, 1)

	fs, err := NewFileSource(path, 1024)
	require.NoError(t, err)
	defer fs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = fs.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(conf.SampleRate)))
	}

	path := filepath.Join(t.TempDir(), "clips", "export.wav")
	require.NoError(t, WriteWAV(path, samples))

	fs, err := NewFileSource(path, 2048)
	require.NoError(t, err)
	defer fs.Close()

	frame, err := fs.NextFrame(context.Background())
	require.NoError(t, err)
	require.Len(t, frame.Samples, 2048)

	for i := 0; i < 100; i++ {
		assert.InDelta(t, samples[i], frame.Samples[i], 2.0/32768.0, "sample %d", i)
	}
}
