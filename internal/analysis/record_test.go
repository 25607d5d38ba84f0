package analysis

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxwatch/voxwatch-go/internal/audio"
	"github.com/voxwatch/voxwatch-go/internal/conf"
)

func writeToneFixture(t *testing.T, path string, n int) {
	t.Helper()
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(conf.SampleRate)))
	}
	require.NoError(t, audio.WriteWAV(path, samples))
}

func TestRecordAnalysisFileInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.wav")
	writeToneFixture(t, input, 3000)

	settings := testSettings()
	settings.Audio.WindowSize = 1024
	settings.Input.Path = input

	require.NoError(t, RecordAnalysis(settings))
}

func TestRecordAnalysisFileInputWithOut(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.wav")
	out := filepath.Join(dir, "copy.wav")
	writeToneFixture(t, input, 3000)

	settings := testSettings()
	settings.Audio.WindowSize = 1024
	settings.Input.Path = input
	settings.Input.Out = out

	require.NoError(t, RecordAnalysis(settings))

	// The analyzed audio was re-exported as a valid WAV, whole frames only.
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	fs, err := audio.NewFileSource(out, 1024)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()
	var total int
	for {
		frame, err := fs.NextFrame(ctx)
		if err != nil {
			require.ErrorIs(t, err, audio.ErrEndOfStream)
			break
		}
		total += len(frame.Samples)
	}
	assert.Equal(t, 3*1024, total)
}
