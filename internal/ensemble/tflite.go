package ensemble

import (
	"fmt"
	"os"
	"sync"

	tflite "github.com/tphakala/go-tflite"

	"github.com/voxwatch/voxwatch-go/internal/dsp"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"

	"context"
)

// TFLiteModel scores feature vectors with a TensorFlow Lite binary
// classifier. The interpreter is not reentrant, so scoring is serialized with
// a mutex.
type TFLiteModel struct {
	name        string
	sensitivity float64

	interpreter *tflite.Interpreter
	mu          sync.Mutex
}

// NewTFLiteModel loads a .tflite classifier from disk and allocates its
// tensors. Any failure here is a model-load error: the model is excluded
// from the ensemble for the lifetime of the run and never retried.
func NewTFLiteModel(name, path string, sensitivity float64) (*TFLiteModel, error) {
	modelData, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read model file: %w", err)).
			Component("ensemble").
			Category(errors.CategoryModelLoad).
			ModelContext(name, path).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model from %s", path).
			Component("ensemble").
			Category(errors.CategoryModelLoad).
			ModelContext(name, path).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)
	options.SetErrorReporter(func(msg string, userData any) {
		logging.ForService("ensemble").Error("TFLite error", "model", name, "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, errors.Newf("cannot create TFLite interpreter for %s", name).
			Component("ensemble").
			Category(errors.CategoryModelLoad).
			ModelContext(name, path).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("tensor allocation failed for %s", name).
			Component("ensemble").
			Category(errors.CategoryModelLoad).
			ModelContext(name, path).
			Build()
	}

	return &TFLiteModel{
		name:        name,
		sensitivity: sensitivity,
		interpreter: interpreter,
	}, nil
}

// Name returns the model identifier.
func (m *TFLiteModel) Name() string { return m.name }

// Score feeds the feature vector to the interpreter and squashes the raw
// output into a probability.
func (m *TFLiteModel) Score(ctx context.Context, fv *dsp.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inputTensor := m.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return 0, errors.Newf("cannot get input tensor for %s", m.name).
			Component("ensemble").
			Category(errors.CategoryModelScore).
			Build()
	}

	input := inputTensor.Float32s()
	features := flattenFeatures(fv)
	for i := range input {
		if i < len(features) {
			input[i] = features[i]
		} else {
			input[i] = 0
		}
	}

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return 0, errors.Newf("tensor invoke failed for %s: %v", m.name, status).
			Component("ensemble").
			Category(errors.CategoryModelScore).
			Build()
	}

	outputTensor := m.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return 0, errors.Newf("cannot get output tensor for %s", m.name).
			Component("ensemble").
			Category(errors.CategoryModelScore).
			Build()
	}
	raw := outputTensor.Float32s()
	if len(raw) == 0 {
		return 0, errors.Newf("empty output tensor for %s", m.name).
			Component("ensemble").
			Category(errors.CategoryModelScore).
			Build()
	}

	return clamp01(sigmoid(float64(raw[0]), m.sensitivity)), nil
}

// flattenFeatures lays out the feature vector in the order the model was
// trained with: MFCCs first, then the named spectral statistics.
func flattenFeatures(fv *dsp.FeatureVector) []float32 {
	out := make([]float32, 0, len(fv.MFCC)+5)
	for _, c := range fv.MFCC {
		out = append(out, float32(c))
	}
	out = append(out,
		float32(fv.Centroid),
		float32(fv.Flux),
		float32(fv.Rolloff),
		float32(fv.Energy),
		float32(fv.ZeroCross))
	return out
}

// Close releases the interpreter.
func (m *TFLiteModel) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
}
