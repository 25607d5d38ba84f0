package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/voxwatch/voxwatch-go/internal/audio"
)

// logFloor keeps the mel-band logarithm finite for silent bands.
const logFloor = 1e-10

// FeatureVector holds the acoustic features derived from one frame. The MFCC
// slice always has exactly the configured coefficient count.
type FeatureVector struct {
	MFCC []float64

	Centroid  float64 // energy-weighted mean frequency in Hz
	Flux      float64 // L2 distance to the previous frame's normalized spectrum
	Rolloff   float64 // frequency in Hz below which the configured energy fraction lies
	Energy    float64 // mean square sample energy
	ZeroCross float64 // zero crossings per sample
}

// Spectral returns the named spectral statistics as a map, for structured
// output.
func (fv *FeatureVector) Spectral() map[string]float64 {
	return map[string]float64{
		"centroid":  fv.Centroid,
		"flux":      fv.Flux,
		"rolloff":   fv.Rolloff,
		"energy":    fv.Energy,
		"zerocross": fv.ZeroCross,
	}
}

// ExtractorConfig parameterizes feature extraction.
type ExtractorConfig struct {
	SampleRate      int
	FFTSize         int     // analysis window length, frames shorter are zero-padded
	MFCCCount       int     // coefficients kept after the DCT
	MelBands        int     // mel filter bank size
	RolloffFraction float64 // e.g. 0.85
}

// Extractor computes MFCC vectors and spectral statistics per frame. It keeps
// the previous frame's spectrum for the flux computation, so one instance
// must not process two frames of the same stream concurrently.
type Extractor struct {
	cfg ExtractorConfig

	fft        *fourier.FFT
	hann       []float64   // precomputed Hann window coefficients
	melFilters [][]float64 // triangular filter weights per band over spectrum bins
	dct        [][]float64 // DCT-II basis, MFCCCount x MelBands

	winBuf   []float64    // reusable windowed-sample buffer
	coeffBuf []complex128 // reusable FFT coefficient buffer

	prevSpectrum []float64 // normalized spectrum of the previous frame, nil before the first
}

// NewExtractor precomputes the window, mel filter bank and DCT basis.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	n := cfg.FFTSize
	ex := &Extractor{
		cfg:      cfg,
		fft:      fourier.NewFFT(n),
		hann:     hannCoefficients(n),
		winBuf:   make([]float64, n),
		coeffBuf: make([]complex128, n/2+1),
	}
	ex.melFilters = melFilterBank(cfg.MelBands, n, cfg.SampleRate)
	ex.dct = dctBasis(cfg.MFCCCount, cfg.MelBands)
	return ex
}

// Extract computes the feature vector for one frame. Frames shorter than the
// FFT size are zero-padded; the MFCC length invariant holds regardless of
// input.
func (ex *Extractor) Extract(frame *audio.Frame) *FeatureVector {
	spectrum := ex.powerSpectrum(frame.Samples)

	fv := &FeatureVector{
		MFCC:      ex.mfcc(spectrum),
		Centroid:  ex.spectralCentroid(spectrum),
		Rolloff:   ex.spectralRolloff(spectrum),
		Energy:    meanSquare(frame.Samples),
		ZeroCross: zeroCrossingRate(frame.Samples),
	}
	fv.Flux = ex.spectralFlux(spectrum)

	return fv
}

// Reset clears the cross-frame flux state, e.g. between streams.
func (ex *Extractor) Reset() {
	ex.prevSpectrum = nil
}

// powerSpectrum windows the samples, zero-pads to the FFT size and returns
// the power of each frequency bin.
func (ex *Extractor) powerSpectrum(samples []float32) []float64 {
	n := ex.cfg.FFTSize
	for i := range ex.winBuf {
		if i < len(samples) {
			ex.winBuf[i] = float64(samples[i]) * ex.hann[i]
		} else {
			ex.winBuf[i] = 0
		}
	}

	coeffs := ex.fft.Coefficients(ex.coeffBuf, ex.winBuf)

	spectrum := make([]float64, len(coeffs))
	for i, c := range coeffs {
		re, im := real(c), imag(c)
		spectrum[i] = (re*re + im*im) / float64(n)
	}
	return spectrum
}

// mfcc folds the power spectrum through the mel filter bank, takes logs and
// applies the DCT-II, keeping the first MFCCCount coefficients.
func (ex *Extractor) mfcc(spectrum []float64) []float64 {
	logEnergies := make([]float64, ex.cfg.MelBands)
	for b, filter := range ex.melFilters {
		var energy float64
		for k, w := range filter {
			if w != 0 {
				energy += spectrum[k] * w
			}
		}
		logEnergies[b] = math.Log(math.Max(energy, logFloor))
	}

	out := make([]float64, ex.cfg.MFCCCount)
	for i, basis := range ex.dct {
		var sum float64
		for j, c := range basis {
			sum += logEnergies[j] * c
		}
		out[i] = sum
	}
	return out
}

// spectralCentroid returns the energy-weighted mean frequency, 0 for a silent
// spectrum.
func (ex *Extractor) spectralCentroid(spectrum []float64) float64 {
	var weighted, total float64
	for i, p := range spectrum {
		weighted += ex.binFrequency(i) * p
		total += p
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// spectralRolloff returns the lowest frequency below which the configured
// fraction of spectral energy lies, 0 for a silent spectrum.
func (ex *Extractor) spectralRolloff(spectrum []float64) float64 {
	var total float64
	for _, p := range spectrum {
		total += p
	}
	if total == 0 {
		return 0
	}

	target := ex.cfg.RolloffFraction * total
	var cumulative float64
	for i, p := range spectrum {
		cumulative += p
		if cumulative >= target {
			return ex.binFrequency(i)
		}
	}
	return ex.binFrequency(len(spectrum) - 1)
}

// spectralFlux returns the L2 distance between the current and previous
// frames' sum-normalized spectra, retaining the current spectrum as the new
// reference. The first frame of a stream has zero flux.
func (ex *Extractor) spectralFlux(spectrum []float64) float64 {
	normalized := normalizeSpectrum(spectrum)

	flux := 0.0
	if ex.prevSpectrum != nil {
		var sum float64
		for i, p := range normalized {
			d := p - ex.prevSpectrum[i]
			sum += d * d
		}
		flux = math.Sqrt(sum)
	}

	ex.prevSpectrum = normalized
	return flux
}

// binFrequency maps an FFT bin index to its center frequency in Hz.
func (ex *Extractor) binFrequency(bin int) float64 {
	return float64(bin) * float64(ex.cfg.SampleRate) / float64(ex.cfg.FFTSize)
}

func normalizeSpectrum(spectrum []float64) []float64 {
	var total float64
	for _, p := range spectrum {
		total += p
	}
	out := make([]float64, len(spectrum))
	if total == 0 {
		return out
	}
	for i, p := range spectrum {
		out[i] = p / total
	}
	return out
}

func meanSquare(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}

func zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// hannCoefficients returns the Hann window of length n without touching the
// signal, using gonum's window values.
func hannCoefficients(n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	return window.Hann(coeffs)
}
