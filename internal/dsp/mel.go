package dsp

import "math"

// hzToMel converts a frequency in Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts a mel-scale value back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds numBands triangular filters spanning 0 Hz to Nyquist,
// each returned as a weight per spectrum bin (fftSize/2+1 bins).
func melFilterBank(numBands, fftSize, sampleRate int) [][]float64 {
	numBins := fftSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2.0)

	// numBands+2 evenly spaced mel points define the triangle edges.
	binPoints := make([]int, numBands+2)
	for i := range binPoints {
		mel := maxMel * float64(i) / float64(numBands+1)
		hz := melToHz(mel)
		bin := int(math.Floor(float64(fftSize+1) * hz / float64(sampleRate)))
		if bin > numBins-1 {
			bin = numBins - 1
		}
		binPoints[i] = bin
	}

	filters := make([][]float64, numBands)
	for b := 0; b < numBands; b++ {
		filter := make([]float64, numBins)
		left, center, right := binPoints[b], binPoints[b+1], binPoints[b+2]

		for k := left; k < center; k++ {
			if center != left {
				filter[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right; k++ {
			if right != center {
				filter[k] = float64(right-k) / float64(right-center)
			} else if k == center {
				// Degenerate triangle from low-resolution spectra: keep a
				// unit spike so the band still contributes.
				filter[k] = 1
			}
		}

		filters[b] = filter
	}
	return filters
}

// dctBasis precomputes the orthonormal DCT-II basis used to decorrelate the
// log mel energies, count x size.
func dctBasis(count, size int) [][]float64 {
	basis := make([][]float64, count)
	scale0 := math.Sqrt(1.0 / float64(size))
	scale := math.Sqrt(2.0 / float64(size))

	for i := 0; i < count; i++ {
		row := make([]float64, size)
		for j := 0; j < size; j++ {
			row[j] = math.Cos(math.Pi * float64(i) * (float64(j) + 0.5) / float64(size))
			if i == 0 {
				row[j] *= scale0
			} else {
				row[j] *= scale
			}
		}
		basis[i] = row
	}
	return basis
}
