package audio

import "math"

// LevelData describes the perceived loudness of one frame.
type LevelData struct {
	Level    int  // 0-100 scaled from dBFS
	Clipping bool // true when samples hit full scale
}

// CalculateLevel computes the RMS level of a frame's samples, scaled to a
// 0-100 range with clipping detection.
func CalculateLevel(samples []float32) LevelData {
	if len(samples) == 0 {
		return LevelData{}
	}

	var sum float64
	isClipping := false
	for _, s := range samples {
		abs := math.Abs(float64(s))
		sum += abs * abs
		if abs >= 1.0 {
			isClipping = true
		}
	}

	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return LevelData{}
	}

	db := 20 * math.Log10(rms)

	// Map roughly -60..-10 dBFS onto 0..100.
	scaledLevel := (db + 60) * (100.0 / 50.0)
	if isClipping {
		scaledLevel = math.Max(scaledLevel, 95)
	}
	if scaledLevel < 0 {
		scaledLevel = 0
	} else if scaledLevel > 100 {
		scaledLevel = 100
	}

	return LevelData{Level: int(scaledLevel), Clipping: isClipping}
}
