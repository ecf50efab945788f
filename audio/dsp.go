package audio

import "math"

const maxLinearGain = 16.0

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dbToGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

func gainToDB(g float64) float64 {
	if g <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(g)
}

func midiToHz(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func secondsToFrames(sec, sampleRate float64) int {
	if sec <= 0 || math.IsNaN(sec) {
		return 0
	}
	return int(math.Round(sec * sampleRate))
}

// mix blends dry and processed signal by wet amount w.
func mix(w, dry, processed float64) float64 {
	return dry*(1-w) + processed*w
}
