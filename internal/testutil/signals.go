package testutil

import "math"

// RMS returns the root-mean-square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	return peak
}

// ZeroCrossingHz estimates the fundamental of a periodic signal from its
// rising zero crossings.
func ZeroCrossingHz(samples []float32, sampleRate float64) float64 {
	first, last, n := -1, -1, 0
	for i := 1; i < len(samples); i++ {
		if samples[i-1] < 0 && samples[i] >= 0 {
			if first < 0 {
				first = i
			}
			last = i
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return float64(n-1) * sampleRate / float64(last-first)
}

// FirstAbove returns the index of the first sample whose magnitude exceeds
// threshold, or -1.
func FirstAbove(samples []float32, threshold float64) int {
	for i, v := range samples {
		if math.Abs(float64(v)) > threshold {
			return i
		}
	}
	return -1
}
