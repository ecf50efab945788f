package testutil

import (
	"math"
	"testing"
)

func sine(freq, sampleRate float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return out
}

func TestRMSOfSine(t *testing.T) {
	t.Parallel()

	got := RMS(sine(1000, 48000, 4800))
	if math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Fatalf("RMS = %v, want %v", got, 1/math.Sqrt2)
	}
	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) != 0")
	}
}

func TestPeak(t *testing.T) {
	t.Parallel()

	if got := Peak([]float32{0.1, -0.7, 0.3}); math.Abs(got-0.7) > 1e-6 {
		t.Fatalf("Peak = %v, want 0.7", got)
	}
}

func TestZeroCrossingHz(t *testing.T) {
	t.Parallel()

	for _, freq := range []float64{110, 440, 1000} {
		got := ZeroCrossingHz(sine(freq, 48000, 48000), 48000)
		if math.Abs(got-freq) > freq*0.01 {
			t.Fatalf("ZeroCrossingHz(%v) = %v", freq, got)
		}
	}
	if got := ZeroCrossingHz(make([]float32, 100), 48000); got != 0 {
		t.Fatalf("silence = %v, want 0", got)
	}
}

func TestFirstAbove(t *testing.T) {
	t.Parallel()

	data := []float32{0, 0.001, -0.5, 0.9}
	if got := FirstAbove(data, 0.1); got != 2 {
		t.Fatalf("FirstAbove = %d, want 2", got)
	}
	if got := FirstAbove(data, 1); got != -1 {
		t.Fatalf("FirstAbove = %d, want -1", got)
	}
}
