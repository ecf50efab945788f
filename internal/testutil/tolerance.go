package testutil

import (
	"math"
	"testing"
)

// RequireNear fails t if got and want differ by more than eps.
func RequireNear(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v (eps %v)", name, got, want, eps)
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float32) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireSilent fails t if any sample exceeds eps in magnitude.
func RequireSilent(t *testing.T, data []float32, eps float64) {
	t.Helper()
	if i := FirstAbove(data, eps); i >= 0 {
		t.Fatalf("index %d: %v, want silence (eps %v)", i, data[i], eps)
	}
}

// RequireAudible fails t if the RMS level of data is not above floor.
func RequireAudible(t *testing.T, data []float32, floor float64) {
	t.Helper()
	if rms := RMS(data); rms <= floor {
		t.Fatalf("rms = %v, want > %v", rms, floor)
	}
}
