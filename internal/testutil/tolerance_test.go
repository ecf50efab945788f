package testutil

import (
	"math"
	"testing"
)

func TestRequireNearPasses(t *testing.T) {
	RequireNear(t, "x", 1.0, 1.0+1e-12, 1e-9)
}

func TestRequireFinitePasses(t *testing.T) {
	RequireFinite(t, []float32{0, 1, -1})
}

func TestRequireSilentPasses(t *testing.T) {
	RequireSilent(t, []float32{0, 1e-7, -1e-7}, 1e-6)
}

func TestRequireAudiblePasses(t *testing.T) {
	RequireAudible(t, []float32{0.5, -0.5}, 0.1)
}

func TestNonFiniteDetected(t *testing.T) {
	data := []float32{0, float32(math.NaN())}
	if FirstAbove(data, 0.5) != -1 {
		t.Fatal("NaN compares above threshold")
	}
}
