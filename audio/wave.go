package audio

import (
	"fmt"
	"math"
)

// waveShape is a periodic oscillator waveform.
type waveShape int

const (
	waveSine waveShape = iota
	waveSquare
	waveTriangle
	waveSawtooth
)

var waveShapes = map[string]waveShape{
	"sine":     waveSine,
	"square":   waveSquare,
	"triangle": waveTriangle,
	"sawtooth": waveSawtooth,
}

func parseWaveShape(name string) (waveShape, error) {
	s, ok := waveShapes[name]
	if !ok {
		return 0, fmt.Errorf("%w: wave type %q", ErrInvalidOption, name)
	}
	return s, nil
}

// sample returns the waveform at phase in [0, 1). dt is the phase
// increment per frame and sizes the polyBLEP correction at discontinuities.
func (w waveShape) sample(phase, dt float64) float64 {
	switch w {
	case waveSquare:
		v := 1.0
		if phase >= 0.5 {
			v = -1
		}
		v += polyBLEP(phase, dt)
		v -= polyBLEP(math.Mod(phase+0.5, 1), dt)
		return v
	case waveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	case waveSawtooth:
		return 2*phase - 1 - polyBLEP(phase, dt)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	switch {
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func advancePhase(phase, dt float64) float64 {
	phase += dt
	if phase >= 1 {
		phase -= math.Floor(phase)
	}
	return phase
}
