package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// Parameter defaults applied when a node leaves a value unset.
const (
	defaultMasterGain    = 1.0
	defaultOscFrequency  = 440.0
	defaultOscWave       = "sine"
	defaultOscGain       = 0.5
	defaultSynthWave     = "triangle"
	defaultSynthGain     = 0.8
	defaultCutoff        = 1000.0
	defaultQ             = 1.0
	defaultFilterType    = "lowpass"
	defaultDelayTime     = 0.25
	defaultFeedback      = 0.5
	defaultWet           = 0.5
	defaultDecay         = 1.5
	defaultDistortion    = 0.4
	defaultChorusFreq    = 4.0
	defaultChorusDelayMs = 2.5
	defaultChorusDepth   = 0.5
	defaultGain          = 1.0
	defaultNoiseType     = "white"
	defaultNoiseGain     = 0.8
	defaultThreshold     = -30.0
	defaultRatio         = 3.0
	defaultAttack        = 0.003
	defaultRelease       = 0.25
	defaultPan           = 0.0
	defaultRamp          = 50 * time.Millisecond
)

// paramWriter applies values to one backend unit and collects failures so
// one bad parameter does not stop the rest.
type paramWriter struct {
	be   backend.Backend
	h    backend.Handle
	ramp time.Duration
	errs []error
}

func (w *paramWriter) ramped(name string, v float64) {
	w.check(name, w.be.SetParam(w.h, name, v, w.ramp))
}

func (w *paramWriter) instant(name string, v float64) {
	w.check(name, w.be.SetParam(w.h, name, v, 0))
}

func (w *paramWriter) option(name, v string) {
	w.check(name, w.be.SetOption(w.h, name, v))
}

// volume sets a unit's volume from a linear gain. Silence applies at once.
func (w *paramWriter) volume(gain float64) {
	db := gainToDB(gain)
	if math.IsInf(db, -1) {
		w.instant("volume", db)
		return
	}
	w.ramped("volume", db)
}

func (w *paramWriter) check(name string, err error) {
	if err != nil {
		w.errs = append(w.errs, fmt.Errorf("%s: %w", name, err))
	}
}

func (w *paramWriter) err() error {
	return errors.Join(w.errs...)
}

// gainToDB converts linear gain to decibels; non-positive gain is -Inf.
func gainToDB(g float64) float64 {
	if g <= 0 || math.IsNaN(g) {
		return math.Inf(-1)
	}
	return 20 * math.Log10(g)
}

// nonZero is like Num but also treats an explicit zero as unset.
func nonZero(p patch.Params, key string, def float64) float64 {
	if v := p.Num(key, def); v != 0 {
		return v
	}
	return def
}

func applyMaster(w *paramWriter, p patch.Params) {
	if p.Bool("isMuted") {
		w.instant("volume", math.Inf(-1))
		return
	}
	w.volume(p.Num("gain", defaultMasterGain))
}

func applyOscillator(w *paramWriter, p patch.Params) {
	w.ramped("frequency", nonZero(p, "frequency", defaultOscFrequency))
	w.ramped("detune", p.Num("detune", 0))
	w.option("type", p.Str("waveType", defaultOscWave))
	w.volume(p.Num("gain", defaultOscGain))
}

func applySynth(w *paramWriter, p patch.Params) {
	w.option("type", p.Str("waveType", defaultSynthWave))
	w.volume(p.Num("gain", defaultSynthGain))
}

func applyFilter(w *paramWriter, p patch.Params) {
	w.ramped("frequency", nonZero(p, "cutoff", defaultCutoff))
	w.ramped("Q", nonZero(p, "q", defaultQ))
	w.option("type", p.Str("filterType", defaultFilterType))
}

func applyDelay(w *paramWriter, p patch.Params) {
	w.ramped("delayTime", nonZero(p, "delayTime", defaultDelayTime))
	w.ramped("feedback", p.Num("feedback", defaultFeedback))
	w.ramped("wet", p.Num("wet", defaultWet))
}

func applyReverb(w *paramWriter, p patch.Params) {
	w.instant("decay", nonZero(p, "decay", defaultDecay))
	w.ramped("wet", p.Num("wet", defaultWet))
}

func applyDistortion(w *paramWriter, p patch.Params) {
	w.instant("distortion", p.Num("distortion", defaultDistortion))
	w.ramped("wet", p.Num("wet", defaultWet))
}

func applyChorus(w *paramWriter, p patch.Params) {
	w.ramped("frequency", p.Num("chorusFrequency", defaultChorusFreq))
	w.ramped("delayTime", p.Num("chorusDelay", defaultChorusDelayMs))
	w.ramped("depth", p.Num("chorusDepth", defaultChorusDepth))
	w.ramped("wet", p.Num("wet", defaultWet))
}

func applyGain(w *paramWriter, p patch.Params) {
	w.ramped("gain", p.Num("gain", defaultGain))
}

func applyNoise(w *paramWriter, p patch.Params) {
	w.option("type", p.Str("noiseType", defaultNoiseType))
	w.volume(p.Num("gain", defaultNoiseGain))
}

func applyCompressor(w *paramWriter, p patch.Params) {
	w.instant("threshold", p.Num("threshold", defaultThreshold))
	w.instant("ratio", p.Num("ratio", defaultRatio))
	w.instant("attack", p.Num("attack", defaultAttack))
	w.instant("release", p.Num("release", defaultRelease))
}

func applyPanner(w *paramWriter, p patch.Params) {
	w.ramped("pan", max(-1, min(1, p.Num("pan", defaultPan))))
}
