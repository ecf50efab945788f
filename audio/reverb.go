package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patch/backend"
)

const (
	reverbInputGain  = 0.015
	reverbWetScale   = 3.0
	reverbDamp       = 0.2
	reverbStereoSkew = 23
	reverbTuningRate = 44100.0
)

var (
	reverbCombTuning    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	reverbAllpassTuning = [...]int{556, 441, 341, 225}
)

type reverbComb struct {
	feedback float64
	store    float64
	buf      []float64
	index    int
}

func (c *reverbComb) process(x float64) float64 {
	y := c.buf[c.index]
	c.store = y*(1-reverbDamp) + c.store*reverbDamp
	if math.Abs(c.store) < 1e-23 {
		c.store = 0
	}
	c.buf[c.index] = x + c.store*c.feedback
	c.index++
	if c.index == len(c.buf) {
		c.index = 0
	}
	return y
}

type reverbAllpass struct {
	buf   []float64
	index int
}

func (a *reverbAllpass) process(x float64) float64 {
	y := a.buf[a.index]
	a.buf[a.index] = x + y*0.5
	a.index++
	if a.index == len(a.buf) {
		a.index = 0
	}
	return y - x
}

// reverbChannel is one Schroeder/Freeverb tank.
type reverbChannel struct {
	combs   [len(reverbCombTuning)]reverbComb
	allpass [len(reverbAllpassTuning)]reverbAllpass
}

func newReverbChannel(sampleRate float64, skew int) reverbChannel {
	scale := sampleRate / reverbTuningRate
	var ch reverbChannel
	for i, n := range reverbCombTuning {
		ch.combs[i].buf = make([]float64, max(int(float64(n+skew)*scale), 1))
	}
	for i, n := range reverbAllpassTuning {
		ch.allpass[i].buf = make([]float64, max(int(float64(n+skew)*scale), 1))
	}
	return ch
}

func (ch *reverbChannel) process(x float64) float64 {
	var acc float64
	for i := range ch.combs {
		acc += ch.combs[i].process(x)
	}
	for i := range ch.allpass {
		acc = ch.allpass[i].process(acc)
	}
	return acc
}

// reverb maps decay (RT60 in seconds) onto the comb feedback of a stereo
// Freeverb tank.
type reverb struct {
	sampleRate float64
	decay      float64
	wet        param
	l, r       reverbChannel
}

func newReverb(sampleRate float64) *reverb {
	rv := &reverb{
		sampleRate: sampleRate,
		wet:        newParam(0.5, 0, 1),
		l:          newReverbChannel(sampleRate, 0),
		r:          newReverbChannel(sampleRate, reverbStereoSkew),
	}
	rv.setDecay(1.5)
	return rv
}

func (rv *reverb) setParam(name string, v float64, ramp int) error {
	switch name {
	case "decay":
		rv.setDecay(v)
	case "wet":
		rv.wet.set(v, ramp)
	default:
		return fmt.Errorf("%w: reverb %q", backend.ErrUnknownParam, name)
	}
	return nil
}

// setDecay sets each comb's feedback so that its loop loses 60 dB in
// decay seconds.
func (rv *reverb) setDecay(decay float64) {
	if math.IsNaN(decay) {
		return
	}
	rv.decay = clamp(decay, 0.01, 60)
	for _, ch := range []*reverbChannel{&rv.l, &rv.r} {
		for i := range ch.combs {
			c := &ch.combs[i]
			loop := float64(len(c.buf)) / rv.sampleRate
			c.feedback = math.Min(math.Pow(10, -3*loop/rv.decay), 0.98)
		}
	}
}

func (rv *reverb) process(_ *block, in, out stereo) {
	for i := range in.l {
		w := rv.wet.next()
		x := (in.l[i] + in.r[i]) * reverbInputGain
		out.l[i] = mix(w, in.l[i], rv.l.process(x)*reverbWetScale)
		out.r[i] = mix(w, in.r[i], rv.r.process(x)*reverbWetScale)
	}
}
