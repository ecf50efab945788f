package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-patch/backend"
)

// sink is the master channel: a volume stage whose output is routed to the
// context output.
type sink struct {
	vol   volume
	gains []float64
}

func newSink(blockSize int) *sink {
	return &sink{vol: newVolume(0), gains: make([]float64, blockSize)}
}

func (s *sink) setParam(name string, v float64, ramp int) error {
	if name != "volume" {
		return fmt.Errorf("%w: sink %q", backend.ErrUnknownParam, name)
	}
	s.vol.setDB(v, ramp)
	return nil
}

func (s *sink) process(b *block, in, out stereo) {
	gains := s.gains[:b.n]
	s.vol.gain.fill(gains)
	vecmath.MulBlock(out.l, in.l, gains)
	vecmath.MulBlock(out.r, in.r, gains)
}

// gain is a linear amplifier.
type gain struct {
	gain  param
	gains []float64
}

func newGain(blockSize int) *gain {
	return &gain{gain: newParam(1, 0, maxLinearGain), gains: make([]float64, blockSize)}
}

func (g *gain) setParam(name string, v float64, ramp int) error {
	if name != "gain" {
		return fmt.Errorf("%w: gain %q", backend.ErrUnknownParam, name)
	}
	g.gain.set(v, ramp)
	return nil
}

func (g *gain) process(b *block, in, out stereo) {
	gains := g.gains[:b.n]
	g.gain.fill(gains)
	vecmath.MulBlock(out.l, in.l, gains)
	vecmath.MulBlock(out.r, in.r, gains)
}

// distortion is a waveshaper with the curve
// (3+k)·x·20° / (π + k·|x|), k = 100·amount.
type distortion struct {
	amount float64
	k      float64
	wet    param
}

func newDistortion() *distortion {
	d := &distortion{wet: newParam(0.5, 0, 1)}
	d.setAmount(0.4)
	return d
}

func (d *distortion) setAmount(v float64) {
	if math.IsNaN(v) {
		return
	}
	d.amount = clamp(v, 0, 1)
	d.k = d.amount * 100
}

func (d *distortion) setParam(name string, v float64, ramp int) error {
	switch name {
	case "distortion":
		d.setAmount(v)
	case "wet":
		d.wet.set(v, ramp)
	default:
		return fmt.Errorf("%w: distortion %q", backend.ErrUnknownParam, name)
	}
	return nil
}

func (d *distortion) shape(x float64) float64 {
	x = clamp(x, -1, 1)
	if math.Abs(x) < 0.001 {
		return 0
	}
	const deg = math.Pi / 180
	return (3 + d.k) * x * 20 * deg / (math.Pi + d.k*math.Abs(x))
}

func (d *distortion) process(_ *block, in, out stereo) {
	for i := range in.l {
		w := d.wet.next()
		out.l[i] = mix(w, in.l[i], d.shape(in.l[i]))
		out.r[i] = mix(w, in.r[i], d.shape(in.r[i]))
	}
}

// panner positions a stereo signal with the equal-power law used by
// StereoPannerNode.
type panner struct {
	pan param
}

func newPanner() *panner {
	return &panner{pan: newParam(0, -1, 1)}
}

func (p *panner) setParam(name string, v float64, ramp int) error {
	if name != "pan" {
		return fmt.Errorf("%w: panner %q", backend.ErrUnknownParam, name)
	}
	p.pan.set(v, ramp)
	return nil
}

func (p *panner) process(_ *block, in, out stereo) {
	for i := range in.l {
		pan := p.pan.next()
		l, r := in.l[i], in.r[i]
		if pan <= 0 {
			x := (pan + 1) * math.Pi / 2
			out.l[i] = l + r*math.Cos(x)
			out.r[i] = r * math.Sin(x)
		} else {
			x := pan * math.Pi / 2
			out.l[i] = l * math.Cos(x)
			out.r[i] = r + l*math.Sin(x)
		}
	}
}
