package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-patch/backend"
)

// oscillator is a free-running periodic source. It is silent until started.
type oscillator struct {
	freq    param
	detune  param // cents
	vol     volume
	shape   waveShape
	phase   float64
	running bool
	gains   []float64
}

func newOscillator(blockSize int) *oscillator {
	return &oscillator{
		freq:   newParam(440, 0, 20000),
		detune: newParam(0, -4800, 4800),
		vol:    newVolume(0),
		gains:  make([]float64, blockSize),
	}
}

func (o *oscillator) start() { o.running = true }

func (o *oscillator) setParam(name string, v float64, ramp int) error {
	switch name {
	case "frequency":
		o.freq.set(v, ramp)
	case "detune":
		o.detune.set(v, ramp)
	case "volume":
		o.vol.setDB(v, ramp)
	default:
		return fmt.Errorf("%w: oscillator %q", backend.ErrUnknownParam, name)
	}
	return nil
}

func (o *oscillator) setOption(name, value string) error {
	if name != "type" {
		return fmt.Errorf("%w: oscillator option %q", backend.ErrUnknownParam, name)
	}
	s, err := parseWaveShape(value)
	if err != nil {
		return err
	}
	o.shape = s
	return nil
}

func (o *oscillator) process(b *block, _, out stereo) {
	if !o.running {
		out.zero()
		return
	}

	for i := range out.l {
		hz := o.freq.next() * math.Exp2(o.detune.next()/1200)
		dt := hz / b.sampleRate
		out.l[i] = o.shape.sample(o.phase, dt)
		o.phase = advancePhase(o.phase, dt)
	}

	gains := o.gains[:b.n]
	o.vol.gain.fill(gains)
	vecmath.MulBlockInPlace(out.l, gains)
	copy(out.r, out.l)
}
