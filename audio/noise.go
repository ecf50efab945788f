package audio

import (
	"fmt"
	"math/rand/v2"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-patch/backend"
)

type noiseColor int

const (
	noiseWhite noiseColor = iota
	noisePink
	noiseBrown
)

var noiseColors = map[string]noiseColor{
	"white": noiseWhite,
	"pink":  noisePink,
	"brown": noiseBrown,
}

// noise is a seeded noise source. It is silent until started.
type noise struct {
	color   noiseColor
	vol     volume
	rng     *rand.Rand
	running bool
	gains   []float64

	pink  [7]float64 // Paul Kellet filter state
	brown float64
}

func newNoise(blockSize int, seed int64) *noise {
	return &noise{
		vol:   newVolume(0),
		rng:   rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)),
		gains: make([]float64, blockSize),
	}
}

func (n *noise) start() { n.running = true }

func (n *noise) setParam(name string, v float64, ramp int) error {
	if name != "volume" {
		return fmt.Errorf("%w: noise %q", backend.ErrUnknownParam, name)
	}
	n.vol.setDB(v, ramp)
	return nil
}

func (n *noise) setOption(name, value string) error {
	if name != "type" {
		return fmt.Errorf("%w: noise option %q", backend.ErrUnknownParam, name)
	}
	c, ok := noiseColors[value]
	if !ok {
		return fmt.Errorf("%w: noise type %q", ErrInvalidOption, value)
	}
	n.color = c
	return nil
}

func (n *noise) next() float64 {
	w := n.rng.Float64()*2 - 1
	switch n.color {
	case noisePink:
		p := &n.pink
		p[0] = 0.99886*p[0] + w*0.0555179
		p[1] = 0.99332*p[1] + w*0.0750759
		p[2] = 0.96900*p[2] + w*0.1538520
		p[3] = 0.86650*p[3] + w*0.3104856
		p[4] = 0.55000*p[4] + w*0.5329522
		p[5] = -0.7616*p[5] - w*0.0168980
		out := p[0] + p[1] + p[2] + p[3] + p[4] + p[5] + p[6] + w*0.5362
		p[6] = w * 0.115926
		return out * 0.11
	case noiseBrown:
		n.brown = (n.brown + 0.02*w) / 1.02
		return n.brown * 3.5
	default:
		return w
	}
}

func (n *noise) process(b *block, _, out stereo) {
	if !n.running {
		out.zero()
		return
	}
	for i := range out.l {
		out.l[i] = n.next()
	}
	gains := n.gains[:b.n]
	n.vol.gain.fill(gains)
	vecmath.MulBlockInPlace(out.l, gains)
	copy(out.r, out.l)
}
