package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patch/backend"
)

const maxChorusDelayMs = 50.0

// chorus is a stereo modulated delay. The right channel's LFO runs half a
// cycle behind the left. The LFO holds still until started.
type chorus struct {
	sampleRate float64
	freq       param // LFO rate, Hz
	delayMs    param
	depth      param
	wet        param
	phase      float64
	running    bool
	l, r       delayLine
}

func newChorus(sampleRate float64) *chorus {
	size := int(math.Ceil(2*maxChorusDelayMs/1000*sampleRate)) + 2
	return &chorus{
		sampleRate: sampleRate,
		freq:       newParam(4, 0, 20),
		delayMs:    newParam(2.5, 0, maxChorusDelayMs),
		depth:      newParam(0.5, 0, 1),
		wet:        newParam(0.5, 0, 1),
		l:          newDelayLine(size),
		r:          newDelayLine(size),
	}
}

func (c *chorus) start() { c.running = true }

func (c *chorus) setParam(name string, v float64, ramp int) error {
	if math.IsNaN(v) {
		return nil
	}
	switch name {
	case "frequency":
		c.freq.set(v, ramp)
	case "delayTime":
		c.delayMs.set(v, ramp)
	case "depth":
		c.depth.set(v, ramp)
	case "wet":
		c.wet.set(v, ramp)
	default:
		return fmt.Errorf("%w: chorus %q", backend.ErrUnknownParam, name)
	}
	return nil
}

func (c *chorus) process(_ *block, in, out stereo) {
	for i := range in.l {
		w := c.wet.next()
		center := c.delayMs.next() / 1000 * c.sampleRate
		deviation := center * c.depth.next()
		dt := c.freq.next() / c.sampleRate

		modL := math.Sin(2 * math.Pi * c.phase)
		dl := center + deviation*modL
		dr := center - deviation*modL
		if c.running {
			c.phase = advancePhase(c.phase, dt)
		}

		c.l.push(in.l[i])
		c.r.push(in.r[i])
		out.l[i] = mix(w, in.l[i], c.l.read(dl))
		out.r[i] = mix(w, in.r[i], c.r.read(dr))
	}
}
