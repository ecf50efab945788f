package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patch/backend"
)

const maxDelaySeconds = 1.0

// delayLine is a circular buffer read at a fractional delay.
type delayLine struct {
	buf   []float64
	write int
}

func newDelayLine(size int) delayLine {
	return delayLine{buf: make([]float64, max(size, 2))}
}

func (d *delayLine) push(x float64) {
	d.buf[d.write] = x
	d.write++
	if d.write == len(d.buf) {
		d.write = 0
	}
}

// read returns the sample written delay frames before the last push,
// linearly interpolated.
func (d *delayLine) read(delay float64) float64 {
	n := len(d.buf)
	delay = clamp(delay, 0, float64(n-2))
	i := int(delay)
	frac := delay - float64(i)

	p := d.write - 1 - i
	for p < 0 {
		p += n
	}
	q := p - 1
	if q < 0 {
		q += n
	}
	return d.buf[p]*(1-frac) + d.buf[q]*frac
}

// feedbackDelay is an echo with feedback around the delay line.
type feedbackDelay struct {
	sampleRate float64
	time       param // seconds
	feedback   param
	wet        param
	l, r       delayLine
}

func newFeedbackDelay(sampleRate float64) *feedbackDelay {
	size := int(math.Ceil(maxDelaySeconds*sampleRate)) + 2
	return &feedbackDelay{
		sampleRate: sampleRate,
		time:       newParam(0.25, 0, maxDelaySeconds),
		feedback:   newParam(0.5, 0, 0.99),
		wet:        newParam(0.5, 0, 1),
		l:          newDelayLine(size),
		r:          newDelayLine(size),
	}
}

func (d *feedbackDelay) setParam(name string, v float64, ramp int) error {
	switch name {
	case "delayTime":
		d.time.set(v, ramp)
	case "feedback":
		d.feedback.set(v, ramp)
	case "wet":
		d.wet.set(v, ramp)
	default:
		return fmt.Errorf("%w: feedback delay %q", backend.ErrUnknownParam, name)
	}
	return nil
}

func (d *feedbackDelay) process(_ *block, in, out stereo) {
	for i := range in.l {
		frames := d.time.next() * d.sampleRate
		fb := d.feedback.next()
		w := d.wet.next()

		// Read before write: the shortest delay is one frame.
		yl := d.l.read(frames - 1)
		yr := d.r.read(frames - 1)
		d.l.push(in.l[i] + yl*fb)
		d.r.push(in.r[i] + yr*fb)

		out.l[i] = mix(w, in.l[i], yl)
		out.r[i] = mix(w, in.r[i], yr)
	}
}
