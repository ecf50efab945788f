package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patch/backend"
)

type filterType int

const (
	filterLowpass filterType = iota
	filterHighpass
	filterBandpass
)

var filterTypes = map[string]filterType{
	"lowpass":  filterLowpass,
	"highpass": filterHighpass,
	"bandpass": filterBandpass,
}

// biquad is a transposed direct form II section.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	d0, d1             float64
}

func (s *biquad) processSample(x float64) float64 {
	y := s.b0*x + s.d0
	s.d0 = s.b1*x - s.a1*y + s.d1
	s.d1 = s.b2*x - s.a2*y
	return y
}

// filter is an RBJ cookbook biquad per channel.
type filter struct {
	sampleRate float64
	typ        filterType
	freq       param
	q          param
	l, r       biquad
	dirty      bool
}

func newFilter(sampleRate float64) *filter {
	f := &filter{
		sampleRate: sampleRate,
		freq:       newParam(1000, 10, sampleRate*0.49),
		q:          newParam(1, 0.0001, 100),
	}
	f.design()
	return f
}

func (f *filter) setParam(name string, v float64, ramp int) error {
	switch name {
	case "frequency":
		f.freq.set(v, ramp)
	case "Q":
		f.q.set(v, ramp)
	default:
		return fmt.Errorf("%w: filter %q", backend.ErrUnknownParam, name)
	}
	f.dirty = true
	return nil
}

func (f *filter) setOption(name, value string) error {
	if name != "type" {
		return fmt.Errorf("%w: filter option %q", backend.ErrUnknownParam, name)
	}
	t, ok := filterTypes[value]
	if !ok {
		return fmt.Errorf("%w: filter type %q", ErrInvalidOption, value)
	}
	f.typ = t
	f.dirty = true
	return nil
}

func (f *filter) process(_ *block, in, out stereo) {
	for i := range in.l {
		if f.freq.ramping() || f.q.ramping() {
			f.freq.next()
			f.q.next()
			f.design()
		} else if f.dirty {
			f.design()
		}
		out.l[i] = f.l.processSample(in.l[i])
		out.r[i] = f.r.processSample(in.r[i])
	}
}

// design recomputes the coefficients for the current frequency, Q and type.
func (f *filter) design() {
	f.dirty = false

	w0 := 2 * math.Pi * f.freq.value / f.sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * f.q.value)

	var b0, b1, b2 float64
	switch f.typ {
	case filterHighpass:
		b0 = (1 + cw) / 2
		b1 = -(1 + cw)
		b2 = (1 + cw) / 2
	case filterBandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cw) / 2
		b1 = 1 - cw
		b2 = (1 - cw) / 2
	}
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	for _, s := range []*biquad{&f.l, &f.r} {
		s.b0, s.b1, s.b2 = b0/a0, b1/a0, b2/a0
		s.a1, s.a2 = a1/a0, a2/a0
	}
}
