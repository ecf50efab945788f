package audio

import "github.com/cwbudde/algo-patch/backend"

// stereo is a pair of channel buffers.
type stereo struct {
	l, r []float64
}

func newStereo(n int) stereo {
	return stereo{l: make([]float64, n), r: make([]float64, n)}
}

func (s stereo) slice(n int) stereo {
	return stereo{l: s.l[:n], r: s.r[:n]}
}

func (s stereo) zero() {
	clear(s.l)
	clear(s.r)
}

// block describes the chunk being rendered.
type block struct {
	sampleRate float64
	frame      int64 // first frame of the chunk
	n          int
}

// processor is the per-primitive DSP kernel. Sources ignore in.
type processor interface {
	process(b *block, in, out stereo)
}

type paramSetter interface {
	setParam(name string, value float64, rampFrames int) error
}

type optionSetter interface {
	setOption(name, value string) error
}

type starter interface {
	start()
}

type triggerable interface {
	trigger(n backend.Note, frame int64, sampleRate float64)
}

type monitor interface {
	waveform() []float32
}

type spectrumMonitor interface {
	spectrum() []float64
}

// Unit is a live backend unit. It implements backend.Handle.
type Unit struct {
	ctx      *Context
	id       int
	prim     backend.Primitive
	proc     processor
	toDest   bool
	disposed bool

	// Render-side state, guarded by Context.mu.
	ins      []*Unit
	pass     uint64
	visiting bool
	in, out  stereo
}

// Primitive returns the primitive the unit was built from.
func (u *Unit) Primitive() backend.Primitive { return u.prim }

// ID returns the context-local sequence number of u.
func (u *Unit) ID() int { return u.id }

// pull renders u for the current pass, rendering its inputs first. A unit
// reached again while it is being rendered is part of a feedback cycle and
// contributes its previous output.
func (u *Unit) pull(pass uint64, b *block) stereo {
	out := u.out.slice(b.n)
	if u.pass == pass || u.visiting {
		return out
	}

	u.visiting = true
	in := u.in.slice(b.n)
	in.zero()
	for _, src := range u.ins {
		s := src.pull(pass, b)
		for i := range in.l {
			in.l[i] += s.l[i]
			in.r[i] += s.r[i]
		}
	}

	u.proc.process(b, in, out)
	u.visiting = false
	u.pass = pass

	return out
}
