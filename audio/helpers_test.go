package audio

import (
	"testing"

	"github.com/cwbudde/algo-patch/backend"
)

const testRate = 48000

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	return New(append([]Option{WithSampleRate(testRate)}, opts...)...)
}

func mustCreate(t *testing.T, c *Context, p backend.Primitive) backend.Handle {
	t.Helper()
	h, err := c.Create(p)
	if err != nil {
		t.Fatalf("Create(%s): %v", p, err)
	}
	return h
}

func mustConnect(t *testing.T, c *Context, src, dst backend.Handle) {
	t.Helper()
	if err := c.Connect(src, dst); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func mustSet(t *testing.T, c *Context, h backend.Handle, name string, v float64) {
	t.Helper()
	if err := c.SetParam(h, name, v, 0); err != nil {
		t.Fatalf("SetParam(%s, %q): %v", h.Primitive(), name, err)
	}
}

// render renders n frames and returns both channels.
func render(c *Context, n int) (left, right []float32) {
	left = make([]float32, n)
	right = make([]float32, n)
	c.Render(left, right)
	return left, right
}

// runningOscillator builds oscillator -> sink and starts the oscillator.
func runningOscillator(t *testing.T, c *Context) (osc, out backend.Handle) {
	t.Helper()
	osc = mustCreate(t, c, backend.PrimitiveOscillator)
	out = mustCreate(t, c, backend.PrimitiveSink)
	mustConnect(t, c, osc, out)
	if err := c.Start(osc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return osc, out
}

// processMono runs p over a mono signal fed to both channels and returns
// the left output.
func processMono(p processor, in []float64) []float64 {
	b := &block{sampleRate: testRate, n: len(in)}
	src := stereo{l: append([]float64(nil), in...), r: append([]float64(nil), in...)}
	dst := newStereo(len(in))
	p.process(b, src, dst)
	return dst.l
}

func impulse(n int) []float64 {
	out := make([]float64, n)
	out[0] = 1
	return out
}
