package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-patch/backend"
)

var (
	_ backend.Backend        = (*Context)(nil)
	_ backend.Batcher        = (*Context)(nil)
	_ backend.SpectrumReader = (*Context)(nil)
	_ backend.EdgeLister     = (*Context)(nil)
)

// factory builds the processor for one primitive.
type factory func(cfg *Config, seed int64) processor

var factories = map[backend.Primitive]factory{
	backend.PrimitiveSink:          func(cfg *Config, _ int64) processor { return newSink(cfg.BlockSize) },
	backend.PrimitiveOscillator:    func(cfg *Config, _ int64) processor { return newOscillator(cfg.BlockSize) },
	backend.PrimitivePolySynth:     func(cfg *Config, _ int64) processor { return newPolySynth(cfg.BlockSize) },
	backend.PrimitiveFilter:        func(cfg *Config, _ int64) processor { return newFilter(cfg.SampleRate) },
	backend.PrimitiveFeedbackDelay: func(cfg *Config, _ int64) processor { return newFeedbackDelay(cfg.SampleRate) },
	backend.PrimitiveReverb:        func(cfg *Config, _ int64) processor { return newReverb(cfg.SampleRate) },
	backend.PrimitiveDistortion:    func(*Config, int64) processor { return newDistortion() },
	backend.PrimitiveChorus:        func(cfg *Config, _ int64) processor { return newChorus(cfg.SampleRate) },
	backend.PrimitiveGain:          func(cfg *Config, _ int64) processor { return newGain(cfg.BlockSize) },
	backend.PrimitiveNoise:         func(cfg *Config, seed int64) processor { return newNoise(cfg.BlockSize, seed) },
	backend.PrimitiveCompressor:    func(cfg *Config, _ int64) processor { return newCompressor(cfg.SampleRate) },
	backend.PrimitivePanner:        func(*Config, int64) processor { return newPanner() },
	backend.PrimitiveScope:         func(*Config, int64) processor { return newScope() },
}

// topology is the staged unit set and edge table.
type topology struct {
	units []*Unit
	outs  map[*Unit][]*Unit
}

// Context renders a graph of units and owns its transport and capture.
type Context struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	staged topology
	batch  int
	nextID int
	live   []*Unit // committed render order
	pass   uint64
	mixL   []float64
	mixR   []float64

	frame     atomic.Int64
	transport *Transport
	capture   recorder

	actMu     sync.Mutex
	activated bool
}

// New returns a Context with no units.
func New(opts ...Option) *Context {
	cfg := applyOptions(opts...)
	c := &Context{
		cfg:    cfg,
		log:    cfg.logger,
		staged: topology{outs: make(map[*Unit][]*Unit)},
		mixL:   make([]float64, cfg.BlockSize),
		mixR:   make([]float64, cfg.BlockSize),
	}
	c.transport = newTransport(cfg.SampleRate, cfg.BPM, c.frame.Load)
	c.capture.channels = 2
	c.capture.sampleRate = int(cfg.SampleRate)
	return c
}

// SampleRate returns the rendering sample rate in Hz.
func (c *Context) SampleRate() float64 { return c.cfg.SampleRate }

// Now returns the backend clock in seconds.
func (c *Context) Now() float64 {
	return float64(c.frame.Load()) / c.cfg.SampleRate
}

// Frame returns the number of frames rendered so far.
func (c *Context) Frame() int64 { return c.frame.Load() }

// Transport returns the context's clock.
func (c *Context) Transport() backend.Transport { return c.transport }

// Activate runs the configured activator once. Later calls return nil
// immediately; a failed or cancelled activation may be retried.
func (c *Context) Activate(ctx context.Context) error {
	c.actMu.Lock()
	defer c.actMu.Unlock()

	if c.activated {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.cfg.activator != nil {
		if err := c.cfg.activator(ctx); err != nil {
			return fmt.Errorf("audio: activate: %w", err)
		}
	}
	c.activated = true
	c.log.Debug("audio context activated", "sampleRate", c.cfg.SampleRate)
	return nil
}

// Create builds a unit for primitive p.
func (c *Context) Create(p backend.Primitive) (backend.Handle, error) {
	build, ok := factories[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnsupported, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	u := &Unit{
		ctx:    c,
		id:     c.nextID,
		prim:   p,
		proc:   build(&c.cfg, int64(c.nextID)),
		toDest: p == backend.PrimitiveSink,
		in:     newStereo(c.cfg.BlockSize),
		out:    newStereo(c.cfg.BlockSize),
	}
	c.staged.units = append(c.staged.units, u)
	c.commitLocked()

	return u, nil
}

// Dispose removes h and every edge touching it.
func (c *Context) Dispose(h backend.Handle) error {
	u, err := c.unit(h)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u.disposed {
		return nil
	}
	u.disposed = true
	c.staged.units = slices.DeleteFunc(c.staged.units, func(x *Unit) bool { return x == u })
	delete(c.staged.outs, u)
	for src, dsts := range c.staged.outs {
		c.staged.outs[src] = slices.DeleteFunc(dsts, func(x *Unit) bool { return x == u })
	}
	c.commitLocked()

	return nil
}

// Start starts a free-running source. It is a no-op for other units.
func (c *Context) Start(h backend.Handle) error {
	u, err := c.unit(h)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u.disposed {
		return backend.ErrDisposed
	}
	if s, ok := u.proc.(starter); ok {
		s.start()
	}
	return nil
}

// Connect adds the edge src -> dst.
func (c *Context) Connect(src, dst backend.Handle) error {
	s, err := c.unit(src)
	if err != nil {
		return err
	}
	d, err := c.unit(dst)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.disposed || d.disposed {
		return backend.ErrDisposed
	}
	if slices.Contains(c.staged.outs[s], d) {
		return nil
	}
	c.staged.outs[s] = append(c.staged.outs[s], d)
	c.commitLocked()

	return nil
}

// Disconnect removes every outgoing edge of src. A sink keeps its route to
// the output.
func (c *Context) Disconnect(src backend.Handle) error {
	s, err := c.unit(src)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.disposed {
		return backend.ErrDisposed
	}
	if len(c.staged.outs[s]) == 0 {
		return nil
	}
	delete(c.staged.outs, s)
	c.commitLocked()

	return nil
}

// Edges returns the staged outgoing edges of src.
func (c *Context) Edges(src backend.Handle) []backend.Handle {
	s, err := c.unit(src)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]backend.Handle, 0, len(c.staged.outs[s]))
	for _, d := range c.staged.outs[s] {
		out = append(out, d)
	}
	return out
}

// Units returns the number of live units.
func (c *Context) Units() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.staged.units)
}

// BeginUpdate starts a batch: edits are staged but not rendered until the
// matching CommitUpdate.
func (c *Context) BeginUpdate() {
	c.mu.Lock()
	c.batch++
	c.mu.Unlock()
}

// CommitUpdate ends a batch and publishes the staged topology.
func (c *Context) CommitUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batch > 0 {
		c.batch--
	}
	c.commitLocked()
}

// commitLocked publishes the staged topology to the renderer unless a
// batch is open.
func (c *Context) commitLocked() {
	if c.batch > 0 {
		return
	}

	c.live = append(c.live[:0], c.staged.units...)
	for _, u := range c.live {
		u.ins = u.ins[:0]
	}
	for _, src := range c.live {
		for _, dst := range c.staged.outs[src] {
			dst.ins = append(dst.ins, src)
		}
	}
}

// SetParam sets a continuous parameter of h.
func (c *Context) SetParam(h backend.Handle, name string, value float64, ramp time.Duration) error {
	u, err := c.unit(h)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u.disposed {
		return backend.ErrDisposed
	}
	ps, ok := u.proc.(paramSetter)
	if !ok {
		return fmt.Errorf("%w: %s has no parameter %q", backend.ErrUnknownParam, u.prim, name)
	}
	frames := 0
	if !math.IsInf(value, 0) {
		frames = secondsToFrames(ramp.Seconds(), c.cfg.SampleRate)
	}
	return ps.setParam(name, value, frames)
}

// SetOption sets a categorical parameter of h.
func (c *Context) SetOption(h backend.Handle, name, value string) error {
	u, err := c.unit(h)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u.disposed {
		return backend.ErrDisposed
	}
	os, ok := u.proc.(optionSetter)
	if !ok {
		return fmt.Errorf("%w: %s has no option %q", backend.ErrUnknownParam, u.prim, name)
	}
	return os.setOption(name, value)
}

// Trigger schedules a note on h at backend time at.
func (c *Context) Trigger(h backend.Handle, n backend.Note, at float64) error {
	u, err := c.unit(h)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u.disposed {
		return backend.ErrDisposed
	}
	tr, ok := u.proc.(triggerable)
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrNotTriggerable, u.prim)
	}
	tr.trigger(n, int64(math.Round(at*c.cfg.SampleRate)), c.cfg.SampleRate)
	return nil
}

// Waveform returns the latest samples of a scope unit, or nil.
func (c *Context) Waveform(h backend.Handle) []float32 {
	u, err := c.unit(h)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := u.proc.(monitor)
	if !ok || u.disposed {
		return nil
	}
	return m.waveform()
}

// Spectrum returns the magnitude spectrum in dBFS seen by a scope unit, or nil.
func (c *Context) Spectrum(h backend.Handle) []float64 {
	u, err := c.unit(h)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := u.proc.(spectrumMonitor)
	if !ok || u.disposed {
		return nil
	}
	return m.spectrum()
}

// StartCapture begins recording the output.
func (c *Context) StartCapture() error {
	c.capture.start()
	return nil
}

// StopCapture ends the recording and returns it as a WAV file. Without a
// running capture the recording is empty.
func (c *Context) StopCapture() ([]byte, error) {
	return c.capture.stop()
}

// Render renders min(len(left), len(right)) frames of output. Transport
// callbacks due within the span run first, outside the graph lock, and the
// span is split so that every tick lands on a chunk boundary.
func (c *Context) Render(left, right []float32) {
	n := min(len(left), len(right))

	for done := 0; done < n; {
		frame := c.frame.Load()
		c.transport.fire(frame)

		chunk := min(n-done, c.cfg.BlockSize)
		if until := c.transport.framesUntilTick(frame); until > 0 && until < chunk {
			chunk = until
		}

		c.mu.Lock()
		c.renderLocked(frame, chunk)
		for i := 0; i < chunk; i++ {
			left[done+i] = float32(clamp(c.mixL[i], -1, 1))
			right[done+i] = float32(clamp(c.mixR[i], -1, 1))
		}
		c.mu.Unlock()

		c.capture.write(left[done:done+chunk], right[done:done+chunk])
		c.frame.Add(int64(chunk))
		done += chunk
	}
}

// RenderFrames renders n frames and discards them. Captures and monitoring
// taps still observe the output.
func (c *Context) RenderFrames(n int) {
	l := make([]float32, c.cfg.BlockSize)
	r := make([]float32, c.cfg.BlockSize)
	for n > 0 {
		k := min(n, len(l))
		c.Render(l[:k], r[:k])
		n -= k
	}
}

func (c *Context) renderLocked(frame int64, n int) {
	c.pass++
	b := &block{sampleRate: c.cfg.SampleRate, frame: frame, n: n}

	mixL, mixR := c.mixL[:n], c.mixR[:n]
	clear(mixL)
	clear(mixR)

	for _, u := range c.live {
		out := u.pull(c.pass, b)
		if !u.toDest {
			continue
		}
		for i := range mixL {
			mixL[i] += out.l[i]
			mixR[i] += out.r[i]
		}
	}
}

func (c *Context) unit(h backend.Handle) (*Unit, error) {
	u, ok := h.(*Unit)
	if !ok || u == nil || u.ctx != c {
		return nil, backend.ErrForeignHandle
	}
	return u, nil
}
