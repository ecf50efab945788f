package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// fakeHandle records everything done to one unit.
type fakeHandle struct {
	id       int
	prim     backend.Primitive
	disposed bool
	started  bool
	params   map[string]float64
	ramps    map[string]time.Duration
	options  map[string]string
	triggers []fakeTrigger
}

func (h *fakeHandle) Primitive() backend.Primitive { return h.prim }

type fakeTrigger struct {
	note backend.Note
	at   float64
}

// fakeBackend is an in-memory backend.Backend that records calls.
type fakeBackend struct {
	mu      sync.Mutex
	nextID  int
	handles []*fakeHandle
	edges   map[*fakeHandle][]*fakeHandle

	creates, disposes int
	begins, commits   int
	activations       int

	failCreate  map[backend.Primitive]error
	failConnect error
	failStart   error
	activateErr error

	capturing bool
	tr        *fakeTransport
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		edges: make(map[*fakeHandle][]*fakeHandle),
		tr:    &fakeTransport{bpm: 120, events: map[backend.EventID]func(float64){}},
	}
}

var (
	_ backend.Backend        = (*fakeBackend)(nil)
	_ backend.Batcher        = (*fakeBackend)(nil)
	_ backend.SpectrumReader = (*fakeBackend)(nil)
)

func (b *fakeBackend) Create(p backend.Primitive) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failCreate[p]; err != nil {
		return nil, err
	}
	b.nextID++
	b.creates++
	h := &fakeHandle{
		id:      b.nextID,
		prim:    p,
		params:  map[string]float64{},
		ramps:   map[string]time.Duration{},
		options: map[string]string{},
	}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBackend) handle(h backend.Handle) (*fakeHandle, error) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil, backend.ErrForeignHandle
	}
	if fh.disposed {
		return nil, backend.ErrDisposed
	}
	return fh, nil
}

func (b *fakeBackend) Dispose(h backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fh, err := b.handle(h)
	if err != nil {
		return err
	}
	fh.disposed = true
	b.disposes++
	delete(b.edges, fh)
	for src, dsts := range b.edges {
		var keep []*fakeHandle
		for _, d := range dsts {
			if d != fh {
				keep = append(keep, d)
			}
		}
		b.edges[src] = keep
	}
	return nil
}

func (b *fakeBackend) Start(h backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failStart != nil {
		return b.failStart
	}
	fh, err := b.handle(h)
	if err != nil {
		return err
	}
	fh.started = true
	return nil
}

func (b *fakeBackend) Connect(src, dst backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failConnect != nil {
		return b.failConnect
	}
	s, err := b.handle(src)
	if err != nil {
		return err
	}
	d, err := b.handle(dst)
	if err != nil {
		return err
	}
	for _, x := range b.edges[s] {
		if x == d {
			return nil
		}
	}
	b.edges[s] = append(b.edges[s], d)
	return nil
}

func (b *fakeBackend) Disconnect(src backend.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.handle(src)
	if err != nil {
		return err
	}
	delete(b.edges, s)
	return nil
}

func (b *fakeBackend) SetParam(h backend.Handle, name string, v float64, ramp time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fh, err := b.handle(h)
	if err != nil {
		return err
	}
	fh.params[name] = v
	fh.ramps[name] = ramp
	return nil
}

func (b *fakeBackend) SetOption(h backend.Handle, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fh, err := b.handle(h)
	if err != nil {
		return err
	}
	fh.options[name] = value
	return nil
}

func (b *fakeBackend) Trigger(h backend.Handle, n backend.Note, at float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fh, err := b.handle(h)
	if err != nil {
		return err
	}
	if fh.prim != backend.PrimitivePolySynth {
		return backend.ErrNotTriggerable
	}
	fh.triggers = append(fh.triggers, fakeTrigger{note: n, at: at})
	return nil
}

func (b *fakeBackend) Waveform(h backend.Handle) []float32 {
	fh, err := b.handle(h)
	if err != nil || fh.prim != backend.PrimitiveScope {
		return nil
	}
	return make([]float32, 64)
}

func (b *fakeBackend) Spectrum(h backend.Handle) []float64 {
	fh, err := b.handle(h)
	if err != nil || fh.prim != backend.PrimitiveScope {
		return nil
	}
	return make([]float64, 512)
}

func (b *fakeBackend) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activations++
	return b.activateErr
}

func (b *fakeBackend) Transport() backend.Transport { return b.tr }

func (b *fakeBackend) StartCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capturing = true
	return nil
}

func (b *fakeBackend) StopCapture() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.capturing {
		return []byte{}, nil
	}
	b.capturing = false
	return []byte("recording"), nil
}

func (b *fakeBackend) BeginUpdate() {
	b.mu.Lock()
	b.begins++
	b.mu.Unlock()
}

func (b *fakeBackend) CommitUpdate() {
	b.mu.Lock()
	b.commits++
	b.mu.Unlock()
}

// live returns the handles that are not disposed.
func (b *fakeBackend) live() []*fakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*fakeHandle
	for _, h := range b.handles {
		if !h.disposed {
			out = append(out, h)
		}
	}
	return out
}

// edgeSet returns the current edges as sorted "src->dst" handle id pairs.
func (b *fakeBackend) edgeSet() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for src, dsts := range b.edges {
		for _, d := range dsts {
			out = append(out, fmt.Sprintf("%d->%d", src.id, d.id))
		}
	}
	sort.Strings(out)
	return out
}

func (b *fakeBackend) hasEdge(src, dst backend.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, d := range b.edges[src.(*fakeHandle)] {
		if d == dst {
			return true
		}
	}
	return false
}

// fakeTransport fires repeat callbacks only when tick is called.
type fakeTransport struct {
	mu      sync.Mutex
	bpm     float64
	running bool
	nextID  backend.EventID
	events  map[backend.EventID]func(float64)
	now     float64
	starts  int
}

func (t *fakeTransport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.starts++
}

func (t *fakeTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *fakeTransport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *fakeTransport) SetBPM(bpm float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bpm = bpm
}

func (t *fakeTransport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

func (t *fakeTransport) Repeat(_ backend.Subdivision, fn func(float64)) backend.EventID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.events[t.nextID] = fn
	return t.nextID
}

func (t *fakeTransport) Clear(id backend.EventID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.events, id)
}

// tick advances the clock by one sixteenth and fires the armed callbacks
// if running.
func (t *fakeTransport) tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	at := t.now
	t.now += backend.Sixteenth.Seconds(t.bpm)
	fns := make([]func(float64), 0, len(t.events))
	for _, fn := range t.events {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(at)
	}
}

func (t *fakeTransport) ticks(n int) {
	for range n {
		t.tick()
	}
}

func (t *fakeTransport) armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeBackend) {
	t.Helper()
	be := newFakeBackend()
	e := New(be, append([]Option{WithLogger(discardLogger())}, opts...)...)
	return e, be
}

func node(id string, k patch.Kind, params patch.Params) patch.Node {
	return patch.Node{ID: id, Kind: k, Params: params}
}

func conn(id, src, dst string) patch.Connection {
	return patch.Connection{ID: id, Source: src, Target: dst}
}

// pattern builds a step pattern from a string of 'x' (on) and '.' (off).
func pattern(s string) []any {
	out := make([]any, len(s))
	for i, c := range s {
		out[i] = c == 'x'
	}
	return out
}

// liveHandle returns the primary backend handle of node id.
func liveHandle(t *testing.T, e *Engine, id string) *fakeHandle {
	t.Helper()
	u := e.snap.Load().unit(id)
	if u == nil {
		t.Fatalf("node %q has no live unit", id)
	}
	h, ok := u.handle.(*fakeHandle)
	if !ok {
		t.Fatalf("node %q has no backend handle", id)
	}
	return h
}
