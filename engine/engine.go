package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// Tempo limits accepted by SetTempo.
const (
	MinTempo = 20.0
	MaxTempo = 400.0
)

// Engine is the facade an editor drives: reconcile graphs, run the
// transport, change tempo, capture output and read monitoring taps.
type Engine struct {
	be  backend.Backend
	log *slog.Logger

	rec   *reconciler
	sched *scheduler
	snap  atomic.Pointer[snapshot]

	mu sync.Mutex // serialises control operations
}

// Status is a read-only view of the engine for display.
type Status struct {
	Graph   patch.Graph
	Live    []string // node ids with a live unit, sorted
	Running bool
	Tempo   float64
	Ticks   int64
	Step    int // step of the latest tick, -1 before the first
}

// New returns an Engine driving be. The engine starts with an empty graph.
func New(be backend.Backend, opts ...Option) *Engine {
	cfg := applyOptions(opts...)
	ad := &adapter{be: be, ramp: cfg.ramp, log: cfg.logger}

	e := &Engine{
		be:  be,
		log: cfg.logger,
		rec: newReconciler(ad, cfg.logger),
	}
	e.sched = &scheduler{
		tr:       be.Transport(),
		ad:       ad,
		snap:     &e.snap,
		log:      cfg.logger,
		pitch:    cfg.pitch,
		velocity: cfg.velocity,
		onStep:   cfg.onStep,
	}
	e.snap.Store(&snapshot{units: map[string]*liveUnit{}})
	return e
}

// Reconcile makes the backend match g. Construction failures and edge
// errors are reported, logged and skipped; they never abort the pass.
func (e *Engine) Reconcile(g patch.Graph) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.reconcileLocked(g)
}

func (e *Engine) reconcileLocked(g patch.Graph) Report {
	snap, rep := e.rec.reconcile(g)
	e.snap.Store(snap)
	return rep
}

// Load validates doc and replaces the live graph with it. Playback stops
// first and the document's tempo, when present, is applied after clamping
// to [MinTempo, MaxTempo]. An invalid document leaves the engine untouched.
func (e *Engine) Load(doc *patch.Document) (Report, error) {
	if doc == nil {
		return Report{}, fmt.Errorf("%w: nil document", patch.ErrMalformed)
	}
	if err := doc.Validate(); err != nil {
		return Report{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sched.stop()
	if doc.BPM > 0 {
		bpm := clampTempo(doc.BPM)
		if bpm != doc.BPM {
			e.log.Warn("document tempo clamped", "bpm", doc.BPM, "applied", bpm)
		}
		e.be.Transport().SetBPM(bpm)
	}
	return e.reconcileLocked(doc.Graph()), nil
}

// Start activates the backend and starts the sequencers from step zero.
// Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.be.Activate(ctx); err != nil {
		return fmt.Errorf("engine: start: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sched.start() {
		e.log.Info("transport started", "bpm", e.be.Transport().BPM())
	}
	return nil
}

// Stop stops the transport. No note is dispatched after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sched.stop()
	e.log.Debug("transport stopped")
}

// Running reports whether the transport is started.
func (e *Engine) Running() bool {
	return e.sched.isRunning()
}

// SetTempo sets the transport tempo in BPM.
func (e *Engine) SetTempo(bpm float64) error {
	if err := checkTempo(bpm); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.be.Transport().SetBPM(bpm)
	return nil
}

func checkTempo(bpm float64) error {
	if math.IsNaN(bpm) || bpm < MinTempo || bpm > MaxTempo {
		return fmt.Errorf("%w: %v (want %v..%v)", ErrInvalidTempo, bpm, MinTempo, MaxTempo)
	}
	return nil
}

func clampTempo(bpm float64) float64 {
	return max(MinTempo, min(MaxTempo, bpm))
}

// Tempo returns the transport tempo in BPM.
func (e *Engine) Tempo() float64 {
	return e.be.Transport().BPM()
}

// StartCapture activates the backend and begins recording its output.
func (e *Engine) StartCapture(ctx context.Context) error {
	if err := e.be.Activate(ctx); err != nil {
		return fmt.Errorf("engine: capture: %w", err)
	}
	if err := e.be.StartCapture(); err != nil {
		return fmt.Errorf("engine: capture: %w", err)
	}
	return nil
}

// StopCapture ends the recording and returns it. Without a running capture
// the recording is empty.
func (e *Engine) StopCapture() ([]byte, error) {
	data, err := e.be.StopCapture()
	if err != nil {
		return nil, fmt.Errorf("engine: stop capture: %w", err)
	}
	return data, nil
}

// ReadWaveform returns the latest samples seen by the monitoring tap of
// node id, or nil if the node has none.
func (e *Engine) ReadWaveform(id string) []float32 {
	u := e.snap.Load().unit(id)
	if u == nil {
		return nil
	}
	h := u.monitorHandle()
	if h == nil {
		return nil
	}
	return e.be.Waveform(h)
}

// ReadSpectrum returns the magnitude spectrum in dBFS at the monitoring
// tap of node id, or nil if the node has none or the backend cannot
// analyse.
func (e *Engine) ReadSpectrum(id string) []float64 {
	sr, ok := e.be.(backend.SpectrumReader)
	if !ok {
		return nil
	}
	u := e.snap.Load().unit(id)
	if u == nil {
		return nil
	}
	h := u.monitorHandle()
	if h == nil {
		return nil
	}
	return sr.Spectrum(h)
}

// Snapshot returns the engine's current state.
func (e *Engine) Snapshot() Status {
	snap := e.snap.Load()
	return Status{
		Graph:   snap.graph.Clone(),
		Live:    snap.ids(),
		Running: e.sched.isRunning(),
		Tempo:   e.Tempo(),
		Ticks:   e.sched.ticks.Load(),
		Step:    e.sched.step(),
	}
}

// Close stops the transport and releases every backend unit. The engine
// may be reused with a new Reconcile.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sched.stop()
	err := e.rec.releaseAll()
	e.snap.Store(&snapshot{units: map[string]*liveUnit{}})
	if err != nil {
		return fmt.Errorf("engine: close: %w", err)
	}
	return nil
}
