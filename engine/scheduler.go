package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// scheduler runs sequencers from a sixteenth-note transport repeat. The
// tick counter belongs to the scheduler alone: reconciliation never resets
// it, so a patch edited mid-pattern keeps its phase.
type scheduler struct {
	tr   backend.Transport
	ad   *adapter
	snap *atomic.Pointer[snapshot]
	log  *slog.Logger

	pitch    int
	velocity float64
	onStep   func(step int)

	ticks atomic.Int64

	mu      sync.Mutex
	running bool
	event   backend.EventID
}

// start resets the counter, arms the repeat and starts the transport. It
// is a no-op while running and reports whether it started anything.
func (s *scheduler) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.ticks.Store(0)
	s.event = s.tr.Repeat(backend.Sixteenth, s.tick)
	s.tr.Start()
	s.running = true
	return true
}

// stop clears the repeat and stops the transport. No tick is dispatched
// after stop returns.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.tr.Clear(s.event)
		s.running = false
	}
	s.tr.Stop()
}

func (s *scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// step returns the step played by the most recent tick, or -1 before the
// first tick.
func (s *scheduler) step() int {
	n := s.ticks.Load()
	if n == 0 {
		return -1
	}
	return int((n - 1) % patch.StepCount)
}

// tick runs on the transport's clock goroutine. t is the backend time the
// tick's notes should sound at.
func (s *scheduler) tick(t float64) {
	n := s.ticks.Add(1) - 1
	step := int(n % patch.StepCount)

	snap := s.snap.Load()
	if snap != nil {
		note := backend.Note{
			Pitch:    s.pitch,
			Velocity: s.velocity,
			Duration: backend.Sixteenth.Seconds(s.tr.BPM()),
		}
		for _, r := range snap.routes {
			if !r.steps[step] {
				continue
			}
			for _, u := range r.targets {
				if err := s.ad.trigger(u, note, t); err != nil {
					s.log.Debug("trigger dropped", "sequencer", r.nodeID, "node", u.nodeID, "error", err)
				}
			}
		}
	}

	if s.onStep != nil {
		s.onStep(step)
	}
}
