package audio

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-patch/backend"
)

var _ backend.Transport = (*Transport)(nil)

type repeatEvent struct {
	every int64
	fn    func(t float64)
}

// Transport is a sixteenth-note clock driven by the frames a Context
// renders. Ticks land on chunk boundaries, so the time handed to a repeat
// callback is the exact start of the chunk in which its notes sound.
type Transport struct {
	sampleRate float64
	now        func() int64

	// fireMu is held while callbacks run. Stop and Clear take it so no
	// callback outlives them. Callbacks must not call Stop or Clear.
	fireMu sync.Mutex

	mu       sync.Mutex
	bpm      float64
	running  bool
	tick     int64   // index of the next tick since Start
	nextTick float64 // frame position of the next tick
	nextID   backend.EventID
	events   map[backend.EventID]*repeatEvent
	order    []backend.EventID
}

func newTransport(sampleRate, bpm float64, now func() int64) *Transport {
	return &Transport{
		sampleRate: sampleRate,
		now:        now,
		bpm:        bpm,
		events:     make(map[backend.EventID]*repeatEvent),
	}
}

// Start starts the clock. The first tick falls on the next rendered frame.
// Starting a running transport is a no-op.
func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.tick = 0
	t.nextTick = float64(t.now())
}

// Stop halts the clock and waits for an in-flight callback to return.
func (t *Transport) Stop() {
	t.fireMu.Lock()
	defer t.fireMu.Unlock()

	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// Running reports whether the clock is started.
func (t *Transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// SetBPM changes the tempo. The tick already scheduled keeps its position;
// later ticks use the new spacing. Non-positive or non-finite values are
// ignored.
func (t *Transport) SetBPM(bpm float64) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return
	}
	t.mu.Lock()
	t.bpm = bpm
	t.mu.Unlock()
}

// BPM returns the current tempo.
func (t *Transport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// Repeat registers fn to run on every tick whose index since Start is a
// multiple of every.
func (t *Transport) Repeat(every backend.Subdivision, fn func(t float64)) backend.EventID {
	if every < 1 {
		every = backend.Sixteenth
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	t.events[id] = &repeatEvent{every: int64(every), fn: fn}
	t.order = append(t.order, id)
	return id
}

// Clear removes a repeat. Unknown ids are ignored.
func (t *Transport) Clear(id backend.EventID) {
	t.fireMu.Lock()
	defer t.fireMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.events[id]; !ok {
		return
	}
	delete(t.events, id)
	for i, x := range t.order {
		if x == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// fire runs the callbacks of every tick due at or before frame.
func (t *Transport) fire(frame int64) {
	t.fireMu.Lock()
	defer t.fireMu.Unlock()

	var due []func(float64)
	for {
		t.mu.Lock()
		if !t.running || tickFrame(t.nextTick) > frame {
			t.mu.Unlock()
			return
		}
		at := t.nextTick / t.sampleRate
		due = due[:0]
		for _, id := range t.order {
			ev := t.events[id]
			if t.tick%ev.every == 0 {
				due = append(due, ev.fn)
			}
		}
		t.tick++
		t.nextTick += backend.Sixteenth.Seconds(t.bpm) * t.sampleRate
		t.mu.Unlock()

		for _, fn := range due {
			fn(at)
		}
	}
}

// framesUntilTick returns the number of frames from frame to the next
// tick, or 0 when the transport is stopped or a tick is due now.
func (t *Transport) framesUntilTick(frame int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0
	}
	d := tickFrame(t.nextTick) - frame
	if d <= 0 || d > math.MaxInt32 {
		return 0
	}
	return int(d)
}

// Ticks returns the number of ticks fired since the last Start.
func (t *Transport) Ticks() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick
}

func tickFrame(pos float64) int64 {
	return int64(math.Ceil(pos))
}
