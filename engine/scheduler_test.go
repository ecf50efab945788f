package engine

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

func sequencedGraph(steps string) patch.Graph {
	return patch.Graph{
		Nodes: []patch.Node{
			node("s", patch.KindSequencer, patch.Params{"steps": pattern(steps)}),
			node("i", patch.KindSynth, nil),
		},
		Connections: []patch.Connection{conn("c1", "s", "i")},
	}
}

func mustStart(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestEndToEndSixteenTicks(t *testing.T) {
	t.Parallel()

	const steps = "x..x..x.x..x.x.."
	e, be := newTestEngine(t)
	e.Reconcile(sequencedGraph(steps))
	mustStart(t, e)

	be.tr.ticks(16)

	want := 0
	for _, c := range steps {
		if c == 'x' {
			want++
		}
	}
	if got := len(liveHandle(t, e, "i").triggers); got != want {
		t.Fatalf("triggers = %d, want %d", got, want)
	}
}

func TestTriggerFanOut(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	e.Reconcile(patch.Graph{
		Nodes: []patch.Node{
			node("s", patch.KindSequencer, patch.Params{"steps": pattern("x...............")}),
			node("a", patch.KindSynth, nil),
			node("b", patch.KindSynth, nil),
			node("f", patch.KindFilter, nil),
		},
		Connections: []patch.Connection{
			conn("c1", "s", "a"),
			conn("c2", "s", "b"),
			conn("c3", "s", "f"),
		},
	})
	mustStart(t, e)
	a, b := liveHandle(t, e, "a"), liveHandle(t, e, "b")

	be.tr.tick()
	if len(a.triggers) != 1 || len(b.triggers) != 1 {
		t.Fatalf("step 0 triggers a=%d b=%d, want 1 each", len(a.triggers), len(b.triggers))
	}
	be.tr.ticks(15)
	if len(a.triggers) != 1 || len(b.triggers) != 1 {
		t.Fatalf("inactive steps triggered a=%d b=%d", len(a.triggers), len(b.triggers))
	}
	be.tr.tick()
	if len(a.triggers) != 2 || len(b.triggers) != 2 {
		t.Fatalf("second bar triggers a=%d b=%d, want 2 each", len(a.triggers), len(b.triggers))
	}
}

func TestTriggerNote(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	e.Reconcile(sequencedGraph("x"))
	if err := e.SetTempo(150); err != nil {
		t.Fatal(err)
	}
	mustStart(t, e)
	be.tr.ticks(17)

	trig := liveHandle(t, e, "i").triggers
	if len(trig) != 2 {
		t.Fatalf("triggers = %d, want 2", len(trig))
	}
	want := backend.Note{Pitch: backend.NoteC4, Velocity: 1, Duration: backend.Sixteenth.Seconds(150)}
	if trig[0].note != want {
		t.Fatalf("note = %+v, want %+v", trig[0].note, want)
	}
	if trig[0].at != 0 || math.Abs(trig[1].at-16*want.Duration) > 1e-9 {
		t.Fatalf("trigger times %v, %v", trig[0].at, trig[1].at)
	}
}

func TestWithNote(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t, WithNote(48, 2))
	e.Reconcile(sequencedGraph("x"))
	mustStart(t, e)
	be.tr.tick()

	n := liveHandle(t, e, "i").triggers[0].note
	if n.Pitch != 48 || n.Velocity != 1 {
		t.Fatalf("note = %+v", n)
	}
}

func TestPhasePreservedAcrossReconcile(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	g := sequencedGraph("x..x..x.x..x.x..")
	e.Reconcile(g)
	mustStart(t, e)
	be.tr.ticks(5)

	g.Nodes = append(g.Nodes, node("extra", patch.KindGain, nil))
	e.Reconcile(g)

	if st := e.Snapshot(); st.Ticks != 5 || st.Step != 4 {
		t.Fatalf("after reconcile ticks=%d step=%d, want 5 and 4", st.Ticks, st.Step)
	}
	be.tr.tick()
	if st := e.Snapshot(); st.Step != 5 {
		t.Fatalf("step = %d, want 5", st.Step)
	}
	if be.tr.armed() != 1 {
		t.Fatalf("armed repeats = %d, want 1", be.tr.armed())
	}
}

func TestEditedPatternTakesEffectNextTick(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	g := sequencedGraph("................")
	e.Reconcile(g)
	mustStart(t, e)
	be.tr.ticks(3)

	g.Nodes[0].Params["steps"] = pattern("...x............")
	e.Reconcile(g)
	be.tr.tick()

	if got := len(liveHandle(t, e, "i").triggers); got != 1 {
		t.Fatalf("triggers = %d, want 1", got)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	e.Reconcile(sequencedGraph("x"))
	mustStart(t, e)
	be.tr.ticks(3)
	mustStart(t, e)

	if be.tr.armed() != 1 {
		t.Fatalf("armed repeats = %d, want 1", be.tr.armed())
	}
	if st := e.Snapshot(); st.Ticks != 3 {
		t.Fatalf("ticks = %d, want 3 (no reset while running)", st.Ticks)
	}
}

func TestStopHaltsDispatchAndRestartResets(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	e.Reconcile(sequencedGraph("xxxxxxxxxxxxxxxx"))
	mustStart(t, e)
	be.tr.ticks(4)
	e.Stop()
	e.Stop()

	if e.Running() || be.tr.Running() {
		t.Fatal("still running after Stop")
	}
	if be.tr.armed() != 0 {
		t.Fatalf("armed repeats = %d, want 0", be.tr.armed())
	}
	be.tr.ticks(4)
	syn := liveHandle(t, e, "i")
	if len(syn.triggers) != 4 {
		t.Fatalf("triggers = %d, want 4", len(syn.triggers))
	}

	mustStart(t, e)
	if st := e.Snapshot(); st.Ticks != 0 || st.Step != -1 {
		t.Fatalf("after restart ticks=%d step=%d", st.Ticks, st.Step)
	}
}

func TestTriggerToRemovedInstrumentIsDropped(t *testing.T) {
	t.Parallel()

	e, be := newTestEngine(t)
	e.Reconcile(sequencedGraph("xxxxxxxxxxxxxxxx"))
	mustStart(t, e)

	// A tick racing with a reconcile may still hold the old snapshot.
	old := e.snap.Load()
	e.Reconcile(patch.Graph{Nodes: []patch.Node{node("s", patch.KindSequencer, nil)}})
	e.snap.Store(old)
	be.tr.tick()

	if n := len(old.units["i"].handle.(*fakeHandle).triggers); n != 0 {
		t.Fatalf("disposed instrument received %d triggers", n)
	}
}

func TestOnStepObserver(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []int
	e, be := newTestEngine(t, WithOnStep(func(step int) {
		mu.Lock()
		seen = append(seen, step)
		mu.Unlock()
	}))
	mustStart(t, e)
	be.tr.ticks(18)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 18 || seen[0] != 0 || seen[15] != 15 || seen[16] != 0 || seen[17] != 1 {
		t.Fatalf("steps = %v", seen)
	}
}
