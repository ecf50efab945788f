package audio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/internal/testutil"
)

func TestCreateEveryPrimitive(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	for p := backend.PrimitiveSink; p <= backend.PrimitiveScope; p++ {
		h := mustCreate(t, c, p)
		if h.Primitive() != p {
			t.Fatalf("Primitive() = %s, want %s", h.Primitive(), p)
		}
	}
	if got, want := c.Units(), int(backend.PrimitiveScope)+1; got != want {
		t.Fatalf("Units() = %d, want %d", got, want)
	}
}

func TestCreateUnsupported(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	if _, err := c.Create(backend.Primitive(99)); !errors.Is(err, backend.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestOscillatorReachesOutput(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, _ := runningOscillator(t, c)
	mustSet(t, c, osc, "frequency", 440)

	left, right := render(c, testRate)
	testutil.RequireFinite(t, left)
	testutil.RequireNear(t, "frequency", testutil.ZeroCrossingHz(left, testRate), 440, 4.4)
	testutil.RequireNear(t, "rms", testutil.RMS(right), 1/math.Sqrt2, 0.01)
}

func TestOscillatorSilentUntilStarted(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc := mustCreate(t, c, backend.PrimitiveOscillator)
	out := mustCreate(t, c, backend.PrimitiveSink)
	mustConnect(t, c, osc, out)

	left, _ := render(c, 512)
	testutil.RequireSilent(t, left, 0)
}

func TestDetuneShiftsPitch(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, _ := runningOscillator(t, c)
	mustSet(t, c, osc, "detune", 1200)

	left, _ := render(c, testRate)
	testutil.RequireNear(t, "frequency", testutil.ZeroCrossingHz(left, testRate), 880, 8.8)
}

func TestUnconnectedUnitIsNotHeard(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc := mustCreate(t, c, backend.PrimitiveOscillator)
	mustCreate(t, c, backend.PrimitiveSink)
	if err := c.Start(osc); err != nil {
		t.Fatal(err)
	}

	left, _ := render(c, 512)
	testutil.RequireSilent(t, left, 0)
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, out := runningOscillator(t, c)

	// The sink has no outgoing edges; its output route survives.
	if err := c.Disconnect(out); err != nil {
		t.Fatal(err)
	}
	left, _ := render(c, 512)
	testutil.RequireAudible(t, left, 0.1)

	if err := c.Disconnect(osc); err != nil {
		t.Fatal(err)
	}
	if err := c.Disconnect(osc); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if edges := c.Edges(osc); len(edges) != 0 {
		t.Fatalf("Edges = %d, want 0", len(edges))
	}
	left, _ = render(c, 512)
	testutil.RequireSilent(t, left, 0)
}

func TestConnectIsIdempotent(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, out := runningOscillator(t, c)
	mustConnect(t, c, osc, out)

	if edges := c.Edges(osc); len(edges) != 1 || edges[0] != out {
		t.Fatalf("Edges = %v, want [sink]", edges)
	}
	left, _ := render(c, testRate/10)
	testutil.RequireNear(t, "peak", testutil.Peak(left), 1, 0.01)
}

func TestBatchedUpdatesPublishOnCommit(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc := mustCreate(t, c, backend.PrimitiveOscillator)
	out := mustCreate(t, c, backend.PrimitiveSink)
	if err := c.Start(osc); err != nil {
		t.Fatal(err)
	}

	c.BeginUpdate()
	mustConnect(t, c, osc, out)
	left, _ := render(c, 256)
	testutil.RequireSilent(t, left, 0)

	c.CommitUpdate()
	left, _ = render(c, 256)
	testutil.RequireAudible(t, left, 0.1)
}

func TestDisposedHandle(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, out := runningOscillator(t, c)
	if err := c.Dispose(osc); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispose(osc); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}

	if err := c.SetParam(osc, "frequency", 220, 0); !errors.Is(err, backend.ErrDisposed) {
		t.Fatalf("SetParam err = %v, want ErrDisposed", err)
	}
	if err := c.Connect(osc, out); !errors.Is(err, backend.ErrDisposed) {
		t.Fatalf("Connect err = %v, want ErrDisposed", err)
	}
	if c.Units() != 1 {
		t.Fatalf("Units() = %d, want 1", c.Units())
	}
	left, _ := render(c, 256)
	testutil.RequireSilent(t, left, 0)
}

func TestForeignHandle(t *testing.T) {
	t.Parallel()

	a := newTestContext(t)
	b := newTestContext(t)
	h := mustCreate(t, a, backend.PrimitiveGain)

	if err := b.Dispose(h); !errors.Is(err, backend.ErrForeignHandle) {
		t.Fatalf("err = %v, want ErrForeignHandle", err)
	}
	if b.Waveform(h) != nil {
		t.Fatal("Waveform of foreign handle should be nil")
	}
}

func TestParamErrors(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc := mustCreate(t, c, backend.PrimitiveOscillator)
	scope := mustCreate(t, c, backend.PrimitiveScope)

	if err := c.SetParam(osc, "nope", 1, 0); !errors.Is(err, backend.ErrUnknownParam) {
		t.Fatalf("unknown param err = %v", err)
	}
	if err := c.SetParam(scope, "gain", 1, 0); !errors.Is(err, backend.ErrUnknownParam) {
		t.Fatalf("scope param err = %v", err)
	}
	if err := c.SetOption(osc, "type", "pulse"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("bad option err = %v", err)
	}
	if err := c.Trigger(osc, backend.Note{Pitch: 60}, 0); !errors.Is(err, backend.ErrNotTriggerable) {
		t.Fatalf("trigger err = %v", err)
	}
}

func TestFeedbackCycleRenders(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, out := runningOscillator(t, c)
	a := mustCreate(t, c, backend.PrimitiveGain)
	b := mustCreate(t, c, backend.PrimitiveGain)
	mustSet(t, c, a, "gain", 0.5)
	mustSet(t, c, b, "gain", 0.5)
	mustConnect(t, c, osc, a)
	mustConnect(t, c, a, b)
	mustConnect(t, c, b, a)
	mustConnect(t, c, b, out)

	left, _ := render(c, testRate/10)
	testutil.RequireFinite(t, left)
	testutil.RequireAudible(t, left, 0.01)
}

func TestMasterVolume(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	_, out := runningOscillator(t, c)

	mustSet(t, c, out, "volume", -6)
	left, _ := render(c, testRate/10)
	testutil.RequireNear(t, "peak", testutil.Peak(left), dbToGain(-6), 0.01)

	mustSet(t, c, out, "volume", math.Inf(-1))
	left, _ = render(c, 256)
	testutil.RequireSilent(t, left, 0)
}

func TestRampedVolumeIsGradual(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, _ := runningOscillator(t, c)
	mustSet(t, c, osc, "volume", math.Inf(-1))
	if err := c.SetParam(osc, "volume", 0, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	left, _ := render(c, testRate/10)
	early := testutil.Peak(left[:480])
	late := testutil.Peak(left[len(left)-480:])
	if early >= late || early > 0.2 {
		t.Fatalf("early peak %v, late peak %v: want a rising ramp", early, late)
	}
}

func TestActivateOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	fail := true
	c := newTestContext(t, WithActivator(func(ctx context.Context) error {
		calls++
		if fail {
			fail = false
			return errors.New("device busy")
		}
		return nil
	}))

	if err := c.Activate(context.Background()); err == nil {
		t.Fatal("first Activate should fail")
	}
	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("third: %v", err)
	}
	if calls != 2 {
		t.Fatalf("activator calls = %d, want 2", calls)
	}
}

func TestActivateCancelled(t *testing.T) {
	t.Parallel()

	c := newTestContext(t, WithActivator(func(context.Context) error {
		t.Fatal("activator must not run on a cancelled context")
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Activate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestOutputIsClamped(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	_, out := runningOscillator(t, c)
	mustSet(t, c, out, "volume", 12)

	left, _ := render(c, testRate/10)
	if p := testutil.Peak(left); p > 1 {
		t.Fatalf("peak = %v, want <= 1", p)
	}
}
