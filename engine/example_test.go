package engine_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cwbudde/algo-patch/audio"
	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/patch"
)

func ExampleEngine_Reconcile() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(audio.New(audio.WithLogger(logger)), engine.WithLogger(logger))
	defer e.Close()

	rep := e.Reconcile(patch.Graph{
		Nodes: []patch.Node{
			{ID: "osc", Kind: patch.KindOscillator, Params: patch.Params{"frequency": 220}},
			{ID: "out", Kind: patch.KindMaster},
		},
		Connections: []patch.Connection{{ID: "e1", Source: "osc", Target: "out"}},
	})
	fmt.Println("created:", rep.Created, "err:", rep.Err())
	fmt.Println("live:", e.Snapshot().Live)
	// Output:
	// created: [osc out] err: <nil>
	// live: [osc out]
}

func ExampleEngine_Start() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	actx := audio.New(audio.WithSampleRate(48000), audio.WithLogger(logger))
	e := engine.New(actx, engine.WithLogger(logger))
	defer e.Close()

	if _, err := e.Load(patch.Demo()); err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := e.Start(context.Background()); err != nil {
		fmt.Println("error:", err)
		return
	}

	// One bar of sixteenths.
	actx.RenderFrames(16 * int(backend.Sixteenth.Seconds(patch.DemoBPM)*48000))

	st := e.Snapshot()
	fmt.Printf("bpm=%v ticks=%d step=%d\n", st.Tempo, st.Ticks, st.Step)
	// Output:
	// bpm=128 ticks=16 step=15
}
