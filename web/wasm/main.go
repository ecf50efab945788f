//go:build js && wasm

// Command wasm exposes the patch engine to a browser editor. The page
// pulls audio with render from an AudioWorklet and drives the engine with
// the same JSON requests the WebSocket server accepts.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/cwbudde/algo-patch/audio"
	"github.com/cwbudde/algo-patch/engine"
	"github.com/cwbudde/algo-patch/internal/server"
)

var (
	actx  *audio.Context
	eng   *engine.Engine
	srv   *server.Server
	step  = -1
	funcs []js.Func

	left, right []float32
)

func main() {
	api := js.Global().Get("Object").New()
	api.Set("init", export(func(args []js.Value) any {
		sr := 48000.0
		if len(args) > 0 {
			sr = args[0].Float()
		}
		if eng != nil {
			_ = eng.Close()
		}
		log := slog.Default()
		actx = audio.New(audio.WithSampleRate(sr), audio.WithLogger(log))
		// The worklet calls render on the same goroutine as every other
		// export, so the step observer needs no locking.
		eng = engine.New(actx, engine.WithLogger(log), engine.WithOnStep(func(s int) { step = s }))
		srv = server.New(eng, server.WithLogger(log))
		return js.Null()
	}))

	// request takes a JSON request ({"op": "reconcile", "graph": {...}})
	// and returns the JSON response.
	api.Set("request", export(func(args []js.Value) any {
		if srv == nil || len(args) < 1 {
			return js.Null()
		}
		var req server.Request
		if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
			return marshal(server.Response{Op: "error", Error: err.Error()})
		}
		return marshal(srv.Do(context.Background(), req))
	}))

	// render returns n interleaved stereo frames.
	api.Set("render", export(func(args []js.Value) any {
		if actx == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		n := args[0].Int()
		if cap(left) < n {
			left = make([]float32, n)
			right = make([]float32, n)
		}
		actx.Render(left[:n], right[:n])
		arr := js.Global().Get("Float32Array").New(2 * n)
		for i := 0; i < n; i++ {
			arr.SetIndex(2*i, left[i])
			arr.SetIndex(2*i+1, right[i])
		}
		return arr
	}))

	api.Set("readWaveform", export(func(args []js.Value) any {
		if eng == nil || len(args) < 1 {
			return js.Null()
		}
		w := eng.ReadWaveform(args[0].String())
		if w == nil {
			return js.Null()
		}
		arr := js.Global().Get("Float32Array").New(len(w))
		for i := range w {
			arr.SetIndex(i, w[i])
		}
		return arr
	}))

	api.Set("stopCapture", export(func(args []js.Value) any {
		if eng == nil {
			return js.Null()
		}
		data, err := eng.StopCapture()
		if err != nil {
			return err.Error()
		}
		arr := js.Global().Get("Uint8Array").New(len(data))
		js.CopyBytesToJS(arr, data)
		return arr
	}))

	api.Set("currentStep", export(func(args []js.Value) any {
		if eng == nil || !eng.Running() {
			return -1
		}
		return step
	}))

	js.Global().Set("Patchbay", api)
	select {}
}

func marshal(resp server.Response) any {
	b, err := json.Marshal(resp)
	if err != nil {
		return `{"ok":false,"error":"encode response"}`
	}
	return string(b)
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
