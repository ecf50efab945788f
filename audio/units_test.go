package audio

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/internal/testutil"
)

func TestParamRamp(t *testing.T) {
	t.Parallel()

	p := newParam(0, 0, 10)
	p.set(10, 10)
	for range 5 {
		p.next()
	}
	testutil.RequireNear(t, "midway", p.value, 5, 1e-12)
	for range 5 {
		p.next()
	}
	if p.value != 10 || p.ramping() {
		t.Fatalf("value = %v, ramping = %v; want 10, false", p.value, p.ramping())
	}

	p.set(math.NaN(), 0)
	p.set(99, 0)
	if p.value != 10 {
		t.Fatalf("value = %v, want clamp to 10", p.value)
	}
}

func TestVolumeSilenceIsImmediate(t *testing.T) {
	t.Parallel()

	v := newVolume(0)
	v.setDB(math.Inf(-1), 1000)
	if v.gain.value != 0 || v.gain.ramping() {
		t.Fatalf("gain = %v, ramping = %v", v.gain.value, v.gain.ramping())
	}
	if !math.IsInf(v.db(), -1) {
		t.Fatalf("db = %v, want -Inf", v.db())
	}
	v.setDB(-6, 0)
	testutil.RequireNear(t, "db", v.db(), -6, 1e-9)
}

func TestWaveShapes(t *testing.T) {
	t.Parallel()

	for name, shape := range waveShapes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var sum float64
			const n = 4800
			for i := range n {
				v := shape.sample(float64(i)/n, 1.0/n)
				if math.Abs(v) > 1.1 {
					t.Fatalf("sample %d = %v out of range", i, v)
				}
				sum += v
			}
			if math.Abs(sum/n) > 0.01 {
				t.Fatalf("dc offset %v", sum/n)
			}
		})
	}
}

func TestSynthNoteTiming(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	synth := mustCreate(t, c, backend.PrimitivePolySynth)
	out := mustCreate(t, c, backend.PrimitiveSink)
	mustConnect(t, c, synth, out)

	note := backend.Note{Pitch: backend.NoteC4, Velocity: 1, Duration: 0.1}
	if err := c.Trigger(synth, note, 0.01); err != nil {
		t.Fatal(err)
	}

	left, _ := render(c, testRate/2)
	if got := testutil.FirstAbove(left, 0); got != 480 {
		t.Fatalf("note starts at frame %d, want 480", got)
	}
	testutil.RequireNear(t, "pitch", testutil.ZeroCrossingHz(left[480:480+4800], testRate), midiToHz(60), 3)

	// Released after 0.1 s with a 1 s release from sustain: silent well
	// before the end of the next half second.
	left, _ = render(c, testRate/2)
	testutil.RequireSilent(t, left[len(left)-100:], 0)
}

func TestSynthVoiceStealing(t *testing.T) {
	t.Parallel()

	s := newPolySynth(128)
	for i := range maxVoices + 4 {
		s.trigger(backend.Note{Pitch: 40 + i, Velocity: 1, Duration: 1}, int64(i), testRate)
	}
	if got := s.activeVoices(); got != maxVoices {
		t.Fatalf("active voices = %d, want %d", got, maxVoices)
	}
	for i := range s.voices {
		if s.voices[i].pitch < 44 {
			t.Fatalf("voice %d still holds stolen pitch %d", i, s.voices[i].pitch)
		}
	}
}

func TestFilterResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		typ    string
		cutoff float64
		toneHz float64
		maxRMS float64
		minRMS float64
	}{
		{"lowpass blocks highs", "lowpass", 200, 5000, 0.01, 0},
		{"lowpass passes lows", "lowpass", 5000, 100, 1, 0.65},
		{"highpass blocks lows", "highpass", 5000, 100, 0.01, 0},
		{"bandpass passes center", "bandpass", 1000, 1000, 1, 0.65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestContext(t)
			osc := mustCreate(t, c, backend.PrimitiveOscillator)
			f := mustCreate(t, c, backend.PrimitiveFilter)
			out := mustCreate(t, c, backend.PrimitiveSink)
			mustConnect(t, c, osc, f)
			mustConnect(t, c, f, out)
			mustSet(t, c, osc, "frequency", tt.toneHz)
			mustSet(t, c, f, "frequency", tt.cutoff)
			if err := c.SetOption(f, "type", tt.typ); err != nil {
				t.Fatal(err)
			}
			if err := c.Start(osc); err != nil {
				t.Fatal(err)
			}

			c.RenderFrames(testRate / 10)
			left, _ := render(c, testRate/10)
			rms := testutil.RMS(left)
			if rms > tt.maxRMS || rms < tt.minRMS {
				t.Fatalf("rms = %v, want in [%v, %v]", rms, tt.minRMS, tt.maxRMS)
			}
		})
	}
}

func TestFeedbackDelayEcho(t *testing.T) {
	t.Parallel()

	d := newFeedbackDelay(testRate)
	d.setParam("delayTime", 0.01, 0)
	d.setParam("feedback", 0.5, 0)
	d.setParam("wet", 1, 0)

	out := processMono(d, impulse(1200))
	if out[0] != 0 {
		t.Fatalf("out[0] = %v, want fully wet", out[0])
	}
	testutil.RequireNear(t, "first echo", out[480], 1, 1e-12)
	testutil.RequireNear(t, "second echo", out[960], 0.5, 1e-12)
	testutil.RequireNear(t, "between", out[700], 0, 1e-12)
}

func TestReverbDecayLengthensTail(t *testing.T) {
	t.Parallel()

	tail := func(decay float64) float64 {
		rv := newReverb(testRate)
		rv.setParam("decay", decay, 0)
		rv.setParam("wet", 1, 0)
		out := processMono(rv, impulse(testRate))
		var e float64
		for _, v := range out[testRate/2:] {
			e += v * v
		}
		return e
	}

	short, long := tail(0.2), tail(4)
	if !(long > short*10) {
		t.Fatalf("tail energy short=%v long=%v", short, long)
	}
}

func TestDistortionCurve(t *testing.T) {
	t.Parallel()

	d := newDistortion()
	want := 43 * 0.5 * 20 * (math.Pi / 180) / (math.Pi + 20)
	testutil.RequireNear(t, "shape(0.5)", d.shape(0.5), want, 1e-12)
	testutil.RequireNear(t, "odd symmetry", d.shape(-0.5), -want, 1e-12)
	if d.shape(0.0005) != 0 {
		t.Fatal("tiny input should map to zero")
	}

	d.setParam("distortion", 0, 0)
	testutil.RequireNear(t, "amount 0", d.shape(0.6), 0.2, 1e-12)
	testutil.RequireNear(t, "clipped input", d.shape(5), d.shape(1), 1e-12)
}

func TestPanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pan         float64
		left, right float64
	}{
		{-1, 1, 0},
		{0, 0.5, 0.5},
		{1, 0, 1},
		{-3, 1, 0},
	}
	for _, tt := range tests {
		p := newPanner()
		p.setParam("pan", tt.pan, 0)
		in := stereo{l: []float64{0.5}, r: []float64{0.5}}
		out := newStereo(1)
		p.process(&block{sampleRate: testRate, n: 1}, in, out)

		testutil.RequireNear(t, "left", out.l[0], tt.left, 1e-12)
		testutil.RequireNear(t, "right", out.r[0], tt.right, 1e-12)
	}
}

func TestCompressorSteadyState(t *testing.T) {
	t.Parallel()

	c := newCompressor(testRate)
	in := make([]float64, testRate)
	for i := range in {
		in[i] = 1
	}
	out := processMono(c, in)
	// 0 dBFS against -30 dB at 3:1 leaves -20 dB.
	testutil.RequireNear(t, "gain", out[len(out)-1], 0.1, 1e-3)

	quiet := newCompressor(testRate)
	for i := range in {
		in[i] = 0.01
	}
	out = processMono(quiet, in)
	testutil.RequireNear(t, "below threshold", out[len(out)-1], 0.01, 1e-9)
}

func TestNoise(t *testing.T) {
	t.Parallel()

	for color := range noiseColors {
		t.Run(color, func(t *testing.T) {
			t.Parallel()

			a, b := newNoise(256, 7), newNoise(256, 7)
			for _, n := range []*noise{a, b} {
				if err := n.setOption("type", color); err != nil {
					t.Fatal(err)
				}
				n.start()
			}
			x := processMono(a, make([]float64, 256))
			y := processMono(b, make([]float64, 256))
			var energy float64
			for i := range x {
				if x[i] != y[i] {
					t.Fatalf("sample %d differs for equal seeds", i)
				}
				if math.Abs(x[i]) > 2 {
					t.Fatalf("sample %d = %v out of range", i, x[i])
				}
				energy += x[i] * x[i]
			}
			if energy == 0 {
				t.Fatal("noise is silent")
			}
		})
	}
}

func TestChorusIsWetAndFinite(t *testing.T) {
	t.Parallel()

	ch := newChorus(testRate)
	ch.start()
	ch.setParam("wet", 1, 0)
	out := processMono(ch, impulse(4800))

	if out[0] != 0 {
		t.Fatalf("out[0] = %v, want delayed output only", out[0])
	}
	var peakAt int
	for i, v := range out {
		if math.IsNaN(v) {
			t.Fatalf("NaN at %d", i)
		}
		if math.Abs(v) > math.Abs(out[peakAt]) {
			peakAt = i
		}
	}
	// 2.5 ms ± 50% at 48 kHz.
	if peakAt < 60 || peakAt > 180 {
		t.Fatalf("echo at %d, want within the modulated delay range", peakAt)
	}
}

func TestChorusParamsRamp(t *testing.T) {
	t.Parallel()

	ch := newChorus(testRate)
	ch.start()
	for name, v := range map[string]float64{"delayTime": 20, "depth": 1, "frequency": 8} {
		if err := ch.setParam(name, v, 480); err != nil {
			t.Fatal(err)
		}
	}

	processMono(ch, make([]float64, 240))
	testutil.RequireNear(t, "delay midway", ch.delayMs.value, 11.25, 1e-9)
	testutil.RequireNear(t, "depth midway", ch.depth.value, 0.75, 1e-9)
	testutil.RequireNear(t, "rate midway", ch.freq.value, 6, 1e-9)

	processMono(ch, make([]float64, 240))
	if ch.delayMs.value != 20 || ch.depth.value != 1 || ch.freq.value != 8 {
		t.Fatalf("after ramp delay=%v depth=%v rate=%v", ch.delayMs.value, ch.depth.value, ch.freq.value)
	}

	ch.setParam("delayTime", 5, 0)
	if ch.delayMs.value != 5 || ch.delayMs.ramping() {
		t.Fatalf("instant delay = %v", ch.delayMs.value)
	}
	ch.setParam("delayTime", 500, 0)
	if ch.delayMs.value != maxChorusDelayMs {
		t.Fatalf("delay = %v, want clamp to %v", ch.delayMs.value, maxChorusDelayMs)
	}
}

func TestScopeWaveform(t *testing.T) {
	t.Parallel()

	s := newScope()
	in := make([]float64, 200)
	for i := range in {
		in[i] = float64(i)
	}
	passed := processMono(s, in)
	if passed[199] != 199 {
		t.Fatal("scope must pass its input through")
	}

	w := s.waveform()
	if len(w) != waveformSize {
		t.Fatalf("len = %d, want %d", len(w), waveformSize)
	}
	for i, v := range w {
		if want := float32(200 - waveformSize + i); v != want {
			t.Fatalf("w[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestScopeSpectrumPeak(t *testing.T) {
	t.Parallel()

	const bin = 64
	freq := float64(bin) * testRate / spectrumSize

	s := newScope()
	in := make([]float64, spectrumSize)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * freq * float64(i) / testRate)
	}
	processMono(s, in)

	spec := s.spectrum()
	if len(spec) != spectrumSize/2 {
		t.Fatalf("len = %d, want %d", len(spec), spectrumSize/2)
	}
	testutil.RequireNear(t, "peak dBFS", spec[bin], 0, 0.5)
	if spec[bin*4] > -60 {
		t.Fatalf("far bin = %v dBFS, want < -60", spec[bin*4])
	}
}

func TestContextSpectrumAndWaveform(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	osc, out := runningOscillator(t, c)
	scope := mustCreate(t, c, backend.PrimitiveScope)
	mustConnect(t, c, out, scope)
	c.RenderFrames(2048)

	if w := c.Waveform(scope); len(w) != waveformSize {
		t.Fatalf("waveform len = %d", len(w))
	}
	if c.Waveform(osc) != nil {
		t.Fatal("oscillator has no waveform")
	}
	if c.Spectrum(scope) == nil {
		t.Fatal("scope spectrum is nil")
	}
	if c.Spectrum(osc) != nil {
		t.Fatal("oscillator has no spectrum")
	}
}
