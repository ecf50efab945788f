package patch

// DemoBPM is the tempo of the demo patch.
const DemoBPM = 128

// Demo returns the starter patch the editor opens with: a sequenced bass
// voice, a sequenced lead through delay and reverb, and a chorused drone.
func Demo() *Document {
	steps := func(s string) []bool {
		out := make([]bool, len(s))
		for i := range s {
			out[i] = s[i] == 'x'
		}
		return out
	}

	nodes := []Node{
		{ID: "master", Kind: KindMaster, Position: Position{1100, 300}, Params: Params{"label": "Master Out", "gain": 1.0}},
		{ID: "reverb-1", Kind: KindReverb, Position: Position{900, 300}, Params: Params{"label": "Big Hall", "decay": 3.5, "wet": 0.3}},
		{ID: "seq-bass", Kind: KindSequencer, Position: Position{50, 50}, Params: Params{"label": "Bass Seq", "steps": steps("x..x..x.x..x.x..")}},
		{ID: "synth-bass", Kind: KindSynth, Position: Position{300, 50}, Params: Params{"label": "Bass Synth", "waveType": "sawtooth", "gain": 0.5}},
		{ID: "filter-bass", Kind: KindFilter, Position: Position{500, 50}, Params: Params{"label": "Lowpass", "cutoff": 800.0}},
		{ID: "dist-bass", Kind: KindDistortion, Position: Position{700, 50}, Params: Params{"label": "Drive", "distortion": 0.4, "wet": 0.4}},
		{ID: "seq-lead", Kind: KindSequencer, Position: Position{50, 300}, Params: Params{"label": "Arp Seq", "steps": steps("xx.x.xx.x.xx.x.x")}},
		{ID: "synth-lead", Kind: KindSynth, Position: Position{300, 300}, Params: Params{"label": "Lead Synth", "waveType": "square", "gain": 0.3}},
		{ID: "delay-lead", Kind: KindDelay, Position: Position{500, 300}, Params: Params{"label": "Delay", "delayTime": 0.25, "wet": 0.4}},
		{ID: "osc-drone", Kind: KindOscillator, Position: Position{50, 550}, Params: Params{"label": "Drone Osc", "frequency": 65.0, "waveType": "sine", "gain": 0.3}},
		{ID: "chorus-drone", Kind: KindChorus, Position: Position{300, 550}, Params: Params{"label": "Widener", "chorusFrequency": 0.5, "chorusDepth": 0.8, "wet": 0.6}},
		{ID: "pan-drone", Kind: KindPanner, Position: Position{500, 550}, Params: Params{"label": "Panner", "pan": -0.2}},
	}

	conns := []Connection{
		{ID: "c-b1", Source: "seq-bass", Target: "synth-bass"},
		{ID: "c-b2", Source: "synth-bass", Target: "filter-bass"},
		{ID: "c-b3", Source: "filter-bass", Target: "dist-bass"},
		{ID: "c-b4", Source: "dist-bass", Target: "master"},
		{ID: "c-l1", Source: "seq-lead", Target: "synth-lead"},
		{ID: "c-l2", Source: "synth-lead", Target: "delay-lead"},
		{ID: "c-l3", Source: "delay-lead", Target: "reverb-1"},
		{ID: "c-d1", Source: "osc-drone", Target: "chorus-drone"},
		{ID: "c-d2", Source: "chorus-drone", Target: "pan-drone"},
		{ID: "c-d3", Source: "pan-drone", Target: "reverb-1"},
		{ID: "c-m1", Source: "reverb-1", Target: "master"},
	}

	return &Document{
		Version:     FormatVersion,
		BPM:         DemoBPM,
		Nodes:       nodes,
		Connections: conns,
	}
}
