package patch

import "strings"

// Kind identifies the type of a node. The set of kinds is closed.
type Kind string

const (
	KindMaster     Kind = "MASTER"
	KindOscillator Kind = "OSCILLATOR"
	KindSynth      Kind = "SYNTH"
	KindSequencer  Kind = "SEQUENCER"
	KindFilter     Kind = "FILTER"
	KindDelay      Kind = "DELAY"
	KindReverb     Kind = "REVERB"
	KindDistortion Kind = "DISTORTION"
	KindChorus     Kind = "CHORUS"
	KindGain       Kind = "GAIN"
	KindNoise      Kind = "NOISE"
	KindCompressor Kind = "COMPRESSOR"
	KindPanner     Kind = "PANNER"
	KindAnalyzer   Kind = "ANALYZER"
)

var allKinds = []Kind{
	KindMaster,
	KindOscillator,
	KindSynth,
	KindSequencer,
	KindFilter,
	KindDelay,
	KindReverb,
	KindDistortion,
	KindChorus,
	KindGain,
	KindNoise,
	KindCompressor,
	KindPanner,
	KindAnalyzer,
}

// Kinds returns every known kind in catalog order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(name string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(name)))
	return k, k.Valid()
}

// DisplayName returns the default label the editor gives a new node of kind k.
func (k Kind) DisplayName() string {
	if k == KindMaster {
		return "Output"
	}
	s := string(k)
	if s == "" {
		return ""
	}
	return s[:1] + strings.ToLower(s[1:])
}
