package engine

import (
	"github.com/cwbudde/algo-patch/backend"
	"github.com/cwbudde/algo-patch/patch"
)

// kindSpec describes how one node kind maps onto the backend.
type kindSpec struct {
	primitive backend.Primitive
	hasUnit   bool // false for kinds that live only in the engine
	autostart bool // free-running source started at construction
	fixedSink bool // permanently routed to the output; never disconnected
	tap       bool // gets an auxiliary scope for waveform read-back
	monitor   bool // the unit itself can be read back
	output    bool // produces audio
	input     bool // accepts audio

	triggerable   bool // plays notes sent by a sequencer
	triggerSource bool // sends notes instead of audio

	apply func(w *paramWriter, p patch.Params)
}

// kindTable is the single place a node kind is described. Adding a kind
// adds a row.
var kindTable = map[patch.Kind]kindSpec{
	patch.KindMaster: {
		primitive: backend.PrimitiveSink, hasUnit: true,
		fixedSink: true, tap: true, input: true,
		apply: applyMaster,
	},
	patch.KindOscillator: {
		primitive: backend.PrimitiveOscillator, hasUnit: true,
		autostart: true, output: true,
		apply: applyOscillator,
	},
	patch.KindSynth: {
		primitive: backend.PrimitivePolySynth, hasUnit: true,
		output: true, triggerable: true,
		apply: applySynth,
	},
	patch.KindSequencer: {
		triggerSource: true,
	},
	patch.KindFilter: {
		primitive: backend.PrimitiveFilter, hasUnit: true,
		output: true, input: true,
		apply: applyFilter,
	},
	patch.KindDelay: {
		primitive: backend.PrimitiveFeedbackDelay, hasUnit: true,
		output: true, input: true,
		apply: applyDelay,
	},
	patch.KindReverb: {
		primitive: backend.PrimitiveReverb, hasUnit: true,
		output: true, input: true,
		apply: applyReverb,
	},
	patch.KindDistortion: {
		primitive: backend.PrimitiveDistortion, hasUnit: true,
		output: true, input: true,
		apply: applyDistortion,
	},
	patch.KindChorus: {
		primitive: backend.PrimitiveChorus, hasUnit: true,
		autostart: true, output: true, input: true,
		apply: applyChorus,
	},
	patch.KindGain: {
		primitive: backend.PrimitiveGain, hasUnit: true,
		output: true, input: true,
		apply: applyGain,
	},
	patch.KindNoise: {
		primitive: backend.PrimitiveNoise, hasUnit: true,
		autostart: true, output: true,
		apply: applyNoise,
	},
	patch.KindCompressor: {
		primitive: backend.PrimitiveCompressor, hasUnit: true,
		output: true, input: true,
		apply: applyCompressor,
	},
	patch.KindPanner: {
		primitive: backend.PrimitivePanner, hasUnit: true,
		output: true, input: true,
		apply: applyPanner,
	},
	patch.KindAnalyzer: {
		primitive: backend.PrimitiveScope, hasUnit: true,
		monitor: true, output: true, input: true,
	},
}

func lookupKind(k patch.Kind) (kindSpec, bool) {
	spec, ok := kindTable[k]
	return spec, ok
}
