// Package backend defines the primitive vocabulary an audio backend offers
// to the engine: construct a unit by primitive, wire units together, set
// parameters with or without smoothing, schedule note triggers and drive a
// tempo-aware transport.
//
// The package holds interfaces only. The audio package provides the
// in-process implementation.
package backend

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned when a backend cannot build a primitive.
	ErrUnsupported = errors.New("backend: unsupported primitive")
	// ErrDisposed is returned for operations on a released handle.
	ErrDisposed = errors.New("backend: unit disposed")
	// ErrNotTriggerable is returned when triggering a unit that plays no notes.
	ErrNotTriggerable = errors.New("backend: unit is not triggerable")
	// ErrUnknownParam is returned for a parameter or option the unit does not have.
	ErrUnknownParam = errors.New("backend: unknown parameter")
	// ErrForeignHandle is returned when a handle belongs to another backend.
	ErrForeignHandle = errors.New("backend: foreign handle")
)

// Primitive names one constructible unit type.
type Primitive int

const (
	PrimitiveSink Primitive = iota
	PrimitiveOscillator
	PrimitivePolySynth
	PrimitiveFilter
	PrimitiveFeedbackDelay
	PrimitiveReverb
	PrimitiveDistortion
	PrimitiveChorus
	PrimitiveGain
	PrimitiveNoise
	PrimitiveCompressor
	PrimitivePanner
	PrimitiveScope
)

var primitiveNames = [...]string{
	PrimitiveSink:          "sink",
	PrimitiveOscillator:    "oscillator",
	PrimitivePolySynth:     "polysynth",
	PrimitiveFilter:        "filter",
	PrimitiveFeedbackDelay: "feedback-delay",
	PrimitiveReverb:        "reverb",
	PrimitiveDistortion:    "distortion",
	PrimitiveChorus:        "chorus",
	PrimitiveGain:          "gain",
	PrimitiveNoise:         "noise",
	PrimitiveCompressor:    "compressor",
	PrimitivePanner:        "panner",
	PrimitiveScope:         "scope",
}

func (p Primitive) String() string {
	if p < 0 || int(p) >= len(primitiveNames) {
		return "unknown"
	}
	return primitiveNames[p]
}

// Handle is an opaque reference to a live backend unit.
type Handle interface {
	Primitive() Primitive
}

// Note is one note event for a triggerable unit.
type Note struct {
	Pitch    int     // MIDI note number
	Velocity float64 // 0..1
	Duration float64 // seconds between attack and release
}

// NoteC4 is middle C.
const NoteC4 = 60

// Subdivision is a musical note value expressed in sixteenth notes.
type Subdivision int

const (
	Sixteenth Subdivision = 1
	Eighth    Subdivision = 2
	Quarter   Subdivision = 4
	Bar       Subdivision = 16
)

// Seconds returns the duration of s at the given tempo.
func (s Subdivision) Seconds(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return 60.0 / bpm / 4.0 * float64(s)
}

// EventID identifies a scheduled transport event.
type EventID int

// Transport is the backend's shared clock.
type Transport interface {
	Start()
	// Stop halts the clock. No repeat callback runs after Stop returns.
	Stop()
	Running() bool
	SetBPM(bpm float64)
	BPM() float64
	// Repeat calls fn on every multiple of every while the transport runs.
	// t is the scheduled time on the backend clock in seconds.
	Repeat(every Subdivision, fn func(t float64)) EventID
	Clear(id EventID)
}

// Backend is the primitive surface the engine drives.
type Backend interface {
	Create(p Primitive) (Handle, error)
	Dispose(h Handle) error
	// Start begins a free-running source (oscillator, noise, LFO).
	Start(h Handle) error
	// Connect adds an edge from src's output to dst's input. Repeated calls
	// for the same pair are no-ops.
	Connect(src, dst Handle) error
	// Disconnect severs every outgoing edge of src. It is a no-op for a
	// unit without edges.
	Disconnect(src Handle) error
	// SetParam moves a continuous parameter to value over ramp. A zero
	// ramp or an infinite value applies immediately.
	SetParam(h Handle, name string, value float64, ramp time.Duration) error
	// SetOption sets a categorical parameter immediately.
	SetOption(h Handle, name, value string) error
	// Trigger schedules a note on h at backend time at (seconds).
	Trigger(h Handle, n Note, at float64) error
	// Waveform returns the most recent samples seen by a monitoring unit,
	// or nil for any other unit.
	Waveform(h Handle) []float32
	// Activate performs the one-time device activation. It is safe to call
	// repeatedly and honors ctx cancellation.
	Activate(ctx context.Context) error
	Transport() Transport
	StartCapture() error
	// StopCapture ends a capture and returns the finished recording.
	StopCapture() ([]byte, error)
}

// Batcher is implemented by backends that can stage topology edits and
// publish them to the render thread in one step.
type Batcher interface {
	BeginUpdate()
	CommitUpdate()
}

// SpectrumReader is implemented by backends whose monitoring units can
// report a magnitude spectrum in dBFS.
type SpectrumReader interface {
	Spectrum(h Handle) []float64
}

// EdgeLister is implemented by backends that can report the current
// outgoing edges of a unit.
type EdgeLister interface {
	Edges(src Handle) []Handle
}
