// Package audio is an in-process audio backend: a pull-based block renderer
// with a fixed catalog of stateful units, ramped parameters, a tempo-aware
// transport that fires sample-accurate sixteenth-note callbacks, output
// capture and monitoring taps.
//
// A Context is driven by calling Render from a single audio goroutine,
// either a real-time device callback or an offline loop. Topology and
// parameter edits may arrive concurrently from a control goroutine; they
// are staged and become visible to the renderer on commit.
//
// Context implements backend.Backend, backend.Batcher,
// backend.SpectrumReader and backend.EdgeLister.
package audio
