// Package patch holds the declarative description of a signal-processing
// graph: nodes with a kind, a canvas position and a parameter map, plus
// directed connections between them.
//
// The model has no behavior of its own. The engine package materializes a
// Graph into live backend units; this package only parses, validates and
// persists it.
//
// Persisted documents use the field names of the browser editor:
//
//	{
//	  "version": "1.0",
//	  "bpm": 128,
//	  "nodes": [{"id": "m", "type": "MASTER", "position": {"x": 0, "y": 0}, "data": {"gain": 1}}],
//	  "connections": [{"id": "c1", "source": "osc", "target": "m"}]
//	}
package patch
