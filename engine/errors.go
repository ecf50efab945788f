package engine

import "errors"

var (
	// ErrUnknownKind is recorded for a node whose kind has no entry in the
	// kind table.
	ErrUnknownKind = errors.New("engine: unknown node kind")
	// ErrInvalidTempo is returned by SetTempo for a tempo outside
	// [MinTempo, MaxTempo] or not finite.
	ErrInvalidTempo = errors.New("engine: invalid tempo")
)
