// Package engine keeps a live audio backend in step with a declarative
// patch graph and drives sequencers from the backend's transport.
//
// Reconcile diffs a patch.Graph against the units it built last time:
// new nodes are constructed, vanished nodes are released, every node's
// parameters are re-applied and all audio edges are rebuilt. Sequencer
// nodes have no backend unit; on each sixteenth-note tick the scheduler
// reads the latest published routing and triggers the instruments they are
// wired to. The step counter survives reconciliation, so editing the patch
// while it plays does not disturb the pattern's phase.
//
// Reconcile, Load, Start, Stop and SetTempo are expected to come from one
// control goroutine at a time; the Engine serialises them. The tick
// callback runs on the backend's clock goroutine and reads only the
// atomically published snapshot.
package engine
