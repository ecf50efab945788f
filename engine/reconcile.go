package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"

	"github.com/cwbudde/algo-patch/patch"
)

// Report summarises one reconciliation pass.
type Report struct {
	Created []string // nodes constructed this pass
	Removed []string // nodes released because they left the graph
	Rebuilt []string // nodes rebuilt because their kind changed

	// Failed holds nodes that could not be constructed. They are absent
	// from the live set and are retried on the next pass.
	Failed map[string]error

	// ParamErrors holds nodes whose parameters were partly rejected.
	ParamErrors map[string]error

	Edges      int     // audio edges wired
	EdgeErrors []error // connect or disconnect failures
}

// Err joins every failure in r, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, id := range sortedKeys(r.Failed) {
		errs = append(errs, r.Failed[id])
	}
	for _, id := range sortedKeys(r.ParamErrors) {
		errs = append(errs, r.ParamErrors[id])
	}
	errs = append(errs, r.EdgeErrors...)
	return errors.Join(errs...)
}

func (r *Report) fail(id string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]error)
	}
	r.Failed[id] = err
}

func (r *Report) paramFail(id string, err error) {
	if r.ParamErrors == nil {
		r.ParamErrors = make(map[string]error)
	}
	r.ParamErrors[id] = err
}

// reconciler owns the live unit table. It is used by one goroutine at a time.
type reconciler struct {
	ad    *adapter
	log   *slog.Logger
	units map[string]*liveUnit
}

func newReconciler(ad *adapter, log *slog.Logger) *reconciler {
	return &reconciler{ad: ad, log: log, units: make(map[string]*liveUnit)}
}

// reconcile brings the live units in line with g and returns the snapshot
// to publish. Passes run in order: create, params, prune, disconnect,
// reconnect.
func (r *reconciler) reconcile(g patch.Graph) (*snapshot, Report) {
	var rep Report
	g = g.Clone()
	index := g.Index()

	r.ad.batch(func() {
		nodes := r.createPass(g, &rep)
		r.paramsPass(nodes, &rep)
		r.prunePass(index, &rep)
		r.disconnectPass(&rep)
		r.reconnectPass(g, &rep)
	})

	units := maps.Clone(r.units)
	snap := &snapshot{graph: g, units: units, routes: buildRoutes(g, units)}

	r.log.Debug("reconciled",
		"nodes", len(index),
		"live", len(units),
		"created", len(rep.Created),
		"removed", len(rep.Removed),
		"edges", rep.Edges)

	return snap, rep
}

// createPass builds units for new nodes and rebuilds nodes whose kind
// changed. Later nodes repeating an id are ignored. It returns the first
// occurrence of every node in graph order.
func (r *reconciler) createPass(g patch.Graph, rep *Report) []patch.Node {
	nodes := make([]patch.Node, 0, len(g.Nodes))
	seen := make(map[string]bool, len(g.Nodes))

	for _, n := range g.Nodes {
		if seen[n.ID] {
			r.log.Debug("duplicate node id ignored", "node", n.ID)
			continue
		}
		seen[n.ID] = true
		nodes = append(nodes, n)

		rebuilt := false
		if u := r.units[n.ID]; u != nil {
			if u.kind == n.Kind {
				continue
			}
			r.log.Warn("node changed kind, rebuilding", "node", n.ID, "from", u.kind, "to", n.Kind)
			if err := r.ad.release(u); err != nil {
				r.log.Warn("release failed", "node", n.ID, "error", err)
			}
			delete(r.units, n.ID)
			rebuilt = true
		}

		u, err := r.ad.build(n)
		if err != nil {
			r.log.Warn("node construction failed", "node", n.ID, "kind", n.Kind, "error", err)
			rep.fail(n.ID, err)
			continue
		}
		r.units[n.ID] = u
		if rebuilt {
			rep.Rebuilt = append(rep.Rebuilt, n.ID)
		} else {
			rep.Created = append(rep.Created, n.ID)
		}
	}

	return nodes
}

func (r *reconciler) paramsPass(nodes []patch.Node, rep *Report) {
	for _, n := range nodes {
		u := r.units[n.ID]
		if u == nil {
			continue
		}
		if err := r.ad.apply(u, n.Params); err != nil {
			r.log.Warn("parameter update failed", "node", n.ID, "kind", n.Kind, "error", err)
			rep.paramFail(n.ID, err)
		}
	}
}

func (r *reconciler) prunePass(index map[string]patch.Node, rep *Report) {
	for _, id := range sortedKeys(r.units) {
		if _, ok := index[id]; ok {
			continue
		}
		u := r.units[id]
		if err := r.ad.release(u); err != nil {
			r.log.Warn("release failed", "node", id, "error", err)
		}
		delete(r.units, id)
		rep.Removed = append(rep.Removed, id)
	}
}

func (r *reconciler) disconnectPass(rep *Report) {
	for _, id := range sortedKeys(r.units) {
		if err := r.ad.disconnectAll(r.units[id]); err != nil {
			r.log.Warn("disconnect failed", "node", id, "error", err)
			rep.EdgeErrors = append(rep.EdgeErrors, err)
		}
	}
}

// reconnectPass wires one backend edge per distinct audio connection.
// Sequencer connections and connections to or from nodes without a live
// unit are skipped.
func (r *reconciler) reconnectPass(g patch.Graph, rep *Report) {
	seen := make(map[[2]string]bool)

	for _, c := range g.Resolved() {
		src, dst := r.units[c.Source], r.units[c.Target]
		if src == nil || dst == nil {
			continue
		}
		if src.spec.triggerSource {
			continue
		}
		if !src.spec.output || !dst.spec.input {
			r.log.Debug("connection skipped", "connection", c.ID,
				"source", c.Source, "target", c.Target)
			continue
		}
		key := [2]string{c.Source, c.Target}
		if seen[key] {
			continue
		}
		seen[key] = true

		if err := r.ad.connect(src, dst); err != nil {
			r.log.Warn("connect failed", "connection", c.ID, "error", err)
			rep.EdgeErrors = append(rep.EdgeErrors, fmt.Errorf("connection %q: %w", c.ID, err))
			continue
		}
		rep.Edges++
	}
}

// releaseAll disposes every live unit.
func (r *reconciler) releaseAll() error {
	var errs []error
	r.ad.batch(func() {
		for _, id := range sortedKeys(r.units) {
			if err := r.ad.release(r.units[id]); err != nil {
				errs = append(errs, err)
			}
			delete(r.units, id)
		}
	})
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
