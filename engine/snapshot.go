package engine

import (
	"sort"

	"github.com/cwbudde/algo-patch/patch"
)

// route is one sequencer's pattern and the instruments it plays.
type route struct {
	nodeID  string
	steps   [patch.StepCount]bool
	targets []*liveUnit
}

// snapshot is the immutable result of one reconciliation. The tick
// callback only ever reads the latest published snapshot.
type snapshot struct {
	graph  patch.Graph
	units  map[string]*liveUnit
	routes []route
}

func (s *snapshot) unit(id string) *liveUnit {
	if s == nil {
		return nil
	}
	return s.units[id]
}

func (s *snapshot) ids() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.units))
	for id := range s.units {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildRoutes resolves every sequencer's direct connections to
// triggerable units. Connections to anything else are ignored.
func buildRoutes(g patch.Graph, units map[string]*liveUnit) []route {
	var routes []route
	byID := make(map[string]int)

	for _, n := range g.Nodes {
		u := units[n.ID]
		if u == nil || !u.spec.triggerSource {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = len(routes)
		routes = append(routes, route{nodeID: n.ID, steps: n.Params.Steps("steps")})
	}

	seen := make(map[[2]string]bool)
	for _, c := range g.Resolved() {
		i, ok := byID[c.Source]
		if !ok {
			continue
		}
		dst := units[c.Target]
		if dst == nil || !dst.spec.triggerable || seen[[2]string{c.Source, c.Target}] {
			continue
		}
		seen[[2]string{c.Source, c.Target}] = true
		routes[i].targets = append(routes[i].targets, dst)
	}

	return routes
}
