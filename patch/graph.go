package patch

// Position is the canvas location of a node. It has no audio meaning.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one declarative element of the graph. Two nodes with the same ID
// in successive graphs refer to the same logical node; Kind must not change
// for a given ID.
type Node struct {
	ID       string   `json:"id"       yaml:"id"`
	Kind     Kind     `json:"type"     yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Params   Params   `json:"data"     yaml:"data"`
}

// Connection feeds the output of Source into the input of Target.
type Connection struct {
	ID           string `json:"id"                     yaml:"id"`
	Source       string `json:"source"                 yaml:"source"`
	Target       string `json:"target"                 yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"` //nolint:tagliatelle
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"` //nolint:tagliatelle
}

// Graph is the full declarative description handed to the engine.
type Graph struct {
	Nodes       []Node       `json:"nodes"       yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// Index returns the nodes keyed by ID. When IDs repeat, the first node wins.
func (g Graph) Index() map[string]Node {
	out := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := out[n.ID]; dup {
			continue
		}
		out[n.ID] = n
	}
	return out
}

// Node looks up a node by ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Resolved returns the connections whose endpoints both exist in g.
// Connections naming unknown nodes are dropped silently.
func (g Graph) Resolved() []Connection {
	idx := g.Index()
	out := make([]Connection, 0, len(g.Connections))
	for _, c := range g.Connections {
		if _, ok := idx[c.Source]; !ok {
			continue
		}
		if _, ok := idx[c.Target]; !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Clone returns a deep copy of g so callers can keep mutating their own copy.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
	}
	for i, n := range g.Nodes {
		n.Params = n.Params.Clone()
		out.Nodes[i] = n
	}
	copy(out.Connections, g.Connections)
	return out
}
