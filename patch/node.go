package patch

import (
	"strings"

	"github.com/google/uuid"
)

// NewNode returns a node of kind k at pos with the defaults the editor
// assigns to a freshly dropped node. The ID is unique per call.
func NewNode(k Kind, pos Position) Node {
	return Node{
		ID:       NewID(strings.ToLower(string(k))),
		Kind:     k,
		Position: pos,
		Params: Params{
			"label":    k.DisplayName(),
			"waveType": "sine",
			"gain":     0.5,
			"wet":      0.5,
			"decay":    1.5,
			"steps":    make([]bool, StepCount),
		},
	}
}

// NewID returns a fresh identifier with the given prefix.
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
