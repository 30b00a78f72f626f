package graph

// Position is the canvas location of a node. It carries no semantics.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents a vertex in the workflow
// PRINCIPLES:
// - KISS: Simple node representation
// - SRP: Only responsible for node data
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Position Position `json:"position" yaml:"position"`
	Config   Config   `json:"config,omitempty" yaml:"config,omitempty"`
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Kind == "" {
		return ErrInvalidNodeKind
	}
	return nil
}

// DisplayName returns the label, falling back to the id.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
