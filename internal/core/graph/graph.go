// Package graph provides the core workflow graph entities shared by the
// scheduler, the code emitters and the flow executor.
package graph

// Graph is a workflow as assembled on the canvas.
// PRINCIPLES:
// - KISS: ordered slices, node order is meaningful to callers
// - SRP: only responsible for graph structure, not execution
type Graph struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name,omitempty" yaml:"name,omitempty"`
	Chain Chain   `json:"chain" yaml:"chain"`
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Edges []*Edge `json:"edges" yaml:"edges"`
}

// Validate ensures graph integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: node and endpoint checks, cycles are left to the scheduler
func (g *Graph) Validate() error {
	if g.Chain != "" && !g.Chain.Valid() {
		return ErrUnknownChain
	}
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == nil {
			return ErrNilNode
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := seen[n.ID]; dup {
			return ErrDuplicateNode
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if e == nil {
			return ErrNilEdge
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := seen[e.Source]; !ok {
			return ErrSourceNodeNotFound
		}
		if _, ok := seen[e.Target]; !ok {
			return ErrTargetNodeNotFound
		}
	}
	return nil
}

// AddNode appends a node, keeping insertion order.
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	// Prevent duplicate node IDs
	if _, exists := g.NodeByID(node.ID); exists {
		return ErrDuplicateNode
	}
	g.Nodes = append(g.Nodes, node)
	return nil
}

// AddEdge adds an edge between two existing nodes
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, exists := g.NodeByID(edge.Source); !exists {
		return ErrSourceNodeNotFound
	}
	if _, exists := g.NodeByID(edge.Target); !exists {
		return ErrTargetNodeNotFound
	}
	for _, e := range g.Edges {
		if e.Source == edge.Source && e.Target == edge.Target {
			return ErrDuplicateEdge
		}
	}
	if edge.ID == "" {
		edge.ID = edge.Source + "->" + edge.Target
	}
	g.Edges = append(g.Edges, edge)
	return nil
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n != nil && n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Incoming returns the edges targeting id, in edge order.
func (g *Graph) Incoming(id string) []*Edge {
	var in []*Edge
	for _, e := range g.Edges {
		if e != nil && e.Target == id {
			in = append(in, e)
		}
	}
	return in
}

// Clone returns a deep copy so that callers can run against a snapshot
// while the original keeps being edited.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{ID: g.ID, Name: g.Name, Chain: g.Chain}
	out.Nodes = make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n == nil {
			continue
		}
		cp := *n
		cp.Config = n.Config.clone()
		out.Nodes = append(out.Nodes, &cp)
	}
	out.Edges = make([]*Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e == nil {
			continue
		}
		cp := *e
		out.Edges = append(out.Edges, &cp)
	}
	return out
}
