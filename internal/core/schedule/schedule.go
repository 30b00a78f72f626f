// Package schedule linearizes workflow graphs with Kahn's algorithm.
package schedule

import (
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

// Result is the outcome of Order.
type Result struct {
	// Ordered holds every node that could be placed, dependencies first.
	Ordered []*graph.Node
	// Excluded lists, in input order, the ids of nodes that sit on or
	// downstream of a cycle and were therefore never placed.
	Excluded []string
}

// Order returns a topological ordering of nodes.
//
// The ready queue is seeded in input order and targets are released in
// edge order, so the result is deterministic for a given input. Edges that
// reference unknown nodes are ignored.
func Order(nodes []*graph.Node, edges []*graph.Edge) Result {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n != nil {
			inDegree[n.ID] = 0
		}
	}

	adjacency := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if e == nil {
			continue
		}
		_, okSrc := inDegree[e.Source]
		_, okDst := inDegree[e.Target]
		if !okSrc || !okDst {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		inDegree[e.Target]++
	}

	byID := make(map[string]*graph.Node, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = n
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	res := Result{Ordered: make([]*graph.Node, 0, len(byID))}
	placed := make(map[string]bool, len(byID))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		res.Ordered = append(res.Ordered, byID[id])
		placed[id] = true
		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for _, n := range nodes {
		if n == nil || placed[n.ID] {
			continue
		}
		placed[n.ID] = true
		res.Excluded = append(res.Excluded, n.ID)
	}
	return res
}

// OrderGraph is Order over a graph's nodes and edges.
func OrderGraph(g *graph.Graph) Result {
	if g == nil {
		return Result{}
	}
	return Order(g.Nodes, g.Edges)
}

// IDs returns the ids of the ordered nodes.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Ordered))
	for i, n := range r.Ordered {
		ids[i] = n.ID
	}
	return ids
}

// Index maps node id to its position in Ordered.
func (r Result) Index() map[string]int {
	idx := make(map[string]int, len(r.Ordered))
	for i, n := range r.Ordered {
		idx[n.ID] = i
	}
	return idx
}

// HasCycle reports whether any node was excluded.
func (r Result) HasCycle() bool {
	return len(r.Excluded) > 0
}
