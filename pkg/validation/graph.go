package validation

import (
	"errors"
	"fmt"

	coregraph "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

// ErrUnknownKind is returned by ValidateCoreGraph with CheckVocabulary.
var ErrUnknownKind = errors.New("node kind not supported by chain")

// GraphValidationOptions controls optional validation checks.
type GraphValidationOptions struct {
	// CheckCycles enables detection of directed cycles.
	CheckCycles bool
	// CheckVocabulary rejects kinds outside the graph's chain vocabulary.
	// Without it such nodes are accepted and later treated as no-ops.
	CheckVocabulary bool
}

// ValidateCoreGraph performs structural validation on a graph loaded from
// an external source, where AddNode/AddEdge guards may have been bypassed.
func ValidateCoreGraph(g *coregraph.Graph, opts ...GraphValidationOptions) error {
	if g == nil {
		return errors.New("graph is nil")
	}
	if err := g.Validate(); err != nil {
		return err
	}

	var cfg GraphValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}

	for _, n := range g.Nodes {
		if err := Validate.Var(n.ID, "node_id"); err != nil {
			return fmt.Errorf("%w: %q", coregraph.ErrInvalidNodeID, n.ID)
		}
		if cfg.CheckVocabulary && g.Chain != "" && !g.Chain.Supports(n.Kind) {
			return fmt.Errorf("%w: %s node %q", ErrUnknownKind, n.Kind, n.ID)
		}
	}

	type edgeKey struct{ s, t string }
	seen := make(map[edgeKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		k := edgeKey{e.Source, e.Target}
		if _, dup := seen[k]; dup {
			return coregraph.ErrDuplicateEdge
		}
		seen[k] = struct{}{}
	}

	if cfg.CheckCycles && hasCycle(g) {
		return coregraph.ErrCyclicGraph
	}
	return nil
}

// hasCycle detects any cycle in a directed graph using DFS with coloring.
func hasCycle(g *coregraph.Graph) bool {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)
	color := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				return true // back-edge
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		color[u] = black
		return false
	}
	for _, n := range g.Nodes {
		if color[n.ID] == white && dfs(n.ID) {
			return true
		}
	}
	return false
}
