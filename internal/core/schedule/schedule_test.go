package schedule

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

func nodes(ids ...string) []*graph.Node {
	out := make([]*graph.Node, len(ids))
	for i, id := range ids {
		out[i] = &graph.Node{ID: id, Kind: graph.KindPayment}
	}
	return out
}

func edge(src, dst string) *graph.Edge {
	return &graph.Edge{ID: src + "-" + dst, Source: src, Target: dst}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name         string
		nodes        []*graph.Node
		edges        []*graph.Edge
		wantOrder    []string
		wantExcluded []string
	}{
		{
			name:      "empty",
			wantOrder: []string{},
		},
		{
			name:      "no edges keeps input order",
			nodes:     nodes("c", "a", "b"),
			wantOrder: []string{"c", "a", "b"},
		},
		{
			name:      "chain declared backwards",
			nodes:     nodes("c", "b", "a"),
			edges:     []*graph.Edge{edge("a", "b"), edge("b", "c")},
			wantOrder: []string{"a", "b", "c"},
		},
		{
			name:      "diamond releases targets in edge order",
			nodes:     nodes("a", "b", "c", "d"),
			edges:     []*graph.Edge{edge("a", "c"), edge("a", "b"), edge("b", "d"), edge("c", "d")},
			wantOrder: []string{"a", "c", "b", "d"},
		},
		{
			name:      "dangling edges ignored",
			nodes:     nodes("a", "b"),
			edges:     []*graph.Edge{edge("ghost", "a"), edge("a", "nowhere"), edge("a", "b")},
			wantOrder: []string{"a", "b"},
		},
		{
			name:         "cycle members excluded, independent node kept",
			nodes:        nodes("a", "b", "c"),
			edges:        []*graph.Edge{edge("a", "b"), edge("b", "a")},
			wantOrder:    []string{"c"},
			wantExcluded: []string{"a", "b"},
		},
		{
			name:         "downstream of cycle excluded",
			nodes:        nodes("x", "a", "b", "d"),
			edges:        []*graph.Edge{edge("a", "b"), edge("b", "a"), edge("b", "d")},
			wantOrder:    []string{"x"},
			wantExcluded: []string{"a", "b", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Order(tt.nodes, tt.edges)
			if diff := cmp.Diff(tt.wantOrder, res.IDs()); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantExcluded, res.Excluded)
			assert.Equal(t, len(tt.wantExcluded) > 0, res.HasCycle())
		})
	}
}

func TestOrder_RespectsEveryEdge(t *testing.T) {
	ns := nodes("e", "d", "c", "b", "a")
	es := []*graph.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d"), edge("d", "e")}

	res := Order(ns, es)
	idx := res.Index()
	assert.Len(t, res.Ordered, len(ns))
	for _, e := range es {
		assert.Less(t, idx[e.Source], idx[e.Target], "%s must precede %s", e.Source, e.Target)
	}
}

func TestOrder_Deterministic(t *testing.T) {
	ns := nodes("a", "b", "c", "d")
	es := []*graph.Edge{edge("a", "d"), edge("b", "d"), edge("c", "d")}
	first := Order(ns, es).IDs()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Order(ns, es).IDs())
	}
}
