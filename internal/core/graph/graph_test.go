package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   *Graph
		wantErr error
	}{
		{
			name: "valid graph",
			graph: &Graph{
				Chain: ChainBitcoinCash,
				Nodes: []*Node{{ID: "w", Kind: KindWallet}, {ID: "p", Kind: KindPayment}},
				Edges: []*Edge{{ID: "e1", Source: "w", Target: "p"}},
			},
		},
		{
			name:    "unknown chain",
			graph:   &Graph{Chain: "dogecoin"},
			wantErr: ErrUnknownChain,
		},
		{
			name:    "duplicate node",
			graph:   &Graph{Nodes: []*Node{{ID: "a", Kind: KindWallet}, {ID: "a", Kind: KindPayment}}},
			wantErr: ErrDuplicateNode,
		},
		{
			name:    "node without kind",
			graph:   &Graph{Nodes: []*Node{{ID: "a"}}},
			wantErr: ErrInvalidNodeKind,
		},
		{
			name: "dangling edge",
			graph: &Graph{
				Nodes: []*Node{{ID: "a", Kind: KindWallet}},
				Edges: []*Edge{{Source: "a", Target: "ghost"}},
			},
			wantErr: ErrTargetNodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGraph_AddNode(t *testing.T) {
	g := &Graph{Chain: ChainAlgorand}

	t.Run("add valid node", func(t *testing.T) {
		node := &Node{ID: "acct", Kind: KindAccount}
		require.NoError(t, g.AddNode(node))
		got, ok := g.NodeByID("acct")
		require.True(t, ok)
		assert.Same(t, node, got)
	})

	t.Run("add nil node", func(t *testing.T) {
		assert.ErrorIs(t, g.AddNode(nil), ErrNilNode)
	})

	t.Run("add invalid node", func(t *testing.T) {
		assert.ErrorIs(t, g.AddNode(&Node{Kind: KindPayment}), ErrInvalidNodeID)
	})

	t.Run("add duplicate node", func(t *testing.T) {
		assert.ErrorIs(t, g.AddNode(&Node{ID: "acct", Kind: KindPayment}), ErrDuplicateNode)
	})

	t.Run("insertion order kept", func(t *testing.T) {
		require.NoError(t, g.AddNode(&Node{ID: "pay", Kind: KindPayment}))
		assert.Equal(t, "pay", g.Nodes[len(g.Nodes)-1].ID)
	})
}

func TestGraph_AddEdge(t *testing.T) {
	g := &Graph{Nodes: []*Node{{ID: "a", Kind: KindWallet}, {ID: "b", Kind: KindPayment}}}

	t.Run("add valid edge", func(t *testing.T) {
		edge := &Edge{Source: "a", Target: "b"}
		require.NoError(t, g.AddEdge(edge))
		assert.Len(t, g.Edges, 1)
		assert.Equal(t, "a->b", edge.ID)
	})

	t.Run("duplicate edge", func(t *testing.T) {
		assert.ErrorIs(t, g.AddEdge(&Edge{Source: "a", Target: "b"}), ErrDuplicateEdge)
	})

	t.Run("self loop", func(t *testing.T) {
		assert.ErrorIs(t, g.AddEdge(&Edge{Source: "a", Target: "a"}), ErrSelfLoop)
	})

	t.Run("missing source", func(t *testing.T) {
		assert.ErrorIs(t, g.AddEdge(&Edge{Source: "x", Target: "b"}), ErrSourceNodeNotFound)
	})

	t.Run("incoming in edge order", func(t *testing.T) {
		require.NoError(t, g.AddNode(&Node{ID: "c", Kind: KindFeeConfig}))
		require.NoError(t, g.AddEdge(&Edge{Source: "c", Target: "b"}))
		in := g.Incoming("b")
		require.Len(t, in, 2)
		assert.Equal(t, "a", in[0].Source)
		assert.Equal(t, "c", in[1].Source)
	})
}

func TestGraph_Clone(t *testing.T) {
	g := &Graph{
		ID:    "g1",
		Nodes: []*Node{{ID: "a", Kind: KindSetVariable, Config: Config{"name": "X"}}},
		Edges: []*Edge{{ID: "e", Source: "a", Target: "a"}},
	}
	cp := g.Clone()
	cp.Nodes[0].Config["name"] = "Y"
	cp.Edges[0].Target = "b"

	assert.Equal(t, "X", g.Nodes[0].Config["name"])
	assert.Equal(t, "a", g.Edges[0].Target)
}

func TestChain_Supports(t *testing.T) {
	assert.True(t, ChainAlgorand.Supports(KindSignTxn))
	assert.True(t, ChainBitcoinCash.Supports(KindPayment))
	assert.False(t, ChainBitcoinCash.Supports(KindSignTxn))
	assert.True(t, ChainBitcoinCash.Supports(KindAccount))
	assert.Len(t, Kinds(ChainBitcoinCash), 14)
}

func TestConfig_Accessors(t *testing.T) {
	var c Config
	require.NoError(t, json.Unmarshal([]byte(`{
		"amount": "0.001", "count": 4, "frozen": "false", "receiver": "  ",
		"name": "X", "rate": 2.5
	}`), &c))

	f, ok := c.Float("amount")
	assert.True(t, ok)
	assert.InDelta(t, 0.001, f, 1e-12)

	n, ok := c.Int("count")
	assert.True(t, ok)
	assert.EqualValues(t, 4, n)

	b, ok := c.Bool("frozen")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = c.String("receiver")
	assert.False(t, ok, "blank strings count as unset")
	assert.Equal(t, "fallback", c.StringOr("receiver", "fallback"))
	assert.Equal(t, "X", c.StringOr("name", ""))
	assert.Equal(t, "2.5", c.StringOr("rate", ""))
	assert.Equal(t, 7.0, c.FloatOr("missing", 7))
	assert.True(t, c.BoolOr("missing", true))
}
