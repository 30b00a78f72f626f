package serialization

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

// snapshotState mirrors the shape stored by the snapshot savers
type snapshotState struct {
	Phase     string             `json:"phase" msgpack:"phase" yaml:"phase"`
	FeeRate   float64            `json:"fee_rate" msgpack:"fee_rate" yaml:"fee_rate"`
	Variables map[string]float64 `json:"variables" msgpack:"variables" yaml:"variables"`
}

func sampleState() snapshotState {
	return snapshotState{Phase: "executing", FeeRate: 2, Variables: map[string]float64{"X": 15}}
}

func TestCodecs(t *testing.T) {
	for _, name := range []string{"json", "yaml", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			codec, err := CodecByName(name)
			require.NoError(t, err)

			encoded, err := codec.Encode(sampleState())
			require.NoError(t, err)

			var decoded snapshotState
			require.NoError(t, codec.Decode(encoded, &decoded))
			assert.Equal(t, sampleState(), decoded)
		})
	}

	_, err := CodecByName("xml")
	assert.Error(t, err)
}

func TestSerializer_Pipeline(t *testing.T) {
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	configs := map[string]SerializationConfig{
		"plain json":       {Codec: NewJSONCodec()},
		"msgpack zstd":     {Codec: NewMsgPackCodec(), Compression: CompressionZstd},
		"json gzip":        {Codec: NewJSONCodec(), Compression: CompressionGzip},
		"msgpack zstd aes": {Codec: NewMsgPackCodec(), Compression: CompressionZstd, EncryptKey: key},
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			s := NewSerializer(cfg)
			data, err := s.Serialize(sampleState())
			require.NoError(t, err)

			var out snapshotState
			require.NoError(t, s.Deserialize(data, &out))
			assert.Equal(t, sampleState(), out)
		})
	}
}

func TestSeal(t *testing.T) {
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	sealed, err := Seal(key, []byte("backup"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "backup")

	opened, err := Open(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "backup", string(opened))

	other := make([]byte, KeySize)
	_, err = Open(other, sealed)
	assert.Error(t, err)

	_, err = Seal([]byte("short"), nil)
	assert.ErrorIs(t, err, ErrKeySize)

	_, err = Open(key, []byte{1, 2})
	assert.ErrorIs(t, err, ErrShortCipher)
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("")
	require.NoError(t, err)
	assert.Nil(t, k)

	raw := make([]byte, KeySize)
	k, err = ParseKey(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Len(t, k, KeySize)

	_, err = ParseKey("abcd")
	assert.ErrorIs(t, err, ErrKeySize)

	_, err = ParseKey("zz")
	assert.Error(t, err)
}

func TestCompress_Unknown(t *testing.T) {
	_, err := Compress("lz4", []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func sampleGraph() *graph.Graph {
	return &graph.Graph{
		ID:    "g1",
		Name:  "pay",
		Chain: graph.ChainAlgorand,
		Nodes: []*graph.Node{
			{ID: "acct", Kind: graph.KindAccount, Position: graph.Position{X: 10, Y: 20}, Config: graph.Config{"mnemonic": "abandon"}},
			{ID: "pay", Kind: graph.KindPayment, Label: "Pay", Config: graph.Config{"amount": 0.001, "receiver": "ADDR"}},
		},
		Edges: []*graph.Edge{{ID: "e1", Source: "acct", Target: "pay"}},
	}
}

func TestGraphDocument_RoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml", "msgpack"} {
		t.Run(format, func(t *testing.T) {
			data, err := ExportGraph(sampleGraph(), format)
			require.NoError(t, err)

			g, err := ImportGraph(data, format)
			require.NoError(t, err)
			assert.Equal(t, "g1", g.ID)
			require.Len(t, g.Nodes, 2)
			assert.Equal(t, "pay", g.Nodes[1].ID)
			assert.Equal(t, "ADDR", g.Nodes[1].Config.StringOr("receiver", ""))
			assert.InDelta(t, 0.001, g.Nodes[1].Config.FloatOr("amount", 0), 1e-12)
			assert.Equal(t, 10.0, g.Nodes[0].Position.X)
		})
	}
}

func TestImportGraph_Bare(t *testing.T) {
	g, err := ImportGraph([]byte(`{"id":"b","chain":"bitcoincash","nodes":[{"id":"w","kind":"wallet"}],"edges":[]}`), "json")
	require.NoError(t, err)
	assert.Equal(t, graph.ChainBitcoinCash, g.Chain)

	_, err = ImportGraph([]byte(`{"version":9,"graph":{"id":"x"}}`), "json")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = ImportGraph([]byte(`{}`), "json")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "yaml", FormatFromPath("flow.YML"))
	assert.Equal(t, "json", FormatFromPath("flow.json"))
	assert.Equal(t, "json", FormatFromPath("flow"))
}
