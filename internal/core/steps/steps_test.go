package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

type kindRecorder struct {
	seen []string
}

func (r *kindRecorder) rec(s Step) error { r.seen = append(r.seen, string(s.Kind())); return nil }

func (r *kindRecorder) VisitWallet(s *Wallet) error                 { return r.rec(s) }
func (r *kindRecorder) VisitWatchWallet(s *WatchWallet) error       { return r.rec(s) }
func (r *kindRecorder) VisitFeeConfig(s *FeeConfig) error           { return r.rec(s) }
func (r *kindRecorder) VisitGenerateWallet(s *GenerateWallet) error { return r.rec(s) }
func (r *kindRecorder) VisitSetVariable(s *SetVariable) error       { return r.rec(s) }
func (r *kindRecorder) VisitGetVariable(s *GetVariable) error       { return r.rec(s) }
func (r *kindRecorder) VisitMathOp(s *MathOp) error                 { return r.rec(s) }
func (r *kindRecorder) VisitSplitUTXO(s *SplitUTXO) error           { return r.rec(s) }
func (r *kindRecorder) VisitShuffleOutputs(s *ShuffleOutputs) error { return r.rec(s) }
func (r *kindRecorder) VisitJoinMixPool(s *JoinMixPool) error       { return r.rec(s) }
func (r *kindRecorder) VisitAutoRemix(s *AutoRemix) error           { return r.rec(s) }
func (r *kindRecorder) VisitPayment(s *Payment) error               { return r.rec(s) }
func (r *kindRecorder) VisitBroadcast(s *Broadcast) error           { return r.rec(s) }
func (r *kindRecorder) VisitUnsupported(s *Unsupported) error {
	r.seen = append(r.seen, "unsupported")
	return nil
}

func TestDecodeUTXO_Dispatch(t *testing.T) {
	rec := &kindRecorder{}
	for _, k := range graph.Kinds(graph.ChainBitcoinCash) {
		step := DecodeUTXO(&graph.Node{ID: "n-" + string(k), Kind: k})
		require.NoError(t, step.AcceptUTXO(rec))
	}
	require.NoError(t, DecodeUTXO(&graph.Node{ID: "x", Kind: "tokenCreate"}).AcceptUTXO(rec))

	assert.NotContains(t, rec.seen[:len(rec.seen)-1], "unsupported")
	assert.Equal(t, "unsupported", rec.seen[len(rec.seen)-1])
	// account is decoded as a wallet
	assert.Contains(t, rec.seen, "account")
}

func TestDecodeUTXO_Defaults(t *testing.T) {
	pay := DecodeUTXO(&graph.Node{ID: "p", Kind: graph.KindPayment, Config: graph.Config{"receiver": "bitcoincash:qq"}}).(*Payment)
	assert.Equal(t, "bitcoincash:qq", pay.Receiver)
	assert.Equal(t, DefaultUnit, pay.Unit)
	assert.Zero(t, pay.Amount)

	remix := DecodeUTXO(&graph.Node{ID: "r", Kind: graph.KindAutoRemix}).(*AutoRemix)
	assert.EqualValues(t, DefaultRemixRounds, remix.Rounds)

	set := DecodeUTXO(&graph.Node{ID: "s", Kind: graph.KindSetVariable, Config: graph.Config{"name": "X", "value": "5"}}).(*SetVariable)
	assert.Equal(t, 5.0, set.Value)

	label := DecodeUTXO(&graph.Node{ID: "s2", Kind: graph.KindSetVariable, Config: graph.Config{"name": "L", "value": "hello"}}).(*SetVariable)
	assert.Equal(t, "hello", label.Value)

	get := DecodeUTXO(&graph.Node{ID: "g", Kind: graph.KindGetVariable, Config: graph.Config{"name": "X"}}).(*GetVariable)
	assert.Equal(t, "X", get.Var)
	assert.Equal(t, "g", get.Name())

	op := DecodeUTXO(&graph.Node{ID: "m", Kind: graph.KindMathOp, Config: graph.Config{"variable": "X", "operation": "mul", "operand": 3}}).(*MathOp)
	require.NotNil(t, op.Operand)
	assert.Equal(t, 3.0, *op.Operand)
	assert.Equal(t, "X", op.Destination())
	op.Target = "Y"
	assert.Equal(t, "Y", op.Destination())
}

func TestDecodeAlgorand_Defaults(t *testing.T) {
	pay := DecodeAlgorand(&graph.Node{ID: "p", Kind: graph.KindPayment}).(*AlgoPayment)
	assert.Equal(t, DefaultReceiver, pay.Receiver)
	assert.Zero(t, pay.Amount)

	asset := DecodeAlgorand(&graph.Node{ID: "a", Kind: graph.KindAssetCreate}).(*AssetCreate)
	assert.Equal(t, DefaultAssetName, asset.AssetName)
	assert.Equal(t, DefaultUnitName, asset.UnitName)
	assert.EqualValues(t, DefaultAssetTotal, asset.Total)

	freeze := DecodeAlgorand(&graph.Node{ID: "f", Kind: graph.KindAssetFreeze}).(*AssetFreeze)
	assert.True(t, freeze.Frozen)

	_, ok := DecodeAlgorand(&graph.Node{ID: "w", Kind: graph.KindWallet}).(*Unsupported)
	assert.True(t, ok)
}

func TestIsUnsignedTxn(t *testing.T) {
	assert.True(t, IsUnsignedTxn(graph.KindAssetFreeze))
	assert.False(t, IsUnsignedTxn(graph.KindSignTxn))
	assert.False(t, IsUnsignedTxn(graph.KindAccount))
}

func TestDecodeUTXO_UnitAliases(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{"BCH", "bch"},
		{"sats", "sat"},
		{"Satoshis", "sat"},
		{"sat", "sat"},
		{"eth", "eth"},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			pay := DecodeUTXO(&graph.Node{ID: "p", Kind: graph.KindPayment, Config: graph.Config{"unit": tt.unit}}).(*Payment)
			assert.Equal(t, tt.want, pay.Unit)
			split := DecodeUTXO(&graph.Node{ID: "s", Kind: graph.KindSplitUTXO, Config: graph.Config{"unit": tt.unit}}).(*SplitUTXO)
			assert.Equal(t, tt.want, split.Unit)
		})
	}
}

func TestDecodeUTXO_MissingOperand(t *testing.T) {
	op := DecodeUTXO(&graph.Node{ID: "m", Kind: graph.KindMathOp, Config: graph.Config{"variable": "X", "operation": "mul"}}).(*MathOp)
	assert.Nil(t, op.Operand)

	zero := DecodeUTXO(&graph.Node{ID: "z", Kind: graph.KindMathOp, Config: graph.Config{"variable": "X", "operation": "add", "operand": 0}}).(*MathOp)
	require.NotNil(t, zero.Operand)
	assert.Zero(t, *zero.Operand)
}
