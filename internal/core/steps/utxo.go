package steps

import (
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

// Defaults applied when a UTXO node leaves an optional field unset.
const (
	DefaultUnit        = "bch"
	DefaultFeeRate     = 1.0
	DefaultRemixRounds = 3
	DefaultSplitCount  = 2
)

// UTXOStep is the closed union of UTXO-chain steps.
type UTXOStep interface {
	Step
	AcceptUTXO(v UTXOVisitor) error
}

// UTXOVisitor handles every UTXO step type.
type UTXOVisitor interface {
	VisitWallet(*Wallet) error
	VisitWatchWallet(*WatchWallet) error
	VisitFeeConfig(*FeeConfig) error
	VisitGenerateWallet(*GenerateWallet) error
	VisitSetVariable(*SetVariable) error
	VisitGetVariable(*GetVariable) error
	VisitMathOp(*MathOp) error
	VisitSplitUTXO(*SplitUTXO) error
	VisitShuffleOutputs(*ShuffleOutputs) error
	VisitJoinMixPool(*JoinMixPool) error
	VisitAutoRemix(*AutoRemix) error
	VisitPayment(*Payment) error
	VisitBroadcast(*Broadcast) error
	VisitUnsupported(*Unsupported) error
}

// Wallet is a spending wallet. Credentials are optional; resolution falls
// back to the stored default and then to a fresh wallet.
type Wallet struct {
	Base
	WIF      string
	Mnemonic string
}

// WatchWallet attaches a read-only handle for Address.
type WatchWallet struct {
	Base
	Address string `validate:"required"`
}

// FeeConfig sets the run fee rate in sat/byte.
type FeeConfig struct {
	Base
	FeeRate float64 `validate:"gt=0"`
}

// GenerateWallet mints a fresh wallet that must be backed up.
type GenerateWallet struct {
	Base
}

// SetVariable stores Value under Var. A nil Value means the node had none.
type SetVariable struct {
	Base
	Var   string      `json:"name" validate:"required"`
	Value interface{} `validate:"-"`
}

// GetVariable reads Var back into the log.
type GetVariable struct {
	Base
	Var string `json:"name" validate:"required"`
}

// MathOp computes Variable <Operation> Operand and stores the result in
// Target, or back into Variable when Target is empty. A nil Operand means
// the node had none.
type MathOp struct {
	Base
	Variable  string   `validate:"required"`
	Operation string   `validate:"required,oneof=add sub mul div"`
	Operand   *float64 `validate:"required"`
	Target    string
}

// Destination is the variable the result is written to.
func (s *MathOp) Destination() string {
	if s.Target != "" {
		return s.Target
	}
	return s.Variable
}

// SplitUTXO creates Count equal self-addressed outputs.
type SplitUTXO struct {
	Base
	Count  int64   `validate:"gte=2,lte=100"`
	Amount float64 `validate:"gt=0"`
	Unit   string  `validate:"oneof=sat bch"`
}

// ShuffleOutputs asks the mixing coordinator to shuffle outputs.
type ShuffleOutputs struct {
	Base
}

// JoinMixPool registers with a mix pool.
type JoinMixPool struct {
	Base
	Pool string
}

// AutoRemix runs Rounds remix rounds.
type AutoRemix struct {
	Base
	Rounds int64 `validate:"gte=1,lte=50"`
}

// Payment sends Amount Unit to Receiver.
type Payment struct {
	Base
	Receiver string  `validate:"required"`
	Amount   float64 `validate:"gt=0"`
	Unit     string  `validate:"oneof=sat bch"`
}

// Broadcast marks the point where prior sends are announced.
type Broadcast struct {
	Base
}

func (s *Wallet) AcceptUTXO(v UTXOVisitor) error         { return v.VisitWallet(s) }
func (s *WatchWallet) AcceptUTXO(v UTXOVisitor) error    { return v.VisitWatchWallet(s) }
func (s *FeeConfig) AcceptUTXO(v UTXOVisitor) error      { return v.VisitFeeConfig(s) }
func (s *GenerateWallet) AcceptUTXO(v UTXOVisitor) error { return v.VisitGenerateWallet(s) }
func (s *SetVariable) AcceptUTXO(v UTXOVisitor) error    { return v.VisitSetVariable(s) }
func (s *GetVariable) AcceptUTXO(v UTXOVisitor) error    { return v.VisitGetVariable(s) }
func (s *MathOp) AcceptUTXO(v UTXOVisitor) error         { return v.VisitMathOp(s) }
func (s *SplitUTXO) AcceptUTXO(v UTXOVisitor) error      { return v.VisitSplitUTXO(s) }
func (s *ShuffleOutputs) AcceptUTXO(v UTXOVisitor) error { return v.VisitShuffleOutputs(s) }
func (s *JoinMixPool) AcceptUTXO(v UTXOVisitor) error    { return v.VisitJoinMixPool(s) }
func (s *AutoRemix) AcceptUTXO(v UTXOVisitor) error      { return v.VisitAutoRemix(s) }
func (s *Payment) AcceptUTXO(v UTXOVisitor) error        { return v.VisitPayment(s) }
func (s *Broadcast) AcceptUTXO(v UTXOVisitor) error      { return v.VisitBroadcast(s) }

// IsWallet reports whether kind is the spending-wallet kind.
func IsWallet(kind graph.Kind) bool {
	return kind == graph.KindWallet || kind == graph.KindAccount
}

// DecodeUTXO turns a node into its UTXO step. Required fields are left at
// their zero value when absent so that validation can report them.
func DecodeUTXO(n *graph.Node) UTXOStep {
	c := n.Config
	b := Base{Node: n}
	switch n.Kind {
	case graph.KindWallet, graph.KindAccount:
		return &Wallet{Base: b, WIF: c.StringOr("wif", ""), Mnemonic: c.StringOr("mnemonic", "")}
	case graph.KindWatchWallet:
		return &WatchWallet{Base: b, Address: c.StringOr("address", "")}
	case graph.KindFeeConfig:
		return &FeeConfig{Base: b, FeeRate: c.FloatOr("feeRate", DefaultFeeRate)}
	case graph.KindGenerateWallet:
		return &GenerateWallet{Base: b}
	case graph.KindSetVariable:
		s := &SetVariable{Base: b, Var: c.StringOr("name", "")}
		if f, ok := c.Float("value"); ok {
			s.Value = f
		} else if str, ok := c.String("value"); ok {
			s.Value = str
		}
		return s
	case graph.KindGetVariable:
		return &GetVariable{Base: b, Var: c.StringOr("name", "")}
	case graph.KindMathOp:
		s := &MathOp{
			Base:      b,
			Variable:  c.StringOr("variable", ""),
			Operation: c.StringOr("operation", ""),
			Target:    c.StringOr("target", ""),
		}
		if f, ok := c.Float("operand"); ok {
			s.Operand = &f
		}
		return s
	case graph.KindSplitUTXO:
		return &SplitUTXO{
			Base:   b,
			Count:  c.IntOr("count", DefaultSplitCount),
			Amount: c.FloatOr("amount", 0),
			Unit:   normalizeUnit(c.StringOr("unit", DefaultUnit)),
		}
	case graph.KindShuffleOutputs:
		return &ShuffleOutputs{Base: b}
	case graph.KindJoinMixPool:
		return &JoinMixPool{Base: b, Pool: c.StringOr("pool", "default")}
	case graph.KindAutoRemix:
		return &AutoRemix{Base: b, Rounds: c.IntOr("rounds", DefaultRemixRounds)}
	case graph.KindPayment:
		return &Payment{
			Base:     b,
			Receiver: c.StringOr("receiver", ""),
			Amount:   c.FloatOr("amount", 0),
			Unit:     normalizeUnit(c.StringOr("unit", DefaultUnit)),
		}
	case graph.KindBroadcast:
		return &Broadcast{Base: b}
	}
	return &Unsupported{Base: b}
}

// normalizeUnit maps unit aliases such as "BCH" or "sats" to their canonical
// name. Unknown units are returned unchanged for validation to reject.
func normalizeUnit(u string) string {
	if unit, err := wallet.ParseUnit(u); err == nil {
		return string(unit)
	}
	return u
}
