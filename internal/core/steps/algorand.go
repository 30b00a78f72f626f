package steps

import "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"

// Defaults applied when an Algorand node leaves a field unset.
const (
	DefaultReceiver    = "RECEIVER_ADDRESS"
	DefaultAssetName   = "MyToken"
	DefaultUnitName    = "MTK"
	DefaultAssetTotal  = 1000000
	DefaultKeyDilution = 10000
	DefaultWaitRounds  = 4
)

// AlgorandStep is the closed union of Algorand steps.
type AlgorandStep interface {
	Step
	AcceptAlgorand(v AlgorandVisitor) error
}

// AlgorandVisitor handles every Algorand step type.
type AlgorandVisitor interface {
	VisitAccount(*Account) error
	VisitAlgoPayment(*AlgoPayment) error
	VisitAssetCreate(*AssetCreate) error
	VisitAssetTransfer(*AssetTransfer) error
	VisitAssetFreeze(*AssetFreeze) error
	VisitKeyReg(*KeyReg) error
	VisitSignTxn(*SignTxn) error
	VisitSubmitTxn(*SubmitTxn) error
	VisitUnsupported(*Unsupported) error
}

// Account is an account restored from a 25-word mnemonic.
type Account struct {
	Base
	Mnemonic string
}

// AlgoPayment transfers Amount ALGO to Receiver.
type AlgoPayment struct {
	Base
	Receiver string
	Amount   float64
	Note     string
}

// AssetCreate creates a fungible asset.
type AssetCreate struct {
	Base
	AssetName     string
	UnitName      string
	Total         int64
	Decimals      int64
	URL           string
	DefaultFrozen bool
}

// AssetTransfer moves Amount base units of AssetID to Receiver.
type AssetTransfer struct {
	Base
	Receiver string
	AssetID  int64
	Amount   int64
}

// AssetFreeze sets the frozen flag of AssetID for Target.
type AssetFreeze struct {
	Base
	Target  string
	AssetID int64
	Frozen  bool
}

// KeyReg registers participation keys. Empty keys emit an offline
// registration.
type KeyReg struct {
	Base
	VoteKey       string
	SelectionKey  string
	StateProofKey string
	VoteFirst     int64
	VoteLast      int64
	KeyDilution   int64
}

// SignTxn signs the most recent unsigned transaction feeding it.
type SignTxn struct {
	Base
}

// SubmitTxn broadcasts the most recent signed transaction feeding it and
// waits for confirmation.
type SubmitTxn struct {
	Base
	WaitRounds int64
}

func (s *Account) AcceptAlgorand(v AlgorandVisitor) error       { return v.VisitAccount(s) }
func (s *AlgoPayment) AcceptAlgorand(v AlgorandVisitor) error   { return v.VisitAlgoPayment(s) }
func (s *AssetCreate) AcceptAlgorand(v AlgorandVisitor) error   { return v.VisitAssetCreate(s) }
func (s *AssetTransfer) AcceptAlgorand(v AlgorandVisitor) error { return v.VisitAssetTransfer(s) }
func (s *AssetFreeze) AcceptAlgorand(v AlgorandVisitor) error   { return v.VisitAssetFreeze(s) }
func (s *KeyReg) AcceptAlgorand(v AlgorandVisitor) error        { return v.VisitKeyReg(s) }
func (s *SignTxn) AcceptAlgorand(v AlgorandVisitor) error       { return v.VisitSignTxn(s) }
func (s *SubmitTxn) AcceptAlgorand(v AlgorandVisitor) error     { return v.VisitSubmitTxn(s) }

// IsUnsignedTxn reports whether kind produces an unsigned transaction.
func IsUnsignedTxn(kind graph.Kind) bool {
	switch kind {
	case graph.KindPayment, graph.KindAssetCreate, graph.KindAssetTransfer,
		graph.KindAssetFreeze, graph.KindKeyReg:
		return true
	}
	return false
}

// DecodeAlgorand turns a node into its Algorand step, applying defaults.
func DecodeAlgorand(n *graph.Node) AlgorandStep {
	c := n.Config
	b := Base{Node: n}
	switch n.Kind {
	case graph.KindAccount:
		return &Account{Base: b, Mnemonic: c.StringOr("mnemonic", "")}
	case graph.KindPayment:
		return &AlgoPayment{
			Base:     b,
			Receiver: c.StringOr("receiver", DefaultReceiver),
			Amount:   c.FloatOr("amount", 0),
			Note:     c.StringOr("note", ""),
		}
	case graph.KindAssetCreate:
		return &AssetCreate{
			Base:          b,
			AssetName:     c.StringOr("assetName", DefaultAssetName),
			UnitName:      c.StringOr("unitName", DefaultUnitName),
			Total:         c.IntOr("total", DefaultAssetTotal),
			Decimals:      c.IntOr("decimals", 0),
			URL:           c.StringOr("url", ""),
			DefaultFrozen: c.BoolOr("defaultFrozen", false),
		}
	case graph.KindAssetTransfer:
		return &AssetTransfer{
			Base:     b,
			Receiver: c.StringOr("receiver", DefaultReceiver),
			AssetID:  c.IntOr("assetId", 0),
			Amount:   c.IntOr("amount", 0),
		}
	case graph.KindAssetFreeze:
		return &AssetFreeze{
			Base:    b,
			Target:  c.StringOr("target", DefaultReceiver),
			AssetID: c.IntOr("assetId", 0),
			Frozen:  c.BoolOr("frozen", true),
		}
	case graph.KindKeyReg:
		return &KeyReg{
			Base:          b,
			VoteKey:       c.StringOr("voteKey", ""),
			SelectionKey:  c.StringOr("selectionKey", ""),
			StateProofKey: c.StringOr("stateProofKey", ""),
			VoteFirst:     c.IntOr("voteFirst", 0),
			VoteLast:      c.IntOr("voteLast", 0),
			KeyDilution:   c.IntOr("keyDilution", DefaultKeyDilution),
		}
	case graph.KindSignTxn:
		return &SignTxn{Base: b}
	case graph.KindSubmitTxn:
		return &SubmitTxn{Base: b, WaitRounds: c.IntOr("waitRounds", DefaultWaitRounds)}
	}
	return &Unsupported{Base: b}
}
