package graph

// Chain selects the node vocabulary of a graph.
type Chain string

const (
	// ChainAlgorand is the account-model chain targeted by the algosdk emitter.
	ChainAlgorand Chain = "algorand"
	// ChainBitcoinCash is the UTXO chain driven by the flow executor.
	ChainBitcoinCash Chain = "bitcoincash"
)

// Valid reports whether c is a known chain.
func (c Chain) Valid() bool {
	return c == ChainAlgorand || c == ChainBitcoinCash
}

// Kind is the node type tag.
type Kind string

// Algorand vocabulary
const (
	KindAccount       Kind = "account"
	KindAssetCreate   Kind = "assetCreate"
	KindAssetTransfer Kind = "assetTransfer"
	KindAssetFreeze   Kind = "assetFreeze"
	KindKeyReg        Kind = "keyReg"
	KindSignTxn       Kind = "signTxn"
	KindSubmitTxn     Kind = "submitTxn"
)

// Shared by both vocabularies. On the UTXO chain "account" is accepted as
// an alias of "wallet".
const (
	KindPayment Kind = "payment"
)

// UTXO vocabulary
const (
	KindWallet         Kind = "wallet"
	KindWatchWallet    Kind = "watchWallet"
	KindFeeConfig      Kind = "feeConfig"
	KindGenerateWallet Kind = "generateWallet"
	KindSetVariable    Kind = "setVariable"
	KindGetVariable    Kind = "getVariable"
	KindMathOp         Kind = "mathOp"
	KindSplitUTXO      Kind = "splitUTXO"
	KindShuffleOutputs Kind = "shuffleOutputs"
	KindJoinMixPool    Kind = "joinMixPool"
	KindAutoRemix      Kind = "autoRemix"
	KindBroadcast      Kind = "broadcast"
)

var vocabularies = map[Chain][]Kind{
	ChainAlgorand: {
		KindAccount, KindPayment, KindAssetCreate, KindAssetTransfer,
		KindAssetFreeze, KindKeyReg, KindSignTxn, KindSubmitTxn,
	},
	ChainBitcoinCash: {
		KindWallet, KindAccount, KindWatchWallet, KindFeeConfig, KindGenerateWallet,
		KindSetVariable, KindGetVariable, KindMathOp, KindSplitUTXO,
		KindShuffleOutputs, KindJoinMixPool, KindAutoRemix, KindPayment,
		KindBroadcast,
	},
}

// Kinds returns the node vocabulary of a chain.
func Kinds(c Chain) []Kind {
	return append([]Kind(nil), vocabularies[c]...)
}

// Supports reports whether kind belongs to the vocabulary of c.
func (c Chain) Supports(kind Kind) bool {
	for _, k := range vocabularies[c] {
		if k == kind {
			return true
		}
	}
	return false
}
