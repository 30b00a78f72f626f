package codegen

import (
	"math"
	"text/template"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/schedule"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/steps"
)

// MicroAlgosPerAlgo scales payment amounts to the base unit.
const MicroAlgosPerAlgo = 1_000_000

// MicroAlgos converts an ALGO amount, rounding to the nearest microAlgo.
func MicroAlgos(algo float64) int64 {
	return int64(math.Round(algo * MicroAlgosPerAlgo))
}

const algorandTemplates = `
{{- define "program" -}}
// Generated by cashflow from flow {{js .Name}}.
const algosdk = require("algosdk");

const algodToken = {{js .Algod.Token}};
const algodServer = {{js .Algod.Server}};
const algodPort = {{js .Algod.Port}};
const algodClient = new algosdk.Algodv2(algodToken, algodServer, algodPort);
{{range .Accounts}}
// account {{comment .Node}}
const {{.Ident}} = algosdk.mnemonicToSecretKey({{js .Mnemonic}});
{{end}}
async function main() {
  try {
{{range .Statements}}{{.}}{{end}}  } catch (err) {
    console.error("Flow failed:", err);
    throw err;
  }
}

main().catch(() => process.exit(1));
{{end}}

{{- define "payment"}}    // payment {{comment .Node}}
    const {{.Txn}} = algosdk.makePaymentTxnWithSuggestedParamsFromObject({
      from: {{.Account}}.addr,
      to: {{js .Step.Receiver}},
      amount: {{.MicroAlgos}},
{{- if .Step.Note}}
      note: new TextEncoder().encode({{js .Step.Note}}),
{{- end}}
      suggestedParams: await algodClient.getTransactionParams().do(),
    });
{{end}}

{{- define "assetCreate"}}    // asset creation {{comment .Node}}
    const {{.Txn}} = algosdk.makeAssetCreateTxnWithSuggestedParamsFromObject({
      from: {{.Account}}.addr,
      assetName: {{js .Step.AssetName}},
      unitName: {{js .Step.UnitName}},
      total: {{.Step.Total}},
      decimals: {{.Step.Decimals}},
      defaultFrozen: {{.Step.DefaultFrozen}},
{{- if .Step.URL}}
      assetURL: {{js .Step.URL}},
{{- end}}
      manager: {{.Account}}.addr,
      reserve: {{.Account}}.addr,
      freeze: {{.Account}}.addr,
      clawback: {{.Account}}.addr,
      suggestedParams: await algodClient.getTransactionParams().do(),
    });
{{end}}

{{- define "assetTransfer"}}    // asset transfer {{comment .Node}}
    const {{.Txn}} = algosdk.makeAssetTransferTxnWithSuggestedParamsFromObject({
      from: {{.Account}}.addr,
      to: {{js .Step.Receiver}},
      assetIndex: {{.Step.AssetID}},
      amount: {{.Step.Amount}},
      suggestedParams: await algodClient.getTransactionParams().do(),
    });
{{end}}

{{- define "assetFreeze"}}    // asset freeze {{comment .Node}}
    const {{.Txn}} = algosdk.makeAssetFreezeTxnWithSuggestedParamsFromObject({
      from: {{.Account}}.addr,
      assetIndex: {{.Step.AssetID}},
      freezeTarget: {{js .Step.Target}},
      freezeState: {{.Step.Frozen}},
      suggestedParams: await algodClient.getTransactionParams().do(),
    });
{{end}}

{{- define "keyReg"}}    // key registration {{comment .Node}}
    const {{.Txn}} = algosdk.makeKeyRegistrationTxnWithSuggestedParamsFromObject({
      from: {{.Account}}.addr,
{{- if .Step.VoteKey}}
      voteKey: {{js .Step.VoteKey}},
      selectionKey: {{js .Step.SelectionKey}},
{{- if .Step.StateProofKey}}
      stateProofKey: {{js .Step.StateProofKey}},
{{- end}}
      voteFirst: {{.Step.VoteFirst}},
      voteLast: {{.Step.VoteLast}},
      voteKeyDilution: {{.Step.KeyDilution}},
{{- end}}
      suggestedParams: await algodClient.getTransactionParams().do(),
    });
{{end}}

{{- define "sign"}}    // sign {{comment .Node}}
    const {{.Signed}} = {{.Txn}}.signTxn({{.Account}}.sk);
{{end}}

{{- define "submit"}}    // submit {{comment .Node}}
    const { txId: {{.TxID}} } = await algodClient.sendRawTransaction({{.Signed}}).do();
    const {{.Result}} = await algosdk.waitForConfirmation(algodClient, {{.TxID}}, {{.Step.WaitRounds}});
    console.log("Transaction", {{.TxID}}, "confirmed in round", {{.Result}}["confirmed-round"]);
{{end}}
`

var algorandTmpl = template.Must(template.New("algorand").Funcs(templateFuncs).Parse(algorandTemplates))

type algoAccount struct {
	Node     string
	Ident    string
	Mnemonic string
}

// algoStmt is the data of one statement template.
type algoStmt struct {
	Node       string
	Step       steps.AlgorandStep
	Account    string
	Txn        string
	Signed     string
	TxID       string
	Result     string
	MicroAlgos int64
}

type algoProgram struct {
	Name       string
	Algod      AlgodNetwork
	Accounts   []algoAccount
	Statements []string
}

// algoEmitted records what an emitted node produced.
type algoEmitted struct {
	account string // account identifier the transaction is from
	txn     string
	signed  string
}

// algorandEmitter implements steps.AlgorandVisitor.
type algorandEmitter struct {
	*walker
	opts    Options
	emitted map[string]algoEmitted
	prog    algoProgram
}

func emitAlgorand(g *graph.Graph, res schedule.Result, opts Options) (string, error) {
	em := &algorandEmitter{
		walker:  newWalker(g, res, algorandTmpl),
		opts:    opts,
		emitted: make(map[string]algoEmitted),
		prog:    algoProgram{Name: g.Name, Algod: opts.Algod},
	}
	if em.prog.Name == "" {
		em.prog.Name = g.ID
	}
	for _, n := range res.Ordered {
		if err := steps.DecodeAlgorand(n).AcceptAlgorand(em); err != nil {
			return "", err
		}
	}
	em.prog.Statements = em.stmts
	return em.render("program", em.prog)
}

func (em *algorandEmitter) isAccount(n *graph.Node) bool {
	return n.Kind == graph.KindAccount && em.emitted[n.ID].account != ""
}

// source returns the account identifier feeding nodeID.
func (em *algorandEmitter) source(nodeID string) (string, bool) {
	src, ok := em.firstUpstream(nodeID, em.isAccount)
	if !ok {
		return "", false
	}
	return em.emitted[src.ID].account, true
}

// txn emits an unsigned-transaction template for a node with an account.
func (em *algorandEmitter) txn(name string, s steps.AlgorandStep, micro int64) error {
	acct, ok := em.source(s.NodeID())
	if !ok {
		return nil
	}
	data := algoStmt{
		Node:       s.NodeID(),
		Step:       s,
		Account:    acct,
		Txn:        em.ident("txn", s.NodeID()),
		MicroAlgos: micro,
	}
	if err := em.add(name, data); err != nil {
		return err
	}
	em.emitted[s.NodeID()] = algoEmitted{account: acct, txn: data.Txn}
	return nil
}

func (em *algorandEmitter) VisitAccount(s *steps.Account) error {
	mnemonic := s.Mnemonic
	if mnemonic == "" {
		mnemonic = em.opts.DefaultMnemonic
	}
	if mnemonic == "" {
		mnemonic = PlaceholderMnemonic
	}
	ident := em.ident("account", s.NodeID())
	em.prog.Accounts = append(em.prog.Accounts, algoAccount{Node: s.NodeID(), Ident: ident, Mnemonic: mnemonic})
	em.emitted[s.NodeID()] = algoEmitted{account: ident}
	return nil
}

func (em *algorandEmitter) VisitAlgoPayment(s *steps.AlgoPayment) error {
	return em.txn("payment", s, MicroAlgos(s.Amount))
}

func (em *algorandEmitter) VisitAssetCreate(s *steps.AssetCreate) error {
	return em.txn("assetCreate", s, 0)
}

func (em *algorandEmitter) VisitAssetTransfer(s *steps.AssetTransfer) error {
	return em.txn("assetTransfer", s, 0)
}

func (em *algorandEmitter) VisitAssetFreeze(s *steps.AssetFreeze) error {
	return em.txn("assetFreeze", s, 0)
}

func (em *algorandEmitter) VisitKeyReg(s *steps.KeyReg) error {
	return em.txn("keyReg", s, 0)
}

func (em *algorandEmitter) VisitSignTxn(s *steps.SignTxn) error {
	src, ok := em.latestUpstream(s.NodeID(), func(n *graph.Node) bool {
		return steps.IsUnsignedTxn(n.Kind) && em.emitted[n.ID].txn != ""
	})
	if !ok {
		return nil
	}
	up := em.emitted[src.ID]
	data := algoStmt{Node: s.NodeID(), Step: s, Account: up.account, Txn: up.txn, Signed: em.ident("signed", s.NodeID())}
	if err := em.add("sign", data); err != nil {
		return err
	}
	em.emitted[s.NodeID()] = algoEmitted{account: up.account, signed: data.Signed}
	return nil
}

func (em *algorandEmitter) VisitSubmitTxn(s *steps.SubmitTxn) error {
	src, ok := em.latestUpstream(s.NodeID(), func(n *graph.Node) bool {
		return n.Kind == graph.KindSignTxn && em.emitted[n.ID].signed != ""
	})
	if !ok {
		return nil
	}
	data := algoStmt{
		Node:   s.NodeID(),
		Step:   s,
		Signed: em.emitted[src.ID].signed,
		TxID:   em.ident("txid", s.NodeID()),
		Result: em.ident("confirmed", s.NodeID()),
	}
	return em.add("submit", data)
}

// VisitUnsupported skips kinds with no Algorand template.
func (em *algorandEmitter) VisitUnsupported(*steps.Unsupported) error { return nil }
