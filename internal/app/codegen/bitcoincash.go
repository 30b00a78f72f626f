package codegen

import (
	"strconv"
	"text/template"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/schedule"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/steps"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

const bitcoinCashTemplates = `
{{- define "program" -}}
// Generated by cashflow from flow {{js .Name}}.
const { {{.WalletClass}} } = require("mainnet-js");

async function main() {
  let feeRate = 1;
  const vars = {};
  try {
{{range .Statements}}{{.}}{{end}}  } catch (err) {
    console.error("Flow failed:", err);
    throw err;
  }
}

main().catch(() => process.exit(1));
{{end}}

{{- define "walletFromWIF"}}    // wallet {{comment .Node}}
    const {{.Wallet}} = await {{.Class}}.fromWIF({{js .Secret}});
{{end}}

{{- define "walletFromSeed"}}    // wallet {{comment .Node}}
    const {{.Wallet}} = await {{.Class}}.fromSeed({{js .Secret}});
{{end}}

{{- define "walletRandom"}}    // wallet {{comment .Node}}: no credentials, back up the generated keys
    const {{.Wallet}} = await {{.Class}}.newRandom();
    console.warn("Back up wallet", {{.Wallet}}.cashaddr, {{.Wallet}}.privateKeyWif, {{.Wallet}}.mnemonic);
{{end}}

{{- define "watchWallet"}}    // watch-only wallet {{comment .Node}}
    const {{.Wallet}} = await {{.Class}}.watchOnly({{js .Address}});
{{end}}

{{- define "feeConfig"}}    // fee configuration {{comment .Node}}
    feeRate = {{.Number}};
{{end}}

{{- define "setVariable"}}    vars[{{js .Name}}] = {{.Literal}};
{{end}}

{{- define "getVariable"}}    console.log({{js .Name}}, "=", vars[{{js .Name}}]);
{{end}}

{{- define "mathOp"}}    vars[{{js .Target}}] = vars[{{js .Name}}] {{.Symbol}} {{.Number}};
{{end}}

{{- define "payment"}}    // payment {{comment .Node}}
    const {{.Txn}} = await {{.Wallet}}.send([{ cashaddr: {{js .Address}}, value: {{.Number}}, unit: {{js .Unit}} }]);
    console.log("Sent", {{.Txn}}.txId, "at fee rate", feeRate);
{{end}}

{{- define "split"}}    // split {{comment .Node}}
    const {{.Txn}} = await {{.Wallet}}.send(
      Array.from({ length: {{.Count}} }, () => ({ cashaddr: {{.Wallet}}.cashaddr, value: {{.Number}}, unit: {{js .Unit}} }))
    );
    console.log("Split into {{.Count}} outputs", {{.Txn}}.txId);
{{end}}

{{- define "offline"}}    // {{comment .Kind}} {{comment .Node}} runs only in the flow executor
{{end}}

{{- define "broadcast"}}    // broadcast {{comment .Node}}: the sends above are already broadcast
{{end}}
`

var bitcoinCashTmpl = template.Must(template.New("bitcoincash").Funcs(templateFuncs).Parse(bitcoinCashTemplates))

type bchStmt struct {
	Node    string
	Kind    string
	Class   string
	Wallet  string
	Secret  string
	Address string
	Txn     string
	Name    string
	Target  string
	Symbol  string
	Literal string
	Number  string
	Unit    string
	Count   int64
}

type bchProgram struct {
	Name        string
	WalletClass string
	Statements  []string
}

// bitcoinCashEmitter implements steps.UTXOVisitor for mainnet-js programs.
type bitcoinCashEmitter struct {
	*walker
	opts    Options
	class   string
	wallets map[string]string // node id -> wallet identifier
}

func emitBitcoinCash(g *graph.Graph, res schedule.Result, opts Options) (string, error) {
	em := &bitcoinCashEmitter{
		walker:  newWalker(g, res, bitcoinCashTmpl),
		opts:    opts,
		class:   "Wallet",
		wallets: make(map[string]string),
	}
	if opts.Testnet {
		em.class = "TestNetWallet"
	}
	for _, n := range res.Ordered {
		step := steps.DecodeUTXO(n)
		// incomplete nodes are left out
		if validation.Struct(step) != nil {
			continue
		}
		if err := step.AcceptUTXO(em); err != nil {
			return "", err
		}
	}
	name := g.Name
	if name == "" {
		name = g.ID
	}
	return em.render("program", bchProgram{Name: name, WalletClass: em.class, Statements: em.stmts})
}

func (em *bitcoinCashEmitter) stmt(n steps.Step) bchStmt {
	return bchStmt{Node: n.NodeID(), Kind: string(n.Kind()), Class: em.class}
}

// spender is the first spending wallet feeding nodeID.
func (em *bitcoinCashEmitter) spender(nodeID string) (string, bool) {
	src, ok := em.firstUpstream(nodeID, func(n *graph.Node) bool {
		return n.Kind != graph.KindWatchWallet && em.wallets[n.ID] != ""
	})
	if !ok {
		return "", false
	}
	return em.wallets[src.ID], true
}

func (em *bitcoinCashEmitter) declare(s steps.Step, tmpl string, data bchStmt) error {
	data.Wallet = em.ident("wallet", s.NodeID())
	if err := em.add(tmpl, data); err != nil {
		return err
	}
	em.wallets[s.NodeID()] = data.Wallet
	return nil
}

func (em *bitcoinCashEmitter) VisitWallet(s *steps.Wallet) error {
	data := em.stmt(s)
	switch {
	case s.WIF != "":
		data.Secret = s.WIF
		return em.declare(s, "walletFromWIF", data)
	case s.Mnemonic != "":
		data.Secret = s.Mnemonic
		return em.declare(s, "walletFromSeed", data)
	case em.opts.DefaultWIF != "":
		data.Secret = em.opts.DefaultWIF
		return em.declare(s, "walletFromWIF", data)
	case em.opts.DefaultMnemonic != "":
		data.Secret = em.opts.DefaultMnemonic
		return em.declare(s, "walletFromSeed", data)
	}
	return em.declare(s, "walletRandom", data)
}

func (em *bitcoinCashEmitter) VisitWatchWallet(s *steps.WatchWallet) error {
	data := em.stmt(s)
	data.Address = s.Address
	return em.declare(s, "watchWallet", data)
}

func (em *bitcoinCashEmitter) VisitGenerateWallet(s *steps.GenerateWallet) error {
	return em.declare(s, "walletRandom", em.stmt(s))
}

func (em *bitcoinCashEmitter) VisitFeeConfig(s *steps.FeeConfig) error {
	data := em.stmt(s)
	data.Number = formatFloat(s.FeeRate)
	return em.add("feeConfig", data)
}

func (em *bitcoinCashEmitter) VisitSetVariable(s *steps.SetVariable) error {
	data := em.stmt(s)
	data.Name = s.Var
	switch v := s.Value.(type) {
	case float64:
		data.Literal = formatFloat(v)
	case string:
		data.Literal = jsString(v)
	default:
		return nil
	}
	return em.add("setVariable", data)
}

func (em *bitcoinCashEmitter) VisitGetVariable(s *steps.GetVariable) error {
	data := em.stmt(s)
	data.Name = s.Var
	return em.add("getVariable", data)
}

var mathSymbols = map[string]string{"add": "+", "sub": "-", "mul": "*", "div": "/"}

func (em *bitcoinCashEmitter) VisitMathOp(s *steps.MathOp) error {
	data := em.stmt(s)
	data.Name = s.Variable
	data.Target = s.Destination()
	data.Symbol = mathSymbols[s.Operation]
	data.Number = formatFloat(*s.Operand)
	return em.add("mathOp", data)
}

func (em *bitcoinCashEmitter) VisitSplitUTXO(s *steps.SplitUTXO) error {
	w, ok := em.spender(s.NodeID())
	if !ok {
		return nil
	}
	data := em.stmt(s)
	data.Wallet = w
	data.Txn = em.ident("tx", s.NodeID())
	data.Count = s.Count
	data.Number = formatFloat(s.Amount)
	data.Unit = s.Unit
	return em.add("split", data)
}

func (em *bitcoinCashEmitter) VisitShuffleOutputs(s *steps.ShuffleOutputs) error {
	return em.add("offline", em.stmt(s))
}

func (em *bitcoinCashEmitter) VisitJoinMixPool(s *steps.JoinMixPool) error {
	return em.add("offline", em.stmt(s))
}

func (em *bitcoinCashEmitter) VisitAutoRemix(s *steps.AutoRemix) error {
	return em.add("offline", em.stmt(s))
}

func (em *bitcoinCashEmitter) VisitPayment(s *steps.Payment) error {
	w, ok := em.spender(s.NodeID())
	if !ok {
		return nil
	}
	data := em.stmt(s)
	data.Wallet = w
	data.Txn = em.ident("tx", s.NodeID())
	data.Address = s.Receiver
	data.Number = formatFloat(s.Amount)
	data.Unit = s.Unit
	return em.add("payment", data)
}

func (em *bitcoinCashEmitter) VisitBroadcast(s *steps.Broadcast) error {
	return em.add("broadcast", em.stmt(s))
}

func (em *bitcoinCashEmitter) VisitUnsupported(*steps.Unsupported) error { return nil }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
