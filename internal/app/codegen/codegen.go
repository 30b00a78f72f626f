// Package codegen turns flow graphs into standalone JavaScript programs.
//
// Emission is a pure function of the graph and Options: the same input
// always yields byte-identical output. Nodes whose operands cannot be
// resolved from upstream nodes, or whose configuration is incomplete, are
// left out of the program without an error.
package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/schedule"
)

// ErrUnknownTarget is returned for targets other than the supported ones.
var ErrUnknownTarget = errors.New("unknown emit target")

// Targets.
const (
	TargetAlgorand    = "algorand"
	TargetBitcoinCash = "bitcoincash"
)

// Placeholders written when neither the node nor Options supply a secret.
const (
	PlaceholderMnemonic = "YOUR 25-WORD MNEMONIC"
	PlaceholderWIF      = "YOUR_WIF"
)

// AlgodNetwork is the node the generated Algorand program connects to.
type AlgodNetwork struct {
	Server string `json:"server"`
	Token  string `json:"token"`
	Port   string `json:"port"`
}

// DefaultAlgod is the public Algorand testnet endpoint.
var DefaultAlgod = AlgodNetwork{Server: "https://testnet-api.algonode.cloud"}

// Options controls emission.
type Options struct {
	// Target selects the output flavour. Empty derives it from the graph chain.
	Target string
	// Algod configures the client of Algorand programs.
	Algod AlgodNetwork
	// Testnet makes Bitcoin Cash programs use TestNetWallet.
	Testnet bool
	// DefaultMnemonic and DefaultWIF stand in for account nodes without
	// credentials, typically taken from the saved default wallet.
	DefaultMnemonic string
	DefaultWIF      string
}

// ResolveTarget returns the effective target for g.
func ResolveTarget(g *graph.Graph, target string) (string, error) {
	switch target {
	case TargetAlgorand, TargetBitcoinCash:
		return target, nil
	case "":
		if g != nil && g.Chain == graph.ChainBitcoinCash {
			return TargetBitcoinCash, nil
		}
		return TargetAlgorand, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}

// Emit renders g as a program for opts.Target.
func Emit(g *graph.Graph, opts Options) (string, error) {
	target, err := ResolveTarget(g, opts.Target)
	if err != nil {
		return "", err
	}
	if g == nil {
		g = &graph.Graph{}
	}
	if opts.Algod.Server == "" {
		opts.Algod = DefaultAlgod
	}
	res := schedule.OrderGraph(g)
	if target == TargetBitcoinCash {
		return emitBitcoinCash(g, res, opts)
	}
	return emitAlgorand(g, res, opts)
}

// walker holds what the per-target emitters share: schedule positions,
// incoming edges and the statements written so far.
type walker struct {
	g     *graph.Graph
	index map[string]int
	nodes map[string]*graph.Node
	stmts []string
	tmpl  *template.Template

	idents map[string]string // prefix + "\x00" + node id -> identifier
	taken  map[string]bool
}

func newWalker(g *graph.Graph, res schedule.Result, tmpl *template.Template) *walker {
	w := &walker{
		g:      g,
		index:  res.Index(),
		nodes:  make(map[string]*graph.Node, len(g.Nodes)),
		tmpl:   tmpl,
		idents: make(map[string]string),
		taken:  make(map[string]bool),
	}
	for _, n := range res.Ordered {
		w.nodes[n.ID] = n
	}
	return w
}

// firstUpstream returns the first incoming source, in edge order, that
// satisfies ok.
func (w *walker) firstUpstream(nodeID string, ok func(src *graph.Node) bool) (*graph.Node, bool) {
	for _, e := range w.g.Incoming(nodeID) {
		if src, found := w.nodes[e.Source]; found && ok(src) {
			return src, true
		}
	}
	return nil, false
}

// latestUpstream returns the incoming source placed last by the scheduler
// that satisfies ok.
func (w *walker) latestUpstream(nodeID string, ok func(src *graph.Node) bool) (*graph.Node, bool) {
	var best *graph.Node
	for _, e := range w.g.Incoming(nodeID) {
		src, found := w.nodes[e.Source]
		if !found || !ok(src) {
			continue
		}
		if best == nil || w.index[src.ID] > w.index[best.ID] {
			best = src
		}
	}
	return best, best != nil
}

// ident returns the identifier for (prefix, nodeID). Ids that sanitize to
// the same name get a numeric suffix in emission order.
func (w *walker) ident(prefix, nodeID string) string {
	key := prefix + "\x00" + nodeID
	if name, ok := w.idents[key]; ok {
		return name
	}
	base := Ident(prefix, nodeID)
	name := base
	for n := 2; w.taken[name]; n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	w.idents[key] = name
	w.taken[name] = true
	return name
}

// add renders the named statement template.
func (w *walker) add(name string, data interface{}) error {
	var buf bytes.Buffer
	if err := w.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.stmts = append(w.stmts, buf.String())
	return nil
}

func (w *walker) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := w.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Ident turns a node id into a JavaScript identifier with the given prefix.
// Every character outside [A-Za-z0-9] becomes '_'.
func Ident(prefix, id string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// jsString renders s as a double-quoted JavaScript string literal.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// U+2028 and U+2029 come out escaped as well.
	return strings.TrimSuffix(buf.String(), "\n")
}

// comment flattens s for use after "//".
func comment(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

var templateFuncs = template.FuncMap{
	"js":      jsString,
	"comment": comment,
}
