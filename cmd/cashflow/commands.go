package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/credential"
	walletadapter "github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/config"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/flowgraph"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

// newFlagSet returns a flag set that reports parse errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("cashflow "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parse maps flag errors to exit codes; help exits cleanly.
func parse(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	return false, nil
}

func readGraph(path string) (*graph.Graph, error) {
	if path == "" {
		return nil, &ExitError{Code: 2, Message: "-file is required"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	g, err := serialization.ImportGraph(data, serialization.FormatFromPath(path))
	if err != nil {
		return nil, &ExitError{Code: 1, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return g, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	log.SetLevel(cfg.App.LogLevel)
	return cfg, nil
}

func newRuntime(ctx context.Context) (*flowgraph.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt, err := flowgraph.NewRuntime(ctx, *cfg)
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	return rt, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orderCmd(stdout, stderr io.Writer, args []string) error {
	fs := newFlagSet("order", stderr)
	file := fs.String("file", "", "graph document")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	g, err := readGraph(*file)
	if err != nil {
		return err
	}

	res := flowgraph.Order(g)
	if *asJSON {
		return writeJSON(stdout, res)
	}
	for _, id := range res.Order {
		fmt.Fprintln(stdout, id)
	}
	if len(res.Excluded) > 0 {
		fmt.Fprintf(stdout, "excluded (cycle): %s\n", strings.Join(res.Excluded, ", "))
	}
	return nil
}

func validateCmd(stdout, stderr io.Writer, args []string) error {
	fs := newFlagSet("validate", stderr)
	file := fs.String("file", "", "graph document")
	cycles := fs.Bool("cycles", false, "reject graphs with cycles")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	g, err := readGraph(*file)
	if err != nil {
		return err
	}

	opts := validation.GraphValidationOptions{CheckCycles: *cycles, CheckVocabulary: true}
	if err := validation.ValidateCoreGraph(g, opts); err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("invalid graph: %v", err)}
	}
	fmt.Fprintf(stdout, "graph %s is valid: %d node(s), %d edge(s)\n", g.ID, len(g.Nodes), len(g.Edges))
	return nil
}

func emitCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := newFlagSet("emit", stderr)
	file := fs.String("file", "", "graph document")
	target := fs.String("target", "", "algorand or bitcoincash; derived from the graph chain when empty")
	network := fs.String("network", "", "mainnet or testnet; CASHFLOW_NETWORK when empty")
	out := fs.String("out", "", "write the program to this file instead of stdout")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	g, err := readGraph(*file)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.Emit(ctx, &dto.EmitRequest{Graph: g, Target: *target, Network: *network})
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	if *out == "" {
		_, err = io.WriteString(stdout, resp.Code)
		return err
	}
	if err := os.WriteFile(*out, []byte(resp.Code), 0o644); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	fmt.Fprintf(stderr, "wrote %s program to %s (%d bytes)\n", resp.Target, *out, len(resp.Code))
	return nil
}

func runCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := newFlagSet("run", stderr)
	file := fs.String("file", "", "graph document")
	order := fs.String("order", string(dto.OrderTopological), "topological or insertion")
	timeout := fs.Duration("timeout", 0, "abort the run after this long; 0 means no limit")
	asJSON := fs.Bool("json", false, "print the full run result as JSON")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	g, err := readGraph(*file)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.Run(ctx, &dto.RunRequest{
		Graph:  g,
		Order:  dto.OrderMode(*order),
		Config: dto.RunConfig{Timeout: *timeout, CheckVocabulary: true},
	})
	if err != nil {
		code := 1
		if errors.Is(err, dto.ErrInvalidRequest) {
			code = 2
		}
		return &ExitError{Code: code, Message: err.Error()}
	}

	if *asJSON {
		if err := writeJSON(stdout, resp); err != nil {
			return err
		}
	} else {
		for _, e := range resp.Log {
			fmt.Fprintln(stdout, e.String())
		}
		fmt.Fprintf(stderr, "run %s %s in %s\n", resp.RunID, resp.Status, resp.Duration.Round(time.Millisecond))
	}
	if resp.Status == dto.RunStatusFailed {
		return &ExitError{Code: 1, Message: "run failed: " + resp.Error}
	}
	return nil
}

func credentialCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := newFlagSet("credential", stderr)
	wif := fs.String("wif", "", "private key in WIF")
	mnemonic := fs.String("mnemonic", "", "BIP39 mnemonic")
	label := fs.String("label", "", "optional label")
	dir := fs.String("dir", "", "credential directory; CASHFLOW_CREDENTIAL_DIR when empty")
	if done, err := parse(fs, args); done || err != nil {
		return err
	}
	if (*wif == "") == (*mnemonic == "") {
		return &ExitError{Code: 2, Message: "exactly one of -wif or -mnemonic is required"}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.Wallet.CredentialDir
	}
	if *dir == "" {
		return &ExitError{Code: 2, Message: "-dir or CASHFLOW_CREDENTIAL_DIR is required"}
	}

	// derive the address so that bad keys are rejected before saving
	var opts []walletadapter.Option
	if cfg.Testnet() {
		opts = append(opts, walletadapter.WithTestnet())
	}
	p := walletadapter.NewProvider(walletadapter.NewLedger(walletadapter.LedgerConfig{}), opts...)
	var h wallet.Handle
	if *wif != "" {
		h, err = p.FromWIF(ctx, *wif)
	} else {
		h, err = p.FromMnemonic(ctx, *mnemonic)
	}
	if err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("invalid credential: %v", err)}
	}

	store := credential.NewFileStore(*dir)
	cred := wallet.Credential{WIF: *wif, Mnemonic: *mnemonic, Address: h.Address(), Label: *label}
	if err := store.Save(ctx, cred); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	fmt.Fprintf(stdout, "saved default wallet %s to %s\n", h.Address(), store.Path())
	return nil
}
