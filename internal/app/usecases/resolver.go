package usecases

import (
	"context"
	"fmt"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/steps"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/infrastructure/metrics"
)

// resolver turns wallet nodes into handles. Precedence: explicit WIF,
// explicit mnemonic, stored default credential, freshly generated wallet.
type resolver struct {
	e  *FlowExecutor
	rc *RunContext

	loadedDefault bool
	def           wallet.Credential
	hasDefault    bool
}

// resolveWallets resolves every wallet node in nodes. Any error is fatal.
func (e *FlowExecutor) resolveWallets(ctx context.Context, rc *RunContext, nodes []*graph.Node) error {
	r := &resolver{e: e, rc: rc}
	for _, n := range nodes {
		if !steps.IsWallet(n.Kind) {
			continue
		}
		step := steps.DecodeUTXO(n).(*steps.Wallet)
		h, err := r.resolve(ctx, step)
		if err != nil {
			return fmt.Errorf("%s: %w", n.DisplayName(), err)
		}
		rc.setWallet(n.ID, h)
		e.logBalance(ctx, rc, h)
	}
	return nil
}

func (r *resolver) resolve(ctx context.Context, s *steps.Wallet) (wallet.Handle, error) {
	p := r.e.cfg.Provider
	name := s.Name()
	cctx, cancel := r.e.callCtx(ctx)
	defer cancel()

	switch {
	case s.WIF != "":
		h, err := p.FromWIF(cctx, s.WIF)
		if err != nil {
			return nil, err
		}
		r.rc.Log.Appendf(runlog.TagInfo, "Wallet %s loaded from WIF: %s", name, h.Address())
		return h, nil
	case s.Mnemonic != "":
		h, err := p.FromMnemonic(cctx, s.Mnemonic)
		if err != nil {
			return nil, err
		}
		r.rc.Log.Appendf(runlog.TagInfo, "Wallet %s restored from mnemonic: %s", name, h.Address())
		return h, nil
	}

	cred, ok, err := r.defaultCredential(cctx)
	if err != nil {
		return nil, fmt.Errorf("read default credential: %w", err)
	}
	if ok {
		var h wallet.Handle
		if cred.WIF != "" {
			h, err = p.FromWIF(cctx, cred.WIF)
		} else {
			h, err = p.FromMnemonic(cctx, cred.Mnemonic)
		}
		if err != nil {
			return nil, fmt.Errorf("default credential: %w", err)
		}
		r.rc.Log.Appendf(runlog.TagInfo, "Wallet %s using the saved default wallet: %s", name, h.Address())
		return h, nil
	}

	r.rc.Log.Appendf(runlog.TagWarn, "Wallet %s has no credentials and no default wallet is saved; generating one", name)
	h, secret, err := p.CreateRandom(cctx)
	if err != nil {
		return nil, fmt.Errorf("generate wallet: %w", err)
	}
	r.rc.queueBackup(name, secret)
	metrics.WalletGenerated()
	r.rc.Log.Appendf(runlog.TagGen, "Generated ephemeral wallet %s for %s (keys will be backed up)", h.Address(), name)
	return h, nil
}

// defaultCredential reads the store once per run.
func (r *resolver) defaultCredential(ctx context.Context) (wallet.Credential, bool, error) {
	if r.loadedDefault {
		return r.def, r.hasDefault, nil
	}
	store := r.e.cfg.Credentials
	if store == nil {
		r.loadedDefault = true
		return wallet.Credential{}, false, nil
	}
	cred, ok, err := store.Default(ctx)
	if err != nil {
		return wallet.Credential{}, false, err
	}
	r.loadedDefault = true
	r.def, r.hasDefault = cred, ok && !cred.Empty()
	return r.def, r.hasDefault, nil
}

// logBalance fetches and logs a balance. Failures only warn.
func (e *FlowExecutor) logBalance(ctx context.Context, rc *RunContext, h wallet.Handle) {
	cctx, cancel := e.callCtx(ctx)
	defer cancel()
	b, err := h.Balance(cctx)
	if err != nil {
		rc.Log.Appendf(runlog.TagWarn, "Could not fetch balance of %s: %v", h.Address(), err)
		return
	}
	rc.Log.Appendf(runlog.TagInfo, "Balance of %s: %s BCH (%d sat)", h.Address(), formatBCH(b.BCH), b.Sat)
}
