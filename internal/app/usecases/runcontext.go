package usecases

import (
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/mixing"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/steps"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/vars"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

// RunContext is the mutable state of one run. It is created at run start,
// handed to every node handler and dropped when the run ends.
type RunContext struct {
	RunID   string
	Graph   *graph.Graph
	Log     *runlog.Log
	Vars    *vars.Store
	FeeRate float64

	phase     Phase
	wallets   map[string]wallet.Handle
	resolved  []string // wallet node ids in resolution order
	generated []dto.BackupWallet
	sent      []string // transaction ids
	failed    []string
	mixer     *mixing.Client
	closeMix  func() error
	steps     []dto.StepResult
}

func newRunContext(runID string, g *graph.Graph) *RunContext {
	return &RunContext{
		RunID:   runID,
		Graph:   g,
		Log:     runlog.New(),
		Vars:    vars.New(),
		FeeRate: steps.DefaultFeeRate,
		phase:   PhaseInitializing,
		wallets: make(map[string]wallet.Handle),
	}
}

// Wallet returns the handle cached for a node.
func (rc *RunContext) Wallet(nodeID string) (wallet.Handle, bool) {
	h, ok := rc.wallets[nodeID]
	return h, ok
}

func (rc *RunContext) setWallet(nodeID string, h wallet.Handle) {
	if _, ok := rc.wallets[nodeID]; !ok {
		rc.resolved = append(rc.resolved, nodeID)
	}
	rc.wallets[nodeID] = h
}

// DefaultWallet is the first spending handle resolved in this run.
func (rc *RunContext) DefaultWallet() wallet.Handle {
	for _, id := range rc.resolved {
		if h := rc.wallets[id]; !h.WatchOnly() {
			return h
		}
	}
	return nil
}

// DrivingWallet picks the wallet a node spends from: the first incoming
// edge whose source has a handle, else the default wallet.
func (rc *RunContext) DrivingWallet(nodeID string) wallet.Handle {
	for _, e := range rc.Graph.Incoming(nodeID) {
		if h, ok := rc.wallets[e.Source]; ok {
			return h
		}
	}
	return rc.DefaultWallet()
}

func (rc *RunContext) queueBackup(label string, s wallet.Secret) {
	rc.generated = append(rc.generated, dto.BackupWallet{
		Address:  s.Address,
		WIF:      s.WIF,
		Mnemonic: s.Mnemonic,
		Label:    label,
	})
}

// Generated returns the wallets queued for backup.
func (rc *RunContext) Generated() []dto.BackupWallet {
	return append([]dto.BackupWallet(nil), rc.generated...)
}

// mixerFor returns the run's mixing client, starting a coordinator session on
// first use.
func (rc *RunContext) mixerFor(newCoord func() (mixing.Coordinator, func() error)) *mixing.Client {
	if rc.mixer == nil {
		coord, closeFn := newCoord()
		rc.mixer = mixing.NewClient(rc.RunID, coord)
		rc.closeMix = closeFn
	}
	return rc.mixer
}

func (rc *RunContext) close() {
	if rc.closeMix != nil {
		_ = rc.closeMix()
		rc.closeMix = nil
	}
}

// State captures the serializable scratch state.
func (rc *RunContext) State() checkpoint.State {
	ws := make(map[string]string, len(rc.wallets))
	for id, h := range rc.wallets {
		ws[id] = h.Address()
	}
	return checkpoint.State{
		Phase:     string(rc.phase),
		FeeRate:   rc.FeeRate,
		Variables: rc.Vars.Snapshot(),
		Wallets:   ws,
		Failed:    append([]string(nil), rc.failed...),
	}
}
