package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/credential"
	graphrepo "github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/repository/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/repository/memory"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/repository/postgres"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/repository/sqlite"
	walletadapter "github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/codegen"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/services"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/usecases"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/config"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	coregraph "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/schedule"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/infrastructure/metrics"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
)

// Re-export core graph types for convenience
type Graph = coregraph.Graph
type Node = coregraph.Node
type Edge = coregraph.Edge
type Kind = coregraph.Kind

// ErrUnknownNetwork is returned for emit networks other than mainnet and testnet.
var ErrUnknownNetwork = errors.New("unknown network")

// Option overrides a component picked from the configuration.
type Option func(*Runtime)

// WithProvider replaces the local ledger wallet provider.
func WithProvider(p wallet.Provider) Option {
	return func(rt *Runtime) { rt.provider = p }
}

// WithCredentials replaces the credential file store.
func WithCredentials(s wallet.CredentialStore) Option {
	return func(rt *Runtime) { rt.credentials = s }
}

// WithBackupExporter replaces the file backup exporter.
func WithBackupExporter(b services.BackupExporter) Option {
	return func(rt *Runtime) { rt.backup = b }
}

// WithSnapshotSaver replaces the saver chosen from Storage.SnapshotDSN.
func WithSnapshotSaver(s checkpoint.Saver) Option {
	return func(rt *Runtime) { rt.saver = s }
}

// WithRunObserver is called with every run log before its first line.
func WithRunObserver(fn func(runID string, l *runlog.Log)) Option {
	return func(rt *Runtime) { rt.onStart = fn }
}

// WithLogger sets the operator logger.
func WithLogger(l log.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// Runtime wires the scheduler, the emitters and a flow executor.
// PRINCIPLES:
// - KISS: one executor, one graph repository, one snapshot store
// - DIP: every collaborator can be replaced through an Option
type Runtime struct {
	cfg         config.Config
	provider    wallet.Provider
	credentials wallet.CredentialStore
	backup      services.BackupExporter
	saver       checkpoint.Saver
	onStart     func(runID string, l *runlog.Log)
	logger      log.Logger

	repo      usecases.GraphRepository
	snapshots *services.SnapshotService
	executor  *usecases.FlowExecutor
	closers   []func()
}

// NewRuntime builds a runtime from cfg. Without a wallet provider option,
// runs go against an in-process ledger that credits Wallet.FaucetSats to
// every new address.
func NewRuntime(ctx context.Context, cfg config.Config, opts ...Option) (*Runtime, error) {
	rt := &Runtime{cfg: cfg, logger: log.Default}
	for _, opt := range opts {
		opt(rt)
	}

	if rt.provider == nil {
		ledger := walletadapter.NewLedger(walletadapter.LedgerConfig{InitialBalance: cfg.Wallet.FaucetSats})
		var popts []walletadapter.Option
		if cfg.Testnet() {
			popts = append(popts, walletadapter.WithTestnet())
		}
		rt.provider = walletadapter.NewProvider(ledger, popts...)
	}
	if rt.credentials == nil && cfg.Wallet.CredentialDir != "" {
		rt.credentials = credential.NewFileStore(cfg.Wallet.CredentialDir)
	}
	if rt.backup == nil {
		key, err := serialization.ParseKey(cfg.Storage.BackupKey)
		if err != nil {
			return nil, fmt.Errorf("backup key: %w", err)
		}
		exp, err := services.NewFileBackupExporter(cfg.Storage.BackupDir, key)
		if err != nil {
			return nil, err
		}
		rt.backup = exp
	}
	if rt.saver == nil {
		saver, closeFn, err := OpenSnapshotSaver(ctx, cfg.Storage.SnapshotDSN)
		if err != nil {
			return nil, err
		}
		rt.saver = saver
		if closeFn != nil {
			rt.closers = append(rt.closers, closeFn)
		}
	}

	rt.repo = graphrepo.NewInMemoryGraphRepository()
	rt.snapshots = services.NewSnapshotService(rt.saver)
	rt.executor = usecases.NewFlowExecutor(usecases.ExecutorConfig{
		Provider:       rt.provider,
		Credentials:    rt.credentials,
		Backup:         rt.backup,
		Snapshots:      rt.snapshots,
		Delay:          cfg.App.SimDelay,
		NetworkTimeout: cfg.App.NetworkTimeout,
		OnStart:        rt.onStart,
		Logger:         rt.logger,
	})
	return rt, nil
}

// OpenSnapshotSaver picks a store from dsn: empty means in memory,
// postgres:// or postgresql:// URLs use PostgreSQL, anything else is a
// SQLite path with an optional sqlite: prefix.
func OpenSnapshotSaver(ctx context.Context, dsn string) (checkpoint.Saver, func(), error) {
	switch {
	case dsn == "":
		return memory.NewSnapshotSaver(memory.Config{}), nil, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	s, err := sqlite.Open(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// Close releases the snapshot store.
func (rt *Runtime) Close() {
	for _, fn := range rt.closers {
		fn()
	}
	rt.closers = nil
}

// Config returns the configuration the runtime was built from.
func (rt *Runtime) Config() config.Config { return rt.cfg }

// SaveGraph persists a graph to the runtime repository.
func (rt *Runtime) SaveGraph(ctx context.Context, g *Graph) error {
	return rt.repo.Save(ctx, g)
}

// Graph returns a stored graph.
func (rt *Runtime) Graph(ctx context.Context, id string) (*Graph, error) {
	return rt.repo.Get(ctx, id)
}

// Graphs lists stored graphs by id.
func (rt *Runtime) Graphs(ctx context.Context) ([]*Graph, error) {
	return rt.repo.List(ctx)
}

// Order runs the scheduler over g.
func (rt *Runtime) Order(g *Graph) dto.OrderResponse {
	return Order(g)
}

// Order runs the scheduler over g without a runtime.
func Order(g *Graph) dto.OrderResponse {
	res := schedule.OrderGraph(g)
	excluded := res.Excluded
	if excluded == nil {
		excluded = []string{}
	}
	return dto.OrderResponse{Order: res.IDs(), Excluded: excluded}
}

// Emit generates source code for req.Graph. Bitcoin Cash wallets without
// credentials fall back to the saved default wallet.
func (rt *Runtime) Emit(ctx context.Context, req *dto.EmitRequest) (*dto.EmitResponse, error) {
	if req == nil || req.Graph == nil {
		return nil, dto.ErrMissingGraph
	}
	target, err := codegen.ResolveTarget(req.Graph, req.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidTarget, err)
	}
	opts := codegen.Options{
		Target: target,
		Algod: codegen.AlgodNetwork{
			Server: rt.cfg.Algod.Server,
			Token:  rt.cfg.Algod.Token,
			Port:   rt.cfg.Algod.Port,
		},
		Testnet: rt.cfg.Testnet(),
	}
	switch req.Network {
	case "":
	case "testnet":
		opts.Testnet = true
	case "mainnet":
		opts.Testnet = false
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, req.Network)
	}
	if target == codegen.TargetBitcoinCash && rt.credentials != nil {
		cred, ok, err := rt.credentials.Default(ctx)
		if err != nil {
			return nil, fmt.Errorf("read default credential: %w", err)
		}
		if ok {
			opts.DefaultWIF, opts.DefaultMnemonic = cred.WIF, cred.Mnemonic
		}
	}

	code, err := codegen.Emit(req.Graph, opts)
	if err != nil {
		return nil, err
	}
	metrics.CodeEmitted(target)
	rt.logger.Debugf("emitted %s program for graph %s (%d bytes)", target, req.Graph.ID, len(code))
	return &dto.EmitResponse{Target: target, Code: code, Order: schedule.OrderGraph(req.Graph).IDs()}, nil
}

// Run executes req on the runtime executor.
func (rt *Runtime) Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error) {
	return rt.executor.Run(ctx, req)
}

// RunGraph runs a stored graph with default settings.
func (rt *Runtime) RunGraph(ctx context.Context, graphID string) (*dto.RunResponse, error) {
	g, err := rt.repo.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return rt.executor.Run(ctx, &dto.RunRequest{Graph: g})
}

// Phase reports the executor phase.
func (rt *Runtime) Phase() usecases.Phase {
	return rt.executor.Phase()
}

// Snapshots returns the snapshots recorded for runID, oldest first.
func (rt *Runtime) Snapshots(ctx context.Context, runID string) ([]*checkpoint.Snapshot, error) {
	return rt.snapshots.History(ctx, runID)
}
