package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/services"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/mixing"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/schedule"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/infrastructure/metrics"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

// Phase of the executor.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseExecuting    Phase = "executing"
	PhaseFinalizing   Phase = "finalizing"
)

// ExecutorConfig wires a FlowExecutor. Only Provider is required.
type ExecutorConfig struct {
	Provider    wallet.Provider
	Credentials wallet.CredentialStore
	Backup      services.BackupExporter
	Snapshots   SnapshotManager
	// Coordinator serves mixing nodes. When nil every run that needs one
	// gets its own simulated coordinator.
	Coordinator mixing.Coordinator
	// Delay is the simulated network delay for broadcast and the default
	// coordinator.
	Delay time.Duration
	// NetworkTimeout bounds every wallet call; zero disables it.
	NetworkTimeout time.Duration
	// OnStart is called with the fresh run log before the first line is
	// written, so callers can Subscribe to it.
	OnStart func(runID string, l *runlog.Log)
	Logger  log.Logger
}

// FlowExecutor runs flow graphs against a wallet provider
// PRINCIPLES:
// - KISS: strictly sequential, one node at a time
// - SRP: orchestration only, node semantics live in nodeProcessor
// - One run per executor; concurrent Run calls are rejected
type FlowExecutor struct {
	cfg     ExecutorConfig
	logger  log.Logger
	running atomic.Bool

	mu    sync.RWMutex
	phase Phase
}

// NewFlowExecutor creates a new flow executor with dependencies
func NewFlowExecutor(cfg ExecutorConfig) *FlowExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default
	}
	return &FlowExecutor{cfg: cfg, logger: logger, phase: PhaseIdle}
}

// Phase returns the current phase.
func (e *FlowExecutor) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

func (e *FlowExecutor) setPhase(rc *RunContext, p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	if rc != nil {
		rc.phase = p
	}
}

// Run executes the graph in req. The returned error is non-nil only when the
// request is invalid or another run is in flight; all other outcomes are in
// the response log and status.
func (e *FlowExecutor) Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error) {
	if req == nil {
		return nil, dto.ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts := validation.GraphValidationOptions{CheckVocabulary: req.Config.CheckVocabulary}
	if err := validation.ValidateCoreGraph(req.Graph, opts); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidRequest, err)
	}
	if e.cfg.Provider == nil {
		return nil, fmt.Errorf("%w: no wallet provider configured", dto.ErrInvalidRequest)
	}

	if !e.running.CompareAndSwap(false, true) {
		metrics.RunRejected()
		return nil, dto.ErrRunInProgress
	}
	defer e.running.Store(false)
	metrics.RunStarted()

	if req.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Config.Timeout)
		defer cancel()
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	rc := newRunContext(runID, req.Graph)
	defer rc.close()
	if e.cfg.OnStart != nil {
		e.cfg.OnStart(runID, rc.Log)
	}

	resp := &dto.RunResponse{
		RunID:     runID,
		GraphID:   req.Graph.ID,
		Status:    dto.RunStatusRunning,
		StartTime: time.Now(),
	}
	e.logger.Infow("run started", "run", runID, "graph", req.Graph.ID, "nodes", len(req.Graph.Nodes))

	runErr := e.execute(ctx, rc, req, resp)
	if runErr != nil {
		rc.Log.Appendf(runlog.TagCriticalError, "%v", runErr)
		resp.Error = runErr.Error()
	}

	e.finalize(ctx, rc, resp, runErr)

	resp.EndTime = time.Now()
	resp.Duration = resp.EndTime.Sub(resp.StartTime)
	resp.Log = rc.Log.Entries()
	resp.Steps = rc.steps
	resp.Variables = rc.Vars.Snapshot()
	resp.FeeRate = rc.FeeRate
	if runErr != nil {
		resp.Status = dto.RunStatusFailed
	} else {
		resp.Status = dto.RunStatusCompleted
	}
	rc.Log.Close()

	e.setPhase(nil, PhaseIdle)
	metrics.RunFinished(string(resp.Status))
	e.logger.Infow("run finished", "run", runID, "status", resp.Status, "duration", resp.Duration)
	return resp, nil
}

// execute runs the initializing and executing phases. A non-nil error is
// fatal.
func (e *FlowExecutor) execute(ctx context.Context, rc *RunContext, req *dto.RunRequest, resp *dto.RunResponse) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("run panicked", "run", rc.RunID, "panic", r)
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	e.setPhase(rc, PhaseInitializing)
	nodes := req.Graph.Nodes
	if req.Order == dto.OrderTopological {
		res := schedule.OrderGraph(req.Graph)
		nodes = res.Ordered
		resp.Excluded = res.Excluded
	}
	rc.Log.Appendf(runlog.TagInfo, "Starting flow %s with %d node(s) in %s order", graphName(req.Graph), len(nodes), req.Order)
	for _, id := range resp.Excluded {
		rc.Log.Appendf(runlog.TagWarn, "Skipping %s: node is part of or downstream of a cycle", id)
	}

	if err := e.resolveWallets(ctx, rc, nodes); err != nil {
		return fmt.Errorf("wallet resolution failed: %w", err)
	}

	e.setPhase(rc, PhaseExecuting)
	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before %s: %w", n.DisplayName(), err)
		}
		result, err := e.dispatch(ctx, rc, n)
		if err != nil {
			return err
		}
		if e.cfg.Snapshots != nil {
			id, serr := e.cfg.Snapshots.Record(ctx, req.Graph.ID, rc.RunID, n.ID, i, rc.State())
			if serr != nil {
				e.logger.Warnw("snapshot failed", "run", rc.RunID, "node", n.ID, "error", serr)
			}
			result.SnapshotID = id
		}
		rc.steps = append(rc.steps, result)
	}
	return nil
}

// finalize exports generated key material and writes the closing line. It
// runs after fatal errors too so that keys are never lost.
func (e *FlowExecutor) finalize(ctx context.Context, rc *RunContext, resp *dto.RunResponse, runErr error) {
	e.setPhase(rc, PhaseFinalizing)

	if m := rc.mixer; m != nil && (m.Phase() == mixing.PhaseRegistered || m.Phase() == mixing.PhaseMixing) {
		if err := m.Leave(context.WithoutCancel(ctx)); err != nil {
			rc.Log.Appendf(runlog.TagWarn, "Could not leave mixing session: %v", err)
		} else {
			rc.Log.Appendf(runlog.TagMix, "Left mixing session %s", shortID(m.Session()))
		}
	}

	if generated := rc.Generated(); len(generated) > 0 {
		backup := &dto.Backup{RunID: rc.RunID, CreatedAt: time.Now().UTC(), Wallets: generated}
		resp.Backup = backup
		if e.cfg.Backup == nil {
			rc.Log.Appendf(runlog.TagBackup, "%d generated wallet(s) attached to the run result", len(generated))
		} else {
			loc, err := e.cfg.Backup.Export(context.WithoutCancel(ctx), backup)
			if err != nil {
				rc.Log.Appendf(runlog.TagCriticalError, "Backup export failed: %v. Keys are attached to the run result", err)
			} else {
				backup.Location = loc
				rc.Log.Appendf(runlog.TagBackup, "Backed up %d generated wallet(s) to %s", len(generated), loc)
			}
		}
	}

	if runErr != nil {
		rc.Log.Appendf(runlog.TagFinish, "Flow halted after %d node(s)", len(rc.steps))
		return
	}
	var done, failed, skipped int
	for _, s := range rc.steps {
		switch s.Status {
		case dto.StepStatusCompleted:
			done++
		case dto.StepStatusFailed:
			failed++
		case dto.StepStatusSkipped:
			skipped++
		}
	}
	rc.Log.Appendf(runlog.TagFinish, "Flow complete: %d succeeded, %d failed, %d skipped", done, failed, skipped)
}

// dispatch runs one node. Per-node failures are recorded and swallowed; the
// returned error is fatal.
func (e *FlowExecutor) dispatch(ctx context.Context, rc *RunContext, n *graph.Node) (dto.StepResult, error) {
	start := time.Now()
	result := dto.StepResult{NodeID: n.ID, Kind: n.Kind, Status: dto.StepStatusCompleted}

	err := e.process(ctx, rc, n)
	result.Duration = time.Since(start)

	var skip errSkip
	switch {
	case err == nil:
		metrics.NodeExecuted(string(n.Kind))
	case errors.As(err, &skip):
		result.Status = dto.StepStatusSkipped
		rc.Log.Appendf(runlog.TagWarn, "Skipping %s %s: %s", n.Kind, n.DisplayName(), skip.reason)
	case ctx.Err() != nil:
		// the run itself was cancelled or timed out mid-call
		return result, fmt.Errorf("run interrupted during %s: %w", n.DisplayName(), ctx.Err())
	default:
		result.Status = dto.StepStatusFailed
		result.Error = err.Error()
		rc.failed = append(rc.failed, n.ID)
		metrics.NodeFailed(string(n.Kind))
		rc.Log.Appendf(runlog.TagError, "%s %s failed: %v", n.Kind, n.DisplayName(), err)
		e.logger.Debugw("node failed", "run", rc.RunID, "node", n.ID, "kind", n.Kind, "error", err)
	}
	return result, nil
}

// callCtx bounds a wallet call by the configured network timeout.
func (e *FlowExecutor) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.NetworkTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.NetworkTimeout)
	}
	return context.WithCancel(ctx)
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *FlowExecutor) newCoordinator() (mixing.Coordinator, func() error) {
	if e.cfg.Coordinator != nil {
		return e.cfg.Coordinator, func() error { return nil }
	}
	sim := mixing.NewSimulatedCoordinator(mixing.SimulatedConfig{Delay: e.cfg.Delay})
	return sim, sim.Close
}

func graphName(g *graph.Graph) string {
	if g.Name != "" {
		return g.Name
	}
	if g.ID != "" {
		return g.ID
	}
	return "(unnamed)"
}
