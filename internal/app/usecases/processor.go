package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/mixing"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/steps"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/vars"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/infrastructure/metrics"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

// ErrNoWallet is returned by spending nodes when the run resolved no wallet.
var ErrNoWallet = errors.New("no wallet available")

// errSkip marks a node that was not executed because its configuration is
// incomplete or its kind is unsupported.
type errSkip struct{ reason string }

func (s errSkip) Error() string { return "skipped: " + s.reason }

// process decodes n, checks its configuration and dispatches it.
func (e *FlowExecutor) process(ctx context.Context, rc *RunContext, n *graph.Node) error {
	step := steps.DecodeUTXO(n)
	if err := validation.Struct(step); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return errSkip{reason: verrs.Error()}
		}
		return err
	}
	return step.AcceptUTXO(&nodeProcessor{ctx: ctx, e: e, rc: rc})
}

// nodeProcessor implements steps.UTXOVisitor for one node
// PRINCIPLES:
// - SRP: node semantics only, orchestration stays in FlowExecutor
// - Each visit writes its own log lines and returns per-node errors
type nodeProcessor struct {
	ctx context.Context
	e   *FlowExecutor
	rc  *RunContext
}

func (p *nodeProcessor) log(tag runlog.Tag, format string, args ...interface{}) {
	p.rc.Log.Appendf(tag, format, args...)
}

func (p *nodeProcessor) VisitWallet(s *steps.Wallet) error {
	if _, ok := p.rc.Wallet(s.NodeID()); !ok {
		return fmt.Errorf("wallet was not resolved")
	}
	return nil
}

func (p *nodeProcessor) VisitWatchWallet(s *steps.WatchWallet) error {
	ctx, cancel := p.e.callCtx(p.ctx)
	defer cancel()
	h, err := p.e.cfg.Provider.Watch(ctx, s.Address)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.Address, err)
	}
	p.rc.setWallet(s.NodeID(), h)
	p.log(runlog.TagInfo, "Watching %s (read-only)", h.Address())
	p.e.logBalance(p.ctx, p.rc, h)
	return nil
}

func (p *nodeProcessor) VisitFeeConfig(s *steps.FeeConfig) error {
	p.rc.FeeRate = s.FeeRate
	p.log(runlog.TagConfig, "Fee rate set to %s sat/byte", formatNumber(s.FeeRate))
	return nil
}

func (p *nodeProcessor) VisitGenerateWallet(s *steps.GenerateWallet) error {
	ctx, cancel := p.e.callCtx(p.ctx)
	defer cancel()
	h, secret, err := p.e.cfg.Provider.CreateRandom(ctx)
	if err != nil {
		return fmt.Errorf("generate wallet: %w", err)
	}
	p.rc.setWallet(s.NodeID(), h)
	p.rc.queueBackup(s.Name(), secret)
	metrics.WalletGenerated()
	p.log(runlog.TagGen, "Generated wallet %s (keys will be backed up)", h.Address())
	return nil
}

func (p *nodeProcessor) VisitSetVariable(s *steps.SetVariable) error {
	if s.Value == nil {
		return errSkip{reason: "value: is required"}
	}
	p.rc.Vars.Set(s.Var, s.Value)
	p.log(runlog.TagVar, "%s = %s", s.Var, vars.Format(s.Value))
	return nil
}

func (p *nodeProcessor) VisitGetVariable(s *steps.GetVariable) error {
	v, ok := p.rc.Vars.Get(s.Var)
	if !ok {
		return fmt.Errorf("%w: %s", vars.ErrUndefined, s.Var)
	}
	p.log(runlog.TagVar, "Read %s = %s", s.Var, vars.Format(v))
	return nil
}

func (p *nodeProcessor) VisitMathOp(s *steps.MathOp) error {
	op := vars.Op(s.Operation)
	dest := s.Destination()
	operand := *s.Operand
	before, after, err := p.rc.Vars.Apply(op, s.Variable, operand, dest)
	if err != nil {
		return err
	}
	p.log(runlog.TagMath, "%s = %s %s %s = %s", dest,
		formatNumber(before), op.Symbol(), formatNumber(operand), formatNumber(after))
	return nil
}

func (p *nodeProcessor) VisitSplitUTXO(s *steps.SplitUTXO) error {
	h, err := p.spender(s.NodeID())
	if err != nil {
		return err
	}
	unit, err := wallet.ParseUnit(s.Unit)
	if err != nil {
		return err
	}
	outputs := make([]wallet.Output, s.Count)
	for i := range outputs {
		outputs[i] = wallet.Output{Address: h.Address(), Value: s.Amount, Unit: unit}
	}
	p.log(runlog.TagAction, "Splitting %s into %d outputs of %s %s (fee rate %s sat/byte)",
		h.Address(), s.Count, formatNumber(s.Amount), unit, formatNumber(p.rc.FeeRate))
	res, err := p.send(h, outputs)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	p.log(runlog.TagSuccess, "Split transaction %s (fee %d sat)", res.TxID, res.Fee)
	return nil
}

func (p *nodeProcessor) VisitShuffleOutputs(s *steps.ShuffleOutputs) error {
	p.log(runlog.TagMix, "Requesting output shuffle")
	r, err := p.mixer().Shuffle(p.ctx)
	if err != nil {
		return fmt.Errorf("shuffle: %w", err)
	}
	p.log(runlog.TagMix, "Session %s: %s", shortID(r.Session), r.Detail)
	return nil
}

func (p *nodeProcessor) VisitJoinMixPool(s *steps.JoinMixPool) error {
	p.log(runlog.TagMix, "Joining mix pool %q", s.Pool)
	r, err := p.mixer().Join(p.ctx, s.Pool)
	if err != nil {
		return fmt.Errorf("join pool: %w", err)
	}
	p.log(runlog.TagMix, "Session %s: %s", shortID(r.Session), r.Detail)
	return nil
}

func (p *nodeProcessor) VisitAutoRemix(s *steps.AutoRemix) error {
	p.log(runlog.TagMix, "Starting auto-remix for %d round(s)", s.Rounds)
	m := p.mixer()
	for round := 1; round <= int(s.Rounds); round++ {
		r, err := m.Remix(p.ctx, round)
		if err != nil {
			return fmt.Errorf("remix round %d: %w", round, err)
		}
		p.log(runlog.TagMix, "Round %d/%d: %s", round, s.Rounds, r.Detail)
	}
	return nil
}

func (p *nodeProcessor) VisitPayment(s *steps.Payment) error {
	h, err := p.spender(s.NodeID())
	if err != nil {
		return err
	}
	unit, err := wallet.ParseUnit(s.Unit)
	if err != nil {
		return err
	}
	p.log(runlog.TagAction, "Sending %s %s from %s to %s (fee rate %s sat/byte)",
		formatNumber(s.Amount), unit, h.Address(), s.Receiver, formatNumber(p.rc.FeeRate))
	res, err := p.send(h, []wallet.Output{{Address: s.Receiver, Value: s.Amount, Unit: unit}})
	if err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	p.log(runlog.TagSuccess, "Payment sent: %s (fee %d sat)", res.TxID, res.Fee)
	return nil
}

func (p *nodeProcessor) VisitBroadcast(s *steps.Broadcast) error {
	p.log(runlog.TagInfo, "Broadcasting %d transaction(s)", len(p.rc.sent))
	if err := sleep(p.ctx, p.e.cfg.Delay); err != nil {
		return err
	}
	p.log(runlog.TagSuccess, "Broadcast complete")
	return nil
}

func (p *nodeProcessor) VisitUnsupported(s *steps.Unsupported) error {
	return errSkip{reason: fmt.Sprintf("kind %q is not supported on %s", s.Kind(), graph.ChainBitcoinCash)}
}

// spender returns the wallet nodeID spends from.
func (p *nodeProcessor) spender(nodeID string) (wallet.Handle, error) {
	h := p.rc.DrivingWallet(nodeID)
	if h == nil {
		return nil, ErrNoWallet
	}
	return h, nil
}

func (p *nodeProcessor) send(h wallet.Handle, outputs []wallet.Output) (wallet.SendResult, error) {
	ctx, cancel := p.e.callCtx(p.ctx)
	defer cancel()
	res, err := h.Send(ctx, outputs)
	if err != nil {
		return res, err
	}
	p.rc.sent = append(p.rc.sent, res.TxID)
	return res, nil
}

func (p *nodeProcessor) mixer() *mixing.Client {
	return p.rc.mixerFor(p.e.newCoordinator)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBCH(f float64) string {
	return strconv.FormatFloat(f, 'f', 8, 64)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
