package metrics

import (
	"expvar"
)

// Channel metrics using expvar maps keyed by implementation type.
var (
	channelSent     = expvar.NewMap("cashflow_channel_sent_total")
	channelReceived = expvar.NewMap("cashflow_channel_received_total")
)

// Run and node metrics.
var (
	runsTotal        = expvar.NewMap("cashflow_runs_total")
	nodeExecsTotal   = expvar.NewMap("cashflow_node_executions_total")
	nodeFailures     = expvar.NewMap("cashflow_node_failures_total")
	emitsTotal       = expvar.NewMap("cashflow_emits_total")
	runsRejected     = new(expvar.Int)
	walletsGenerated = new(expvar.Int)
	runsActive       = new(expvar.Int)
)

func init() {
	expvar.Publish("cashflow_runs_rejected_total", runsRejected)
	expvar.Publish("cashflow_wallets_generated_total", walletsGenerated)
	expvar.Publish("cashflow_runs_active", runsActive)
}

// Channel helpers
func ChannelSent(kind string, n int64)     { channelSent.Add(kind, n) }
func ChannelReceived(kind string, n int64) { channelReceived.Add(kind, n) }

// Run helpers
func RunStarted()               { runsActive.Add(1) }
func RunFinished(status string) { runsActive.Add(-1); runsTotal.Add(status, 1) }
func RunRejected()              { runsRejected.Add(1) }

// Node helpers, keyed by node kind
func NodeExecuted(kind string) { nodeExecsTotal.Add(kind, 1) }
func NodeFailed(kind string)   { nodeFailures.Add(kind, 1) }

func WalletGenerated()          { walletsGenerated.Add(1) }
func CodeEmitted(target string) { emitsTotal.Add(target, 1) }

// RunsRejected returns the rejected-run counter.
func RunsRejected() int64 { return runsRejected.Value() }
