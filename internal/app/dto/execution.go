package dto

import (
	"fmt"
	"time"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
)

// OrderMode selects how the executor sequences nodes.
type OrderMode string

const (
	// OrderTopological visits nodes in scheduler order; cyclic nodes are skipped.
	OrderTopological OrderMode = "topological"
	// OrderInsertion visits nodes in the order they appear in the graph.
	OrderInsertion OrderMode = "insertion"
)

// RunRequest represents a request to execute a flow graph
type RunRequest struct {
	RunID  string       `json:"runId,omitempty"`
	Graph  *graph.Graph `json:"graph"`
	Order  OrderMode    `json:"order,omitempty"`
	Config RunConfig    `json:"config"`
}

// RunConfig contains optional knobs for one run
type RunConfig struct {
	Timeout         time.Duration `json:"timeout,omitempty"`          // Whole-run deadline, zero for none
	CheckVocabulary bool          `json:"checkVocabulary,omitempty"` // Reject kinds foreign to the chain
}

// RunStatus represents the outcome of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResponse represents the response from a flow run
type RunResponse struct {
	RunID     string                 `json:"runId"`
	GraphID   string                 `json:"graphId"`
	Status    RunStatus              `json:"status"`
	Log       []runlog.Entry         `json:"log"`
	Steps     []StepResult           `json:"steps"`
	Variables map[string]interface{} `json:"variables"`
	FeeRate   float64                `json:"feeRate"`
	Excluded  []string               `json:"excluded,omitempty"`
	Backup    *Backup                `json:"backup,omitempty"`
	StartTime time.Time              `json:"startTime"`
	EndTime   time.Time              `json:"endTime"`
	Duration  time.Duration          `json:"duration"`
	Error     string                 `json:"error,omitempty"`
}

// StepResult represents the result of executing a single node
type StepResult struct {
	NodeID     string        `json:"nodeId"`
	Kind       graph.Kind    `json:"kind"`
	Status     StepStatus    `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	SnapshotID string        `json:"snapshotId,omitempty"`
}

// StepStatus represents the status of a single node
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Backup is the key material of wallets generated during a run.
type Backup struct {
	RunID     string         `json:"runId"`
	CreatedAt time.Time      `json:"createdAt"`
	Wallets   []BackupWallet `json:"wallets"`
	// Location is where the exporter wrote the artifact, if it did.
	Location string `json:"location,omitempty"`
}

type BackupWallet struct {
	Address  string `json:"address"`
	WIF      string `json:"wif"`
	Mnemonic string `json:"mnemonic,omitempty"`
	Label    string `json:"label"`
}

// Validate validates the run request and fills defaults
func (req *RunRequest) Validate() error {
	if req.Graph == nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrMissingGraph)
	}
	switch req.Order {
	case "":
		req.Order = OrderTopological
	case OrderTopological, OrderInsertion:
	default:
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidOrder)
	}
	if req.Graph.Chain != "" && req.Graph.Chain != graph.ChainBitcoinCash {
		return fmt.Errorf("%w: %w: %s", ErrInvalidRequest, ErrWrongChain, req.Graph.Chain)
	}
	if req.Config.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidRequest)
	}
	return nil
}

// EmitRequest asks for generated source code.
type EmitRequest struct {
	Graph   *graph.Graph `json:"graph"`
	Target  string       `json:"target,omitempty"`
	Network string       `json:"network,omitempty"`
}

// EmitResponse carries generated source code.
type EmitResponse struct {
	Target string   `json:"target"`
	Code   string   `json:"code"`
	Order  []string `json:"order"`
}

// OrderResponse is the scheduler result in wire form.
type OrderResponse struct {
	Order    []string `json:"order"`
	Excluded []string `json:"excluded"`
}
