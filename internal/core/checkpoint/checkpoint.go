// Package checkpoint defines run snapshots: the scratch state of a flow
// run recorded after each dispatched node.
package checkpoint

import (
	"time"
)

// Snapshot is the state of a run after one node
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only responsible for snapshot data, never key material
type Snapshot struct {
	ID        string    `json:"id" msgpack:"id"`
	GraphID   string    `json:"graph_id" msgpack:"graph_id"`
	RunID     string    `json:"run_id" msgpack:"run_id"`
	NodeID    string    `json:"node_id" msgpack:"node_id"`
	Step      int       `json:"step" msgpack:"step"`
	State     State     `json:"state" msgpack:"state"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// State is the serializable part of a run context.
type State struct {
	Phase     string                 `json:"phase" msgpack:"phase"`
	FeeRate   float64                `json:"fee_rate" msgpack:"fee_rate"`
	Variables map[string]interface{} `json:"variables,omitempty" msgpack:"variables,omitempty"`
	// Wallets maps node ids to addresses.
	Wallets map[string]string `json:"wallets,omitempty" msgpack:"wallets,omitempty"`
	Failed  []string          `json:"failed,omitempty" msgpack:"failed,omitempty"`
}

// Validate ensures snapshot integrity
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return ErrInvalidSnapshotID
	}
	if s.GraphID == "" {
		return ErrInvalidGraphID
	}
	if s.RunID == "" {
		return ErrInvalidRunID
	}
	if s.Step < 0 {
		return ErrInvalidStep
	}
	return nil
}

// Clone returns a copy that shares no maps with s.
func (s *Snapshot) Clone() *Snapshot {
	cp := *s
	if s.State.Variables != nil {
		cp.State.Variables = make(map[string]interface{}, len(s.State.Variables))
		for k, v := range s.State.Variables {
			cp.State.Variables[k] = v
		}
	}
	if s.State.Wallets != nil {
		cp.State.Wallets = make(map[string]string, len(s.State.Wallets))
		for k, v := range s.State.Wallets {
			cp.State.Wallets[k] = v
		}
	}
	cp.State.Failed = append([]string(nil), s.State.Failed...)
	return &cp
}
