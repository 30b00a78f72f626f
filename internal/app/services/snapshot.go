package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
)

// SnapshotService records run scratch state after each node
// PRINCIPLES:
// - SRP: Manages snapshot operations for flow runs
// - DIP: Depends on checkpoint.Saver abstraction
type SnapshotService struct {
	saver checkpoint.Saver
	now   func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(saver checkpoint.Saver) *SnapshotService {
	return &SnapshotService{saver: saver, now: time.Now}
}

// Record saves the state reached after nodeID and returns the snapshot id.
func (s *SnapshotService) Record(ctx context.Context, graphID, runID, nodeID string, step int, state checkpoint.State) (string, error) {
	snap := &checkpoint.Snapshot{
		ID:        uuid.NewString(),
		GraphID:   graphID,
		RunID:     runID,
		NodeID:    nodeID,
		Step:      step,
		State:     state,
		Timestamp: s.now(),
	}
	if err := s.saver.Save(ctx, snap); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return snap.ID, nil
}

// Load returns one snapshot by id.
func (s *SnapshotService) Load(ctx context.Context, id string) (*checkpoint.Snapshot, error) {
	snap, err := s.saver.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// History returns the snapshots of a run, oldest step first.
func (s *SnapshotService) History(ctx context.Context, runID string) ([]*checkpoint.Snapshot, error) {
	snaps, err := s.saver.List(ctx, checkpoint.Filter{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	// Savers list newest first.
	out := make([]*checkpoint.Snapshot, len(snaps))
	for i, snap := range snaps {
		out[len(snaps)-1-i] = snap
	}
	return out, nil
}

// Latest returns the most recent snapshot of a run.
func (s *SnapshotService) Latest(ctx context.Context, runID string) (*checkpoint.Snapshot, error) {
	snaps, err := s.saver.List(ctx, checkpoint.Filter{RunID: runID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, checkpoint.ErrSnapshotNotFound
	}
	return snaps[0], nil
}
