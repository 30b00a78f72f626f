package checkpoint

import (
	"context"
	"time"
)

// Saver persists run snapshots
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Core domain depends on interface, not implementations
type Saver interface {
	// Save persists a snapshot, replacing one with the same ID
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves a snapshot by ID
	Load(ctx context.Context, id string) (*Snapshot, error)

	// List returns snapshots matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Snapshot, error)

	// Delete removes a snapshot by ID
	Delete(ctx context.Context, id string) error
}

// Filter for snapshot queries
type Filter struct {
	GraphID string     `json:"graph_id,omitempty"`
	RunID   string     `json:"run_id,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
	Since   *time.Time `json:"since,omitempty"`
	Before  *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether s passes the filter's field and time criteria.
// Limit and Offset are applied by the caller.
func (f *Filter) Matches(s *Snapshot) bool {
	if f.GraphID != "" && s.GraphID != f.GraphID {
		return false
	}
	if f.RunID != "" && s.RunID != f.RunID {
		return false
	}
	if f.Since != nil && !s.Timestamp.After(*f.Since) {
		return false
	}
	if f.Before != nil && !s.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
