// Package checkpoint defines domain-specific errors
package checkpoint

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Snapshot validation errors
	ErrInvalidSnapshotID = errors.New("invalid snapshot ID")
	ErrInvalidGraphID    = errors.New("invalid graph ID")
	ErrInvalidRunID      = errors.New("invalid run ID")
	ErrInvalidStep       = errors.New("step cannot be negative")
	ErrNilSnapshot       = errors.New("snapshot cannot be nil")
	ErrSnapshotNotFound  = errors.New("snapshot not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")
)
