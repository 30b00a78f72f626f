package dto

import "errors"

// Run errors
var (
	ErrMissingGraph   = errors.New("graph is required")
	ErrInvalidRequest = errors.New("invalid run request")
	ErrInvalidOrder   = errors.New("order must be topological or insertion")
	ErrInvalidTarget  = errors.New("unknown emit target")
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrWrongChain     = errors.New("graph chain cannot be executed")
)
