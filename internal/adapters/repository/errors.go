package repository

import "errors"

// Sentinel kinds for round store errors.
var (
	ErrRoundNotFound  = errors.New("round not found")
	ErrRoundExists    = errors.New("round already registered")
	ErrRoundLocked    = errors.New("round locked")
	ErrRoundNotLocked = errors.New("round not locked")
	ErrStaleSnapshot  = errors.New("snapshot stale")
)
