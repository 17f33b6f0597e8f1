package service

import "errors"

// Sentinel kinds for service-level failures.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrChainBroken = errors.New("hash chain broken")
)
