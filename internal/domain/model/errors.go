package model

import "errors"

// Sentinel error kinds for event validation. These allow errors.Is/As from
// callers across package boundaries.
var (
	ErrInvalidEventType     = errors.New("invalid event type")
	ErrInvalidSource        = errors.New("invalid event source")
	ErrMalformedTimestamp   = errors.New("malformed timestamp")
	ErrSeverityOutOfRange   = errors.New("severity out of range")
	ErrConfidenceOutOfRange = errors.New("confidence out of range")
	ErrUnknownFighter       = errors.New("unknown fighter for round")
)
