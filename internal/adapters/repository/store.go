// Package repository defines the round store interface and errors.
//
// Rounds are addressed by (bout_id, round_id); there is no process-wide
// "current round". Each round owns a single logical sequencer: acceptance,
// sequence assignment and chain hashing are serialized per round, while
// different rounds proceed fully in parallel.
package repository

import (
	"context"

	"github.com/ringsidehq/roundledger/internal/domain/fusion"
	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// Key addresses one round.
type Key struct {
	BoutID  string
	RoundID string
}

// String renders the key for logs and job queues.
func (k Key) String() string { return k.BoutID + "/" + k.RoundID }

// FinalizeFunc runs inside the round's sequencer during Lock. It receives a
// consistent copy of the round and returns the resolution the final state
// was computed against, the final snapshot, and the lock signature.
// Returning an error aborts the lock without changing the round.
type FinalizeFunc func(r model.Round) (fusion.Result, model.ScoreSnapshot, string, error)

// Store provides read/write access to rounds.
type Store interface {
	// Register creates a round in OPEN state. The fighter corners come
	// from the bout metadata collaborator.
	Register(ctx context.Context, key Key, roundNumber int, redFighter, blueFighter string) error

	// Accept runs fingerprint-lookup-and-append as one atomic step under
	// the round's sequencer. A duplicate fingerprint returns the existing
	// event and true; a new event gets its id, sequence index and chain
	// hash assigned and is appended.
	Accept(ctx context.Context, key Key, e model.Event) (model.Event, bool, error)

	// Round returns a deep copy of the round for reads.
	Round(ctx context.Context, key Key) (model.Round, error)

	// CanonicalEvents returns the round's canonical ledger events plus
	// synthesized events, ordered by timestamp then sequence.
	CanonicalEvents(ctx context.Context, key Key) ([]model.Event, error)

	// ApplyResolution installs a fusion resolver result. Re-applying the
	// same result is a no-op in effect; a locked round is left untouched.
	ApplyResolution(ctx context.Context, key Key, res fusion.Result) error

	// SetSnapshot caches a computed score if it is still current.
	SetSnapshot(ctx context.Context, key Key, snap model.ScoreSnapshot) error

	// Lock transitions ACTIVE -> LOCKED via finalize, all under the
	// round's sequencer. Fails on an already-locked round.
	Lock(ctx context.Context, key Key, finalize FinalizeFunc) (model.Round, error)

	// AppendOverride records an audited post-lock correction and replaces
	// the cached snapshot. The ledger is never touched.
	AppendOverride(ctx context.Context, key Key, ov model.Override) error

	// Count returns the number of rounds tracked.
	Count(ctx context.Context) int
}
