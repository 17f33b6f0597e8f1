package model

import "time"

// RoundStatus is the lifecycle state of a round.
type RoundStatus string

// Round lifecycle states. OPEN and ACTIVE accept events; LOCKED is terminal.
const (
	RoundOpen   RoundStatus = "OPEN"
	RoundActive RoundStatus = "ACTIVE"
	RoundLocked RoundStatus = "LOCKED"
)

// ReviewFlag marks a round condition that needs a human decision. Flags are
// additive: the engine never resolves them on its own.
type ReviewFlag struct {
	Kind          string   `json:"kind"`
	FighterID     string   `json:"fighter_id,omitempty"`
	WindowStartMS int64    `json:"window_start_ms,omitempty"`
	WindowEndMS   int64    `json:"window_end_ms,omitempty"`
	EventIDs      []string `json:"event_ids,omitempty"`
	Detail        string   `json:"detail,omitempty"`
}

// Review flag kinds.
const (
	FlagFusionConflict  = "fusion_conflict"
	FlagDanglingControl = "dangling_control"
)

// Override is an audited post-lock correction. It records both snapshots and
// the acting supervisor; the locked ledger itself is never touched.
type Override struct {
	OverrideID string        `json:"override_id"`
	Actor      string        `json:"actor"`
	Reason     string        `json:"reason"`
	Previous   ScoreSnapshot `json:"previous_snapshot"`
	New        ScoreSnapshot `json:"new_snapshot"`
	Signature  string        `json:"signature"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Round is the scoring unit for a bout. The repository owns its mutability
// and hands out deep copies for reads; everything here is plain data.
type Round struct {
	BoutID      string      `json:"bout_id"`
	RoundID     string      `json:"round_id"`
	RoundNumber int         `json:"round_number"`
	RedFighter  string      `json:"red_fighter"`
	BlueFighter string      `json:"blue_fighter"`
	Status      RoundStatus `json:"status"`

	// Ordered, append-only ledger. Sequence indexes are gap-free from 0.
	Events        []Event `json:"events"`
	LastSequence  int     `json:"last_sequence_index"`
	LastChainHash string  `json:"last_chain_hash"`

	// Derived state owned by the fusion resolver. Synthesized events live
	// outside the ledger and are rebuilt on every resolve.
	Synthesized []Event      `json:"synthesized_events,omitempty"`
	ReviewFlags []ReviewFlag `json:"review_flags,omitempty"`
	ResolvedSeq int          `json:"resolved_through_sequence"`

	// Cached score, valid when SnapshotSeq == LastSequence.
	Snapshot    *ScoreSnapshot `json:"score_snapshot,omitempty"`
	SnapshotSeq int            `json:"snapshot_sequence"`

	LockSignature string     `json:"lock_signature,omitempty"`
	Overrides     []Override `json:"overrides,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AcceptsWrites reports whether the round may still accept events.
func (r *Round) AcceptsWrites() bool {
	return r.Status == RoundOpen || r.Status == RoundActive
}

// Clone returns a deep copy safe to hand to readers.
func (r *Round) Clone() Round {
	out := *r
	out.Events = append([]Event(nil), r.Events...)
	out.Synthesized = append([]Event(nil), r.Synthesized...)
	out.ReviewFlags = append([]ReviewFlag(nil), r.ReviewFlags...)
	for i := range out.ReviewFlags {
		out.ReviewFlags[i].EventIDs = append([]string(nil), r.ReviewFlags[i].EventIDs...)
	}
	out.Overrides = append([]Override(nil), r.Overrides...)
	if r.Snapshot != nil {
		snap := *r.Snapshot
		out.Snapshot = &snap
	}
	return out
}
