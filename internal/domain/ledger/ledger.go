// Package ledger implements the per-round, tamper-evident hash chain.
//
// Each accepted event's chain hash is a pure function of its fingerprint
// and the previous event's chain hash, starting from a fixed genesis seed.
// Rewriting any entry breaks every hash after it, so verification can
// locate the earliest point of tampering. This is tamper-evidence within
// one round, not distributed consensus: there is exactly one logical writer
// per round.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// genesisSeed anchors every round's chain. Changing it invalidates all
// previously recorded chains, so it is versioned.
const genesisSeed = "roundledger/chain-genesis/v1"

// Genesis returns the chain hash preceding the first event of any round.
func Genesis() string {
	sum := sha256.Sum256([]byte(genesisSeed))
	return hex.EncodeToString(sum[:])
}

// ChainHash computes the chain hash for an event given its fingerprint and
// the previous entry's chain hash.
func ChainHash(fingerprint, prevChainHash string) string {
	sum := sha256.Sum256([]byte(fingerprint + prevChainHash))
	return hex.EncodeToString(sum[:])
}

// VerifyResult reports the outcome of a chain verification.
type VerifyResult struct {
	TotalEvents int
	Valid       bool
	// FirstBrokenIndex is the sequence index of the earliest entry whose
	// stored values disagree with the recomputed chain. -1 when valid.
	FirstBrokenIndex int
}

// Verify replays the chain from genesis over the ordered event log and
// compares recomputed values to the stored ones index by index. Events must
// be ordered by sequence index; a gap or out-of-order index is itself a
// break at that position.
func Verify(events []model.Event) VerifyResult {
	prev := Genesis()
	for i, e := range events {
		if e.Sequence != i {
			return VerifyResult{TotalEvents: len(events), Valid: false, FirstBrokenIndex: i}
		}
		want := ChainHash(e.Fingerprint, prev)
		if e.ChainHash != want {
			return VerifyResult{TotalEvents: len(events), Valid: false, FirstBrokenIndex: i}
		}
		prev = e.ChainHash
	}
	return VerifyResult{TotalEvents: len(events), Valid: true, FirstBrokenIndex: -1}
}

// LockSignature stamps a signature over a round's full ordered event
// sequence. The terminal chain hash already commits to the entire history,
// so signing identity, length and terminal hash fixes the whole log.
func LockSignature(boutID, roundID string, eventCount int, lastChainHash string) string {
	payload := "lock|" + boutID + "|" + roundID + "|" +
		strconv.Itoa(eventCount) + "|" + lastChainHash
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// OverrideSignature signs a post-lock correction so the audit entry itself
// is tamper-evident. It binds the actor to both snapshots via the round's
// lock signature.
func OverrideSignature(lockSignature, actor string, previous, next model.ScoreSnapshot) string {
	payload := "override|" + lockSignature + "|" + actor + "|" +
		string(previous.Card) + "|" + string(next.Card) + "|" +
		strconv.FormatFloat(previous.Differential, 'g', -1, 64) + "|" +
		strconv.FormatFloat(next.Differential, 'g', -1, 64)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
