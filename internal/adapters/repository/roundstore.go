package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ringsidehq/roundledger/internal/domain/fusion"
	"github.com/ringsidehq/roundledger/internal/domain/ledger"
	"github.com/ringsidehq/roundledger/internal/domain/model"
	"github.com/ringsidehq/roundledger/pkg/metrics"
)

// defaultShardCount spreads unrelated rounds across locks.
const defaultShardCount = 8

// roundEntry is one round plus its sequencer. The entry mutex is the
// single-writer-per-round discipline: fingerprint lookup, sequence
// assignment and chain hashing all happen while holding it.
type roundEntry struct {
	mu sync.Mutex

	round model.Round

	// fingerprints maps fingerprint hash -> index into round.Events, so
	// dedup lookup is linearizable with acceptance of the same print.
	fingerprints map[string]int
}

type shard struct {
	mu     sync.RWMutex
	rounds map[Key]*roundEntry
}

// RoundStore is a sharded, in-memory Store implementation.
type RoundStore struct {
	shards []*shard
	clock  func() time.Time
}

// NewRoundStore creates a RoundStore with configuration options.
func NewRoundStore(opts ...Option) *RoundStore {
	cfg := storeConfig{
		shardCount: defaultShardCount,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &RoundStore{clock: cfg.clock}
	s.shards = make([]*shard, cfg.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{rounds: make(map[Key]*roundEntry)}
	}
	return s
}

func (s *RoundStore) shardFor(key Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.BoutID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.RoundID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *RoundStore) entry(key Key) (*roundEntry, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.rounds[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, key)
	}
	return e, nil
}

// Register creates a round in OPEN state.
func (s *RoundStore) Register(ctx context.Context, key Key, roundNumber int, redFighter, blueFighter string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()

	if _, ok := sh.rounds[key]; ok {
		sh.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoundExists, key)
	}
	sh.rounds[key] = &roundEntry{
		round: model.Round{
			BoutID:        key.BoutID,
			RoundID:       key.RoundID,
			RoundNumber:   roundNumber,
			RedFighter:    redFighter,
			BlueFighter:   blueFighter,
			Status:        model.RoundOpen,
			LastSequence:  -1,
			LastChainHash: ledger.Genesis(),
			ResolvedSeq:   -1,
			SnapshotSeq:   -1,
			CreatedAt:     s.clock(),
		},
		fingerprints: make(map[string]int),
	}
	sh.mu.Unlock()

	metrics.UpdateRoundsTracked(s.Count(ctx))
	return nil
}

// Accept implements the atomic fingerprint-lookup-and-append step.
func (s *RoundStore) Accept(ctx context.Context, key Key, e model.Event) (model.Event, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAcceptLatency(float64(time.Since(start).Milliseconds()))
	}()

	entry, err := s.entry(key)
	if err != nil {
		return model.Event{}, false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	if !r.AcceptsWrites() {
		return model.Event{}, false, fmt.Errorf("%w: %s rejects writes", ErrRoundLocked, key)
	}

	if idx, seen := entry.fingerprints[e.Fingerprint]; seen {
		metrics.RecordEventDuplicate()
		return r.Events[idx], true, nil
	}

	e.EventID = uuid.NewString()
	e.Sequence = r.LastSequence + 1
	e.ChainHash = ledger.ChainHash(e.Fingerprint, r.LastChainHash)
	e.CreatedAt = s.clock()
	e.Canonical = false
	e.Corroborated = false

	r.Events = append(r.Events, e)
	r.LastSequence = e.Sequence
	r.LastChainHash = e.ChainHash
	if r.Status == model.RoundOpen {
		r.Status = model.RoundActive
	}
	entry.fingerprints[e.Fingerprint] = e.Sequence

	metrics.RecordEventAccepted()
	return e, false, nil
}

// Round returns a deep copy for reads.
func (s *RoundStore) Round(ctx context.Context, key Key) (model.Round, error) {
	entry, err := s.entry(key)
	if err != nil {
		return model.Round{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.round.Clone(), nil
}

// CanonicalEvents returns canonical ledger events plus synthesized events,
// ordered by timestamp then sequence.
func (s *RoundStore) CanonicalEvents(ctx context.Context, key Key) ([]model.Event, error) {
	entry, err := s.entry(key)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	out := make([]model.Event, 0, len(r.Events)+len(r.Synthesized))
	for _, e := range r.Events {
		if e.Canonical {
			out = append(out, e)
		}
	}
	out = append(out, r.Synthesized...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMS != out[j].TimestampMS {
			return out[i].TimestampMS < out[j].TimestampMS
		}
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

// ApplyResolution installs a fusion result. The resolver recomputes the
// full assignment each pass, so installation replaces derived state
// wholesale; the ledger entries themselves only flip canonicality flags.
func (s *RoundStore) ApplyResolution(ctx context.Context, key Key, res fusion.Result) error {
	entry, err := s.entry(key)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	if r.Status == model.RoundLocked {
		// The lock already froze a final resolution.
		return nil
	}
	applyResolution(r, res)
	return nil
}

// applyResolution mutates r in place. Callers hold the round mutex.
func applyResolution(r *model.Round, res fusion.Result) {
	for i := range r.Events {
		if c, ok := res.Canonical[r.Events[i].EventID]; ok {
			r.Events[i].Canonical = c
		}
		r.Events[i].Corroborated = res.Corroborated[r.Events[i].EventID]
	}
	r.Synthesized = append([]model.Event(nil), res.Synthesized...)
	r.ReviewFlags = append([]model.ReviewFlag(nil), res.Flags...)
	r.ResolvedSeq = res.ResolvedSeq

	// Canonicality may have shifted under the cached score.
	r.Snapshot = nil
	r.SnapshotSeq = -1
}

// SetSnapshot caches a computed score if it still describes the round's
// current canonical set.
func (s *RoundStore) SetSnapshot(ctx context.Context, key Key, snap model.ScoreSnapshot) error {
	entry, err := s.entry(key)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	if r.Status == model.RoundLocked {
		return nil // the final snapshot is frozen
	}
	if snap.ComputedAtSeq != r.LastSequence || r.ResolvedSeq != r.LastSequence {
		return fmt.Errorf("%w: computed at %d, round at %d", ErrStaleSnapshot, snap.ComputedAtSeq, r.LastSequence)
	}
	r.Snapshot = &snap
	r.SnapshotSeq = snap.ComputedAtSeq
	return nil
}

// Lock runs finalize under the round's sequencer and freezes the round.
func (s *RoundStore) Lock(ctx context.Context, key Key, finalize FinalizeFunc) (model.Round, error) {
	entry, err := s.entry(key)
	if err != nil {
		return model.Round{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	if r.Status == model.RoundLocked {
		return model.Round{}, fmt.Errorf("%w: %s already locked", ErrRoundLocked, key)
	}

	res, snap, sig, err := finalize(r.Clone())
	if err != nil {
		return model.Round{}, err
	}

	applyResolution(r, res)
	r.Snapshot = &snap
	r.SnapshotSeq = snap.ComputedAtSeq
	r.LockSignature = sig
	r.Status = model.RoundLocked

	metrics.RecordRoundLocked()
	return r.Clone(), nil
}

// AppendOverride records an audited correction on a locked round.
func (s *RoundStore) AppendOverride(ctx context.Context, key Key, ov model.Override) error {
	entry, err := s.entry(key)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r := &entry.round
	if r.Status != model.RoundLocked {
		return fmt.Errorf("%w: overrides apply to locked rounds only", ErrRoundNotLocked)
	}
	r.Overrides = append(r.Overrides, ov)
	snap := ov.New
	r.Snapshot = &snap

	metrics.RecordOverride()
	return nil
}

// Count returns the number of rounds tracked.
func (s *RoundStore) Count(ctx context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.rounds)
		sh.mu.RUnlock()
	}
	return total
}
