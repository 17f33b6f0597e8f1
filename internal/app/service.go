// Package service wires the domain together: ingestion, the append-only
// round ledger, background fusion and deterministic scoring sit behind one
// facade that the HTTP API talks to.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/ringsidehq/roundledger/internal/adapters/mq/queue"
	workerpool "github.com/ringsidehq/roundledger/internal/adapters/mq/worker"
	"github.com/ringsidehq/roundledger/internal/adapters/repository"
	"github.com/ringsidehq/roundledger/internal/domain/fingerprint"
	"github.com/ringsidehq/roundledger/internal/domain/fusion"
	"github.com/ringsidehq/roundledger/internal/domain/ledger"
	"github.com/ringsidehq/roundledger/internal/domain/model"
	"github.com/ringsidehq/roundledger/internal/domain/scoring"
	"github.com/ringsidehq/roundledger/pkg/logger"
	"github.com/ringsidehq/roundledger/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize  = 100000
	defaultShardCount = 8
)

// Key re-exports the round address for callers of the facade.
type Key = repository.Key

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	printer    *fingerprint.Generator
	resolver   *fusion.Resolver
	engine     *scoring.Engine
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	shardCount    int
	bucketMS      int64
	fusionOpts    []fusion.Option
	scoringConfig scoring.Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of fusion worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the fusion job queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the round store shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithFingerprintBucketMS sets the dedup timestamp bucket width.
func WithFingerprintBucketMS(ms int64) Option {
	return func(s *Service) {
		if ms > 0 {
			s.bucketMS = ms
		}
	}
}

// WithFusionOptions forwards tuning options to the fusion resolver.
func WithFusionOptions(opts ...fusion.Option) Option {
	return func(s *Service) {
		s.fusionOpts = append(s.fusionOpts, opts...)
	}
}

// WithScoringConfig sets the scoring table. It is validated on New.
func WithScoringConfig(cfg scoring.Config) Option {
	return func(s *Service) {
		s.scoringConfig = cfg
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new service with configuration options. The scoring table
// is validated here so a bad deployment fails before any round exists.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		queueSize:     defaultQueueSize,
		shardCount:    defaultShardCount,
		scoringConfig: scoring.DefaultConfig(),
		logger:        logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	engine, err := scoring.New(s.scoringConfig)
	if err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	s.engine = engine
	s.printer = fingerprint.New(fingerprint.WithBucketMS(s.bucketMS))
	s.resolver = fusion.New(s.fusionOpts...)

	return s, nil
}

// Start initializes and starts all service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.store = repository.NewRoundStore(repository.WithShardCount(s.shardCount))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("shard_count", s.shardCount),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// RegisterRound creates a round in OPEN state.
func (s *Service) RegisterRound(ctx context.Context, key Key, roundNumber int, redFighter, blueFighter string) error {
	store, err := s.components()
	if err != nil {
		return err
	}
	if err := store.Register(ctx, key, roundNumber, redFighter, blueFighter); err != nil {
		return err
	}
	s.logger.Info(ctx, "round registered",
		logger.String("round", key.String()),
		logger.Int("round_number", roundNumber),
	)
	return nil
}

// SubmitEvent validates, fingerprints and appends one detection. The
// returned bool reports whether the submission was a duplicate of an
// already-accepted event; duplicates return the original unchanged.
func (s *Service) SubmitEvent(ctx context.Context, e model.Event) (model.Event, bool, error) {
	store, err := s.components()
	if err != nil {
		return model.Event{}, false, err
	}

	key := Key{BoutID: e.BoutID, RoundID: e.RoundID}
	if err := s.validate(ctx, store, key, &e); err != nil {
		return model.Event{}, false, err
	}

	e.Fingerprint = s.printer.Compute(e.BoutID, e.RoundID, e.DeviceID, e.FighterID, e.Type, e.TimestampMS)

	accepted, dup, err := store.Accept(ctx, key, e)
	if err != nil {
		return model.Event{}, false, err
	}
	if dup {
		return accepted, true, nil
	}

	// Best effort: a full queue only delays background convergence, reads
	// resolve on demand anyway.
	if !s.eventQueue.Enqueue(ctx, key) {
		s.logger.Warn(ctx, "fusion queue full, deferring to read-path resolve",
			logger.String("round", key.String()),
		)
	}
	return accepted, false, nil
}

// validate rejects malformed submissions before they can touch the ledger.
func (s *Service) validate(ctx context.Context, store repository.Store, key Key, e *model.Event) error {
	fail := func(reason string, err error) error {
		metrics.RecordEventRejected(reason)
		return err
	}

	if _, err := model.ParseSource(string(e.Source)); err != nil {
		return fail("source", err)
	}
	if e.Source == model.SourceFusion || e.Type == model.TypeMomentumSwing {
		return fail("type", fmt.Errorf("%w: %q is resolver-internal", model.ErrInvalidEventType, e.Type))
	}
	if _, err := model.ParseEventType(e.Type.String()); err != nil {
		return fail("type", err)
	}
	if e.TimestampMS <= 0 {
		return fail("timestamp", fmt.Errorf("%w: %d", model.ErrMalformedTimestamp, e.TimestampMS))
	}
	if e.Severity < 0 || e.Severity > 1 {
		return fail("severity", fmt.Errorf("%w: %v", model.ErrSeverityOutOfRange, e.Severity))
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fail("confidence", fmt.Errorf("%w: %v", model.ErrConfidenceOutOfRange, e.Confidence))
	}

	r, err := store.Round(ctx, key)
	if err != nil {
		return err
	}
	if e.FighterID != r.RedFighter && e.FighterID != r.BlueFighter {
		return fail("fighter", fmt.Errorf("%w: %q", model.ErrUnknownFighter, e.FighterID))
	}
	return nil
}

// Round returns a copy of the round, flags and overrides included.
func (s *Service) Round(ctx context.Context, key Key) (model.Round, error) {
	store, err := s.components()
	if err != nil {
		return model.Round{}, err
	}
	return store.Round(ctx, key)
}

// VerifyRoundChain replays the round's hash chain from genesis.
func (s *Service) VerifyRoundChain(ctx context.Context, key Key) (ledger.VerifyResult, error) {
	store, err := s.components()
	if err != nil {
		return ledger.VerifyResult{}, err
	}
	r, err := store.Round(ctx, key)
	if err != nil {
		return ledger.VerifyResult{}, err
	}
	vr := ledger.Verify(r.Events)
	metrics.RecordChainVerification(vr.Valid)
	return vr, nil
}

// CanonicalEvents returns the round's canonical timeline, resolving first
// if acceptance has outrun the background workers.
func (s *Service) CanonicalEvents(ctx context.Context, key Key) ([]model.Event, error) {
	store, err := s.components()
	if err != nil {
		return nil, err
	}
	if err := s.ensureResolved(ctx, store, key); err != nil {
		return nil, err
	}
	return store.CanonicalEvents(ctx, key)
}

// Score returns the round's current score snapshot. A cached snapshot is
// reused as long as nothing was accepted since it was computed; otherwise
// the round is resolved and rescored on the spot.
func (s *Service) Score(ctx context.Context, key Key) (model.ScoreSnapshot, error) {
	store, err := s.components()
	if err != nil {
		return model.ScoreSnapshot{}, err
	}
	if err := s.ensureResolved(ctx, store, key); err != nil {
		return model.ScoreSnapshot{}, err
	}

	r, err := store.Round(ctx, key)
	if err != nil {
		return model.ScoreSnapshot{}, err
	}
	if r.Snapshot != nil && (r.Status == model.RoundLocked || r.SnapshotSeq == r.LastSequence) {
		metrics.RecordScoreCacheHit()
		return *r.Snapshot, nil
	}

	snap, err := s.computeScore(ctx, store, key)
	if err != nil {
		return model.ScoreSnapshot{}, err
	}
	// A concurrent accept can race the cache write; the snapshot returned
	// to the caller is still consistent with the set it was read from.
	if err := store.SetSnapshot(ctx, key, snap); err != nil {
		s.logger.Debug(ctx, "snapshot not cached",
			logger.String("round", key.String()),
			logger.Error(err),
		)
	}
	return snap, nil
}

// computeScore reads the canonical set and runs the engine over it.
func (s *Service) computeScore(ctx context.Context, store repository.Store, key Key) (model.ScoreSnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	}()

	r, err := store.Round(ctx, key)
	if err != nil {
		return model.ScoreSnapshot{}, err
	}
	canonical, err := store.CanonicalEvents(ctx, key)
	if err != nil {
		return model.ScoreSnapshot{}, err
	}

	snap := s.engine.Score(scoring.RoundInput{
		BoutID:        r.BoutID,
		RoundID:       r.RoundID,
		RedFighter:    r.RedFighter,
		BlueFighter:   r.BlueFighter,
		Events:        canonical,
		ComputedAtSeq: r.LastSequence,
	})
	metrics.RecordScoreComputed()
	return snap, nil
}

// Lock verifies, resolves, scores and freezes the round as one atomic
// transition. A broken chain aborts the lock.
func (s *Service) Lock(ctx context.Context, key Key) (model.Round, error) {
	store, err := s.components()
	if err != nil {
		return model.Round{}, err
	}

	locked, err := store.Lock(ctx, key, func(r model.Round) (fusion.Result, model.ScoreSnapshot, string, error) {
		vr := ledger.Verify(r.Events)
		metrics.RecordChainVerification(vr.Valid)
		if !vr.Valid {
			metrics.RecordLockFailure("chain_broken")
			return fusion.Result{}, model.ScoreSnapshot{}, "",
				fmt.Errorf("%w: first broken index %d", ErrChainBroken, vr.FirstBrokenIndex)
		}

		res := s.resolver.Resolve(r.Events)
		applied := r.Clone()
		for i := range applied.Events {
			if c, ok := res.Canonical[applied.Events[i].EventID]; ok {
				applied.Events[i].Canonical = c
			}
		}

		canonical := make([]model.Event, 0, len(applied.Events)+len(res.Synthesized))
		for _, e := range applied.Events {
			if e.Canonical {
				canonical = append(canonical, e)
			}
		}
		canonical = append(canonical, res.Synthesized...)

		snap := s.engine.Score(scoring.RoundInput{
			BoutID:        r.BoutID,
			RoundID:       r.RoundID,
			RedFighter:    r.RedFighter,
			BlueFighter:   r.BlueFighter,
			Events:        canonical,
			ComputedAtSeq: r.LastSequence,
		})
		metrics.RecordScoreComputed()

		sig := ledger.LockSignature(r.BoutID, r.RoundID, len(r.Events), r.LastChainHash)
		return res, snap, sig, nil
	})
	if err != nil {
		return model.Round{}, err
	}

	s.logger.Info(ctx, "round locked",
		logger.String("round", key.String()),
		logger.Int("events", len(locked.Events)),
		logger.String("card", string(locked.Snapshot.Card)),
	)
	return locked, nil
}

// RecordOverride appends an audited post-lock correction. The ledger and the
// lock signature stay untouched; the override carries its own signature
// binding it to the lock it amends.
func (s *Service) RecordOverride(ctx context.Context, key Key, actor, reason string, next model.ScoreSnapshot) (model.Override, error) {
	store, err := s.components()
	if err != nil {
		return model.Override{}, err
	}

	r, err := store.Round(ctx, key)
	if err != nil {
		return model.Override{}, err
	}
	if r.Status != model.RoundLocked || r.Snapshot == nil {
		return model.Override{}, fmt.Errorf("%w: %s", repository.ErrRoundNotLocked, key)
	}

	ov := model.Override{
		OverrideID: uuid.NewString(),
		Actor:      actor,
		Reason:     reason,
		Previous:   *r.Snapshot,
		New:        next,
		Signature:  ledger.OverrideSignature(r.LockSignature, actor, *r.Snapshot, next),
		CreatedAt:  time.Now(),
	}
	if err := store.AppendOverride(ctx, key, ov); err != nil {
		return model.Override{}, err
	}

	s.logger.Info(ctx, "override recorded",
		logger.String("round", key.String()),
		logger.String("actor", actor),
	)
	return ov, nil
}

// ResolveRound runs one fusion pass for a queued round. Workers call this;
// the read path shares the same logic through ensureResolved.
func (s *Service) ResolveRound(ctx context.Context, job workerpool.Job) error {
	store, err := s.components()
	if err != nil {
		return err
	}
	return s.ensureResolved(ctx, store, job)
}

// ensureResolved brings the round's canonicality assignment up to the
// ledger head. Locked rounds are final and resolved rounds are a no-op, so
// calling this on every read is cheap.
func (s *Service) ensureResolved(ctx context.Context, store repository.Store, key Key) error {
	r, err := store.Round(ctx, key)
	if err != nil {
		return err
	}
	if r.Status == model.RoundLocked || r.ResolvedSeq == r.LastSequence {
		return nil
	}

	start := time.Now()
	res := s.resolver.Resolve(r.Events)
	metrics.RecordFusionRunLatency(float64(time.Since(start).Milliseconds()))

	clusters, conflicts := 0, 0
	for _, c := range res.Canonical {
		if c {
			clusters++
		}
	}
	for _, f := range res.Flags {
		if f.Kind == model.FlagFusionConflict {
			conflicts++
		}
	}
	metrics.RecordFusionRun(clusters+conflicts, conflicts, len(res.Synthesized))

	return store.ApplyResolution(ctx, key, res)
}

// components returns the started store or ErrNotStarted.
func (s *Service) components() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
	}
	if s.started {
		stats["rounds_tracked"] = s.store.Count(ctx)
		stats["queue_length"] = s.eventQueue.Len(ctx)
	}
	return stats
}
