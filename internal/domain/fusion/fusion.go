// Package fusion merges near-simultaneous detections of the same physical
// action into one canonical event.
//
// The resolver is a pure function over a round's accepted events: it sorts
// by producer timestamp and scans with a sliding window, grouping events
// that share a fighter and an event-type class. Within an agreeing cluster
// exactly one member is elected canonical; clusters whose members disagree
// on the exact type are never merged silently and are flagged for manual
// review instead. Repeated runs over the same event set converge to the
// same assignment, so the resolver is safe to re-run at any time.
package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// Default resolver tuning.
const (
	defaultWindowMS            = 120
	defaultMomentumWindowMS    = 1500
	defaultMomentumStrikes     = 4
	defaultSignificantSeverity = 0.25
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithWindowMS sets the fusion window in milliseconds.
func WithWindowMS(ms int64) Option {
	return func(r *Resolver) {
		if ms > 0 {
			r.windowMS = ms
		}
	}
}

// WithMomentumWindowMS sets the rolling window the momentum detector scans.
func WithMomentumWindowMS(ms int64) Option {
	return func(r *Resolver) {
		if ms > 0 {
			r.momentumWindowMS = ms
		}
	}
}

// WithMomentumStrikeCount sets how many qualifying strikes inside the
// momentum window synthesize a swing.
func WithMomentumStrikeCount(n int) Option {
	return func(r *Resolver) {
		if n > 1 {
			r.momentumStrikes = n
		}
	}
}

// WithSignificantSeverity sets the severity floor for a strike to qualify
// for momentum detection.
func WithSignificantSeverity(s float64) Option {
	return func(r *Resolver) {
		if s > 0 && s <= 1 {
			r.significantSeverity = s
		}
	}
}

// Resolver assigns canonicality over a round's event log.
type Resolver struct {
	windowMS            int64
	momentumWindowMS    int64
	momentumStrikes     int
	significantSeverity float64
}

// New creates a Resolver with configuration options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		windowMS:            defaultWindowMS,
		momentumWindowMS:    defaultMomentumWindowMS,
		momentumStrikes:     defaultMomentumStrikes,
		significantSeverity: defaultSignificantSeverity,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is a full canonicality assignment for one round. The repository
// applies it under the round's sequencer; the resolver itself never touches
// shared state.
type Result struct {
	// Canonical and Corroborated are keyed by event id and cover every
	// ledger event passed to Resolve.
	Canonical    map[string]bool
	Corroborated map[string]bool

	// Flags holds one review flag per disagreeing cluster, plus flags for
	// conditions like a control segment left open.
	Flags []model.ReviewFlag

	// Synthesized holds derived momentum-swing events, rebuilt from
	// scratch on every resolve. They never enter the ledger.
	Synthesized []model.Event

	// ResolvedSeq is the highest sequence index covered by this result.
	ResolvedSeq int
}

// Resolve computes the canonicality assignment for the given ledger events.
// The input is not mutated.
func (r *Resolver) Resolve(events []model.Event) Result {
	res := Result{
		Canonical:    make(map[string]bool, len(events)),
		Corroborated: make(map[string]bool, len(events)),
		ResolvedSeq:  -1,
	}

	ordered := make([]*model.Event, 0, len(events))
	for i := range events {
		ordered = append(ordered, &events[i])
		if events[i].Sequence > res.ResolvedSeq {
			res.ResolvedSeq = events[i].Sequence
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TimestampMS != ordered[j].TimestampMS {
			return ordered[i].TimestampMS < ordered[j].TimestampMS
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})

	// Partition by fighter and type class: only events sharing both can
	// describe the same physical action. Interleaved events from the
	// other fighter must not split a cluster.
	type streamKey struct {
		fighter string
		class   model.Class
	}
	streams := make(map[streamKey][]*model.Event)
	for _, e := range ordered {
		k := streamKey{fighter: e.FighterID, class: e.Type.Class()}
		streams[k] = append(streams[k], e)
	}

	for _, stream := range streams {
		for start := 0; start < len(stream); {
			cluster := clusterAt(stream, start, r.windowMS)
			r.elect(cluster, &res)
			start += len(cluster)
		}
	}

	res.Flags = append(res.Flags, danglingControlFlags(ordered, res.Canonical)...)

	// Map iteration above is unordered; keep flag output deterministic.
	sort.Slice(res.Flags, func(i, j int) bool {
		a, b := res.Flags[i], res.Flags[j]
		if a.WindowStartMS != b.WindowStartMS {
			return a.WindowStartMS < b.WindowStartMS
		}
		if a.FighterID != b.FighterID {
			return a.FighterID < b.FighterID
		}
		return a.Kind < b.Kind
	})

	res.Synthesized = r.detectMomentum(ordered, res.Canonical)
	return res
}

// danglingControlFlags reports canonical control segments that were opened
// but never closed. Scoring ignores them (the segment's duration is
// unknowable without a round clock), so an operator has to decide.
func danglingControlFlags(ordered []*model.Event, canonical map[string]bool) []model.ReviewFlag {
	open := make(map[string]*model.Event)
	for _, e := range ordered {
		if !canonical[e.EventID] {
			continue
		}
		switch e.Type.Class() {
		case model.ClassControlStart:
			if open[e.FighterID] == nil {
				open[e.FighterID] = e
			}
		case model.ClassControlEnd:
			delete(open, e.FighterID)
		}
	}

	var out []model.ReviewFlag
	for _, start := range open {
		out = append(out, model.ReviewFlag{
			Kind:          model.FlagDanglingControl,
			FighterID:     start.FighterID,
			WindowStartMS: start.TimestampMS,
			EventIDs:      []string{start.EventID},
			Detail:        "control segment opened but never closed",
		})
	}
	return out
}

// clusterAt collects the run of same-stream events starting at start whose
// timestamps fall inside the fusion window measured from the anchor. A
// time-sorted scan keeps this linear without a relation graph.
func clusterAt(stream []*model.Event, start int, windowMS int64) []*model.Event {
	anchor := stream[start]
	out := []*model.Event{anchor}
	for i := start + 1; i < len(stream); i++ {
		if stream[i].TimestampMS-anchor.TimestampMS > windowMS {
			break
		}
		out = append(out, stream[i])
	}
	return out
}

// elect marks canonicality for one cluster. Agreeing clusters get exactly
// one canonical member; disagreeing clusters keep every member
// non-canonical and raise a review flag.
func (r *Resolver) elect(cluster []*model.Event, res *Result) {
	if len(cluster) == 1 {
		res.Canonical[cluster[0].EventID] = true
		return
	}

	agreed := true
	for _, e := range cluster[1:] {
		if e.Type != cluster[0].Type {
			agreed = false
			break
		}
	}

	if !agreed {
		res.Flags = append(res.Flags, conflictFlag(cluster))
		for _, e := range cluster {
			res.Canonical[e.EventID] = false
		}
		return
	}

	best := cluster[0]
	for _, e := range cluster[1:] {
		if preferred(e, best) {
			best = e
		}
	}
	for _, e := range cluster {
		res.Canonical[e.EventID] = e.EventID == best.EventID
	}

	// Human agreement with a CV detection of the same type corroborates
	// the whole cluster.
	var human, cv bool
	for _, e := range cluster {
		switch e.Source {
		case model.SourceHuman:
			human = true
		case model.SourceCV:
			cv = true
		}
	}
	if human && cv {
		for _, e := range cluster {
			res.Corroborated[e.EventID] = true
		}
	}
}

// preferred reports whether a should be elected over b: higher confidence
// first, then the more frontal observation, then the earlier ledger entry
// as the deterministic tie-break. Human observations count as frontal.
func preferred(a, b *model.Event) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if fa, fb := frontality(a), frontality(b); fa != fb {
		return fa < fb
	}
	return a.Sequence < b.Sequence
}

func frontality(e *model.Event) float64 {
	if e.Source != model.SourceCV {
		return 0
	}
	return math.Abs(e.AngleDegrees)
}

func conflictFlag(cluster []*model.Event) model.ReviewFlag {
	ids := make([]string, 0, len(cluster))
	types := make(map[model.EventType]struct{}, len(cluster))
	for _, e := range cluster {
		ids = append(ids, e.EventID)
		types[e.Type] = struct{}{}
	}
	sort.Strings(ids)
	return model.ReviewFlag{
		Kind:          model.FlagFusionConflict,
		FighterID:     cluster[0].FighterID,
		WindowStartMS: cluster[0].TimestampMS,
		WindowEndMS:   cluster[len(cluster)-1].TimestampMS,
		EventIDs:      ids,
		Detail:        fmt.Sprintf("%d sources disagree on event type", len(types)),
	}
}
