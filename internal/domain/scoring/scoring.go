// Package scoring converts a round's canonical event set into a
// 10-point-must score.
//
// Score is a pure function: no clock, no randomness, no map-order
// dependence. Recomputing from the same canonical set yields a
// byte-identical snapshot, which is what makes the cached and recomputed
// paths interchangeable.
package scoring

import (
	"math"
	"sort"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

const msPerSecond = 1000.0

// RoundInput carries everything the engine needs to score one round.
type RoundInput struct {
	BoutID      string
	RoundID     string
	RedFighter  string
	BlueFighter string

	// Events is the canonical set: canonical ledger events plus
	// synthesized momentum events. Order does not matter; the engine
	// sorts internally.
	Events []model.Event

	// ComputedAtSeq stamps which ledger sequence the set was read at.
	ComputedAtSeq int
}

// Engine computes score snapshots from canonical events.
type Engine struct {
	cfg Config
}

// New validates the configuration and builds an Engine. An invalid table is
// rejected here, before any round can be scored against it.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// tally accumulates one fighter's side during the scan.
type tally struct {
	striking  float64
	grappling float64
	control   float64

	damage float64 // knockdowns + significant-strike value

	knockdowns         int
	totalStrikes       int
	significantStrikes int
	volumeStrikes      int

	controlMS     int64
	controlOpenAt int64 // -1 when no segment is open
}

// Score computes the snapshot for a round. Safe to call concurrently.
func (e *Engine) Score(in RoundInput) model.ScoreSnapshot {
	events := make([]model.Event, len(in.Events))
	copy(events, in.Events)
	sort.Slice(events, func(i, j int) bool {
		if events[i].TimestampMS != events[j].TimestampMS {
			return events[i].TimestampMS < events[j].TimestampMS
		}
		if events[i].Sequence != events[j].Sequence {
			return events[i].Sequence < events[j].Sequence
		}
		return events[i].EventID < events[j].EventID
	})

	red := &tally{controlOpenAt: -1}
	blue := &tally{controlOpenAt: -1}
	var confSum float64

	for i := range events {
		ev := &events[i]
		confSum += ev.Confidence
		switch ev.FighterID {
		case in.RedFighter:
			e.accrue(red, ev)
		case in.BlueFighter:
			e.accrue(blue, ev)
		}
	}

	var flags model.GuardrailFlags
	e.applyVolume(red, blue, &flags)
	red.control += float64(red.controlMS) / msPerSecond * e.cfg.ControlRatePerSecond
	blue.control += float64(blue.controlMS) / msPerSecond * e.cfg.ControlRatePerSecond

	snap := model.ScoreSnapshot{
		BoutID:        in.BoutID,
		RoundID:       in.RoundID,
		Red:           fighterScore(in.RedFighter, red, e.cfg.Weights),
		Blue:          fighterScore(in.BlueFighter, blue, e.cfg.Weights),
		EventCount:    len(events),
		ComputedAtSeq: in.ComputedAtSeq,
	}
	if len(events) > 0 {
		snap.MeanConfidence = confSum / float64(len(events))
	}
	snap.Differential = snap.Red.Weighted - snap.Blue.Weighted

	winner, card := e.decide(&snap, &flags)
	snap.Winner = winner
	snap.Card = card
	snap.Guardrails = flags
	snap.Uncertainty = e.uncertainty(&snap)
	return snap
}

// accrue applies one canonical event to a fighter's tally.
func (e *Engine) accrue(t *tally, ev *model.Event) {
	switch ev.Type.Class() {
	case model.ClassStrike:
		t.totalStrikes++
		if ev.Severity >= e.cfg.SignificantSeverity {
			t.significantStrikes++
			v := e.cfg.baseValue(ev.Type) * ev.Severity
			t.striking += v
			t.damage += v
		} else {
			t.volumeStrikes++ // valued later, with dampening
		}
	case model.ClassKnockdown:
		t.knockdowns++
		v := e.cfg.baseValue(ev.Type)
		t.striking += v
		t.damage += v
	case model.ClassGrapple, model.ClassSubmission:
		t.grappling += e.cfg.baseValue(ev.Type)
	case model.ClassControlStart:
		if t.controlOpenAt < 0 {
			t.controlOpenAt = ev.TimestampMS
		}
	case model.ClassControlEnd:
		if t.controlOpenAt >= 0 && ev.TimestampMS > t.controlOpenAt {
			t.controlMS += ev.TimestampMS - t.controlOpenAt
		}
		t.controlOpenAt = -1
	case model.ClassMomentum:
		t.control += e.cfg.baseValue(ev.Type)
	}
}

// applyVolume values non-significant strikes. Both fighters earn the base
// rate; the leader's advantage beyond the configured differential counts at
// the dampening factor so pure output volume cannot masquerade as damage.
func (e *Engine) applyVolume(red, blue *tally, flags *model.GuardrailFlags) {
	leader, trailer := red, blue
	if blue.volumeStrikes > red.volumeStrikes {
		leader, trailer = blue, red
	}
	trailer.striking += float64(trailer.volumeStrikes) * e.cfg.VolumeBase

	advantage := leader.volumeStrikes - trailer.volumeStrikes
	counted := float64(leader.volumeStrikes)
	if advantage > e.cfg.VolumeDampenAfter {
		excess := float64(advantage - e.cfg.VolumeDampenAfter)
		counted = float64(leader.volumeStrikes) - excess + excess*e.cfg.VolumeDampenFactor
		flags.VolumeDampened = true
	}
	leader.striking += counted * e.cfg.VolumeBase
}

func fighterScore(id string, t *tally, w Weights) model.FighterScore {
	return model.FighterScore{
		FighterID: id,
		Raw: model.CategoryTotals{
			Striking:  t.striking,
			Grappling: t.grappling,
			Control:   t.control,
		},
		Weighted:           t.striking*w.Striking + t.grappling*w.Grappling + t.control*w.Control,
		DamageValue:        t.damage,
		KnockdownCount:     t.knockdowns,
		TotalStrikes:       t.totalStrikes,
		SignificantStrikes: t.significantStrikes,
		ControlSeconds:     float64(t.controlMS) / msPerSecond,
	}
}

// decide maps the differential to a card, applying damage primacy and the
// extreme-card guardrail.
func (e *Engine) decide(snap *model.ScoreSnapshot, flags *model.GuardrailFlags) (string, model.Card) {
	absDiff := math.Abs(snap.Differential)

	var lead, trail *model.FighterScore
	switch {
	case snap.Differential > 0:
		lead, trail = &snap.Red, &snap.Blue
	case snap.Differential < 0:
		lead, trail = &snap.Blue, &snap.Red
	}

	// Damage primacy: overwhelming damage share wins the round outright,
	// superseding the additive total.
	totalDamage := snap.Red.DamageValue + snap.Blue.DamageValue
	var forced *model.FighterScore
	if totalDamage > 0 {
		if snap.Red.DamageValue/totalDamage >= e.cfg.DamagePrimacyRatio {
			forced = &snap.Red
		} else if snap.Blue.DamageValue/totalDamage >= e.cfg.DamagePrimacyRatio {
			forced = &snap.Blue
		}
	}

	card := e.cardFor(absDiff)
	if forced != nil {
		flags.DamagePrimacyApplied = true
		if lead == nil || lead.FighterID != forced.FighterID {
			// The additive total disagreed; the damage leader takes a
			// standard winning card.
			lead = forced
			if forced == &snap.Red {
				trail = &snap.Blue
			} else {
				trail = &snap.Red
			}
			card = model.Card109
		}
	}

	if lead == nil || card == model.Card1010 {
		if forced == nil {
			return "", model.Card1010
		}
		return forced.FighterID, model.Card109
	}

	if card == model.Card108 || card == model.Card107 {
		flags.ExtremeCardRequested = true
		flags.KnockdownAdvantage = lead.KnockdownCount-trail.KnockdownCount >= e.cfg.GuardrailKnockdowns
		flags.StrikeDifferential = lead.TotalStrikes-trail.TotalStrikes > e.cfg.GuardrailStrikeFloor
		if !flags.KnockdownAdvantage && !flags.StrikeDifferential {
			flags.CappedAtTenNine = true
			card = model.Card109
		}
	}
	return lead.FighterID, card
}

// cardFor maps an absolute differential to the requested card, before
// guardrails.
func (e *Engine) cardFor(absDiff float64) model.Card {
	switch {
	case absDiff < e.cfg.DrawMargin:
		return model.Card1010
	case absDiff < e.cfg.Margin108:
		return model.Card109
	case absDiff < e.cfg.Margin107:
		return model.Card108
	default:
		return model.Card107
	}
}

// uncertainty derives the confidence band: sparse or low-confidence input
// makes the band high; a differential near any card boundary keeps it at
// medium even on good input.
func (e *Engine) uncertainty(snap *model.ScoreSnapshot) model.Uncertainty {
	if snap.EventCount < e.cfg.UncertaintyMinEvents ||
		snap.MeanConfidence < e.cfg.UncertaintyMinConfidence {
		return model.UncertaintyHigh
	}
	absDiff := math.Abs(snap.Differential)
	boundaryDist := math.Min(
		math.Abs(absDiff-e.cfg.DrawMargin),
		math.Min(math.Abs(absDiff-e.cfg.Margin108), math.Abs(absDiff-e.cfg.Margin107)),
	)
	if boundaryDist <= e.cfg.UncertaintyBoundaryMargin {
		return model.UncertaintyMedium
	}
	return model.UncertaintyLow
}
