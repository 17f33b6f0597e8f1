package fusion

import (
	"fmt"
	"sort"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// detectMomentum scans the canonical strike timeline for bursts: at least
// momentumStrikes qualifying strikes from one fighter inside the rolling
// window synthesize one momentum-swing event. Swings are derived data and
// deterministic, so rebuilding them on every resolve keeps the pass
// idempotent without touching the ledger.
func (r *Resolver) detectMomentum(ordered []*model.Event, canonical map[string]bool) []model.Event {
	perFighter := make(map[string][]*model.Event)
	for _, e := range ordered {
		if !canonical[e.EventID] {
			continue
		}
		if e.Type.Class() != model.ClassStrike || e.Severity < r.significantSeverity {
			continue
		}
		perFighter[e.FighterID] = append(perFighter[e.FighterID], e)
	}

	fighters := make([]string, 0, len(perFighter))
	for f := range perFighter {
		fighters = append(fighters, f)
	}
	sort.Strings(fighters)

	var out []model.Event
	for _, fighter := range fighters {
		strikes := perFighter[fighter]
		for lo := 0; lo < len(strikes); {
			hi := lo
			for hi+1 < len(strikes) &&
				strikes[hi+1].TimestampMS-strikes[lo].TimestampMS <= r.momentumWindowMS {
				hi++
			}
			if hi-lo+1 >= r.momentumStrikes {
				out = append(out, r.synthesize(fighter, strikes[lo:hi+1]))
				lo = hi + 1 // bursts never overlap
				continue
			}
			lo++
		}
	}
	return out
}

// synthesize builds the derived momentum-swing event for a burst. The id is
// a pure function of the burst so re-resolution produces the same event.
func (r *Resolver) synthesize(fighter string, burst []*model.Event) model.Event {
	first, last := burst[0], burst[len(burst)-1]
	var conf float64
	for _, e := range burst {
		conf += e.Confidence
	}
	conf /= float64(len(burst))

	return model.Event{
		EventID:      fmt.Sprintf("momentum-%s-%d-%d", fighter, first.TimestampMS, last.TimestampMS),
		BoutID:       first.BoutID,
		RoundID:      first.RoundID,
		FighterID:    fighter,
		Type:         model.TypeMomentumSwing,
		Severity:     0, // non-damage by definition
		Confidence:   conf,
		TimestampMS:  last.TimestampMS,
		Source:       model.SourceFusion,
		DeviceID:     "fusion-resolver",
		Canonical:    true,
		Corroborated: false,
	}
}
