package scoring_test

import (
	"encoding/json"
	"testing"

	model "github.com/ringsidehq/roundledger/internal/domain/model"
	scoring "github.com/ringsidehq/roundledger/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func newEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	e, err := scoring.New(scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	return e
}

func strike(id string, seq int, fighter string, typ model.EventType, ts int64, severity float64) model.Event {
	return model.Event{
		EventID:     id,
		FighterID:   fighter,
		Type:        typ,
		TimestampMS: ts,
		Severity:    severity,
		Confidence:  0.9,
		Sequence:    seq,
		Canonical:   true,
	}
}

func input(events ...model.Event) scoring.RoundInput {
	return scoring.RoundInput{
		BoutID:      "bout-1",
		RoundID:     "r1",
		RedFighter:  "red",
		BlueFighter: "blue",
		Events:      events,
	}
}

func TestScoreCards(t *testing.T) {
	Convey("Given the scoring engine with the stock table", t, func() {
		e := newEngine(t)

		Convey("When neither fighter lands anything", func() {
			snap := e.Score(input())

			Convey("Then the round is an even 10-10 with no winner", func() {
				So(snap.Card, ShouldEqual, model.Card1010)
				So(snap.Winner, ShouldBeBlank)
				So(snap.Uncertainty, ShouldEqual, model.UncertaintyHigh)
			})
		})

		Convey("When red edges a close striking round", func() {
			snap := e.Score(input(
				strike("r1", 0, "red", model.TypeCross, 1000, 0.9),
				strike("r2", 1, "red", model.TypeHook, 2000, 0.8),
				strike("b1", 2, "blue", model.TypeJab, 3000, 0.6),
			))

			Convey("Then red takes a 10-9", func() {
				So(snap.Winner, ShouldEqual, "red")
				So(snap.Card, ShouldEqual, model.Card109)
				So(snap.Differential, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When red drops blue twice", func() {
			snap := e.Score(input(
				strike("kd1", 0, "red", model.TypeKnockdownHard, 60000, 0.9),
				strike("kd2", 1, "red", model.TypeKnockdownHard, 180000, 0.9),
				strike("b1", 2, "blue", model.TypeJab, 90000, 0.5),
				strike("b2", 3, "blue", model.TypeJab, 91000, 0.5),
				strike("b3", 4, "blue", model.TypeJab, 92000, 0.5),
			))

			Convey("Then the two-knockdown guardrail admits the 10-8", func() {
				So(snap.Winner, ShouldEqual, "red")
				So(snap.Card, ShouldEqual, model.Card108)
				So(snap.Red.KnockdownCount, ShouldEqual, 2)
				So(snap.Guardrails.ExtremeCardRequested, ShouldBeTrue)
				So(snap.Guardrails.KnockdownAdvantage, ShouldBeTrue)
				So(snap.Guardrails.CappedAtTenNine, ShouldBeFalse)
			})
		})
	})
}

func TestScoreGuardrail(t *testing.T) {
	Convey("Given a lopsided differential without knockdowns", t, func() {
		e := newEngine(t)

		events := make([]model.Event, 0, 40)
		for i := 0; i < 40; i++ {
			events = append(events, strike("r"+string(rune('a'+i%26))+string(rune('a'+i/26)), i, "red", model.TypeHeadKick, int64(1000+i*5000), 1.0))
		}
		snap := e.Score(input(events...))

		Convey("Then the extreme card is requested but capped at 10-9", func() {
			So(snap.Differential, ShouldBeGreaterThanOrEqualTo, 60)
			So(snap.Guardrails.ExtremeCardRequested, ShouldBeTrue)
			So(snap.Guardrails.KnockdownAdvantage, ShouldBeFalse)
			So(snap.Guardrails.StrikeDifferential, ShouldBeFalse)
			So(snap.Guardrails.CappedAtTenNine, ShouldBeTrue)
			So(snap.Card, ShouldEqual, model.Card109)
			So(snap.Winner, ShouldEqual, "red")
		})
	})

	Convey("Given an overwhelming strike differential", t, func() {
		e := newEngine(t)

		events := make([]model.Event, 0, 110)
		for i := 0; i < 110; i++ {
			events = append(events, strike("r"+string(rune('a'+i%26))+string(rune('a'+i/26)), i, "red", model.TypeCross, int64(1000+i*2000), 1.0))
		}
		snap := e.Score(input(events...))

		Convey("Then the strike-differential guardrail admits the 10-7", func() {
			So(snap.Guardrails.StrikeDifferential, ShouldBeTrue)
			So(snap.Card, ShouldEqual, model.Card107)
		})
	})
}

func TestScoreDamagePrimacy(t *testing.T) {
	Convey("Given blue out-points red on grappling while red lands the only real damage", t, func() {
		e := newEngine(t)

		snap := e.Score(input(
			strike("kd", 0, "red", model.TypeKnockdownFlash, 120000, 0.9),
			strike("td1", 1, "blue", model.TypeTakedown, 30000, 0),
			strike("td2", 2, "blue", model.TypeTakedown, 90000, 0),
			strike("td3", 3, "blue", model.TypeTakedown, 150000, 0),
			model.Event{EventID: "cs", FighterID: "blue", Type: model.TypeControlStart, TimestampMS: 160000, Confidence: 1, Sequence: 4, Canonical: true},
			model.Event{EventID: "ce", FighterID: "blue", Type: model.TypeControlEnd, TimestampMS: 220000, Confidence: 1, Sequence: 5, Canonical: true},
		))

		Convey("Then damage primacy forces the round for red at 10-9", func() {
			So(snap.Guardrails.DamagePrimacyApplied, ShouldBeTrue)
			So(snap.Winner, ShouldEqual, "red")
			So(snap.Card, ShouldEqual, model.Card109)
		})

		Convey("And blue's control time still accrued", func() {
			So(snap.Blue.ControlSeconds, ShouldEqual, 60)
		})
	})
}

func TestScoreVolumeDampening(t *testing.T) {
	Convey("Given red throws pure volume far beyond blue", t, func() {
		e := newEngine(t)

		events := make([]model.Event, 0, 60)
		for i := 0; i < 50; i++ {
			events = append(events, strike("r"+string(rune('a'+i%26))+string(rune('a'+i/26)), i, "red", model.TypeJab, int64(1000+i*500), 0.1))
		}
		for i := 0; i < 5; i++ {
			events = append(events, strike("b"+string(rune('a'+i)), 50+i, "blue", model.TypeJab, int64(2000+i*500), 0.1))
		}
		snap := e.Score(input(events...))

		Convey("Then the advantage beyond the cutoff is dampened", func() {
			So(snap.Guardrails.VolumeDampened, ShouldBeTrue)
			So(snap.Winner, ShouldEqual, "red")

			// Advantage is 45; the 25 beyond the cutoff count at a
			// quarter rate, so 50 strikes are valued as 31.25.
			wantStriking := (50.0 - 25.0 + 25.0*0.25) * 0.3
			So(snap.Red.Raw.Striking, ShouldAlmostEqual, wantStriking, 1e-9)
		})
	})
}

func TestScoreControlPairing(t *testing.T) {
	Convey("Given control segments", t, func() {
		e := newEngine(t)

		Convey("When a segment is opened and closed", func() {
			snap := e.Score(input(
				model.Event{EventID: "cs", FighterID: "red", Type: model.TypeControlStart, TimestampMS: 10000, Confidence: 1, Sequence: 0, Canonical: true},
				model.Event{EventID: "ce", FighterID: "red", Type: model.TypeControlEnd, TimestampMS: 70000, Confidence: 1, Sequence: 1, Canonical: true},
			))

			Convey("Then the duration accrues at the control rate", func() {
				So(snap.Red.ControlSeconds, ShouldEqual, 60)
				So(snap.Red.Raw.Control, ShouldEqual, 30) // 60s * 0.5/s
			})
		})

		Convey("When a segment is never closed", func() {
			snap := e.Score(input(
				model.Event{EventID: "cs", FighterID: "red", Type: model.TypeControlStart, TimestampMS: 10000, Confidence: 1, Sequence: 0, Canonical: true},
			))

			Convey("Then no control time accrues for it", func() {
				So(snap.Red.ControlSeconds, ShouldEqual, 0)
				So(snap.Red.Raw.Control, ShouldEqual, 0)
			})
		})
	})
}

func TestScoreDeterminism(t *testing.T) {
	Convey("Given the same canonical set in different input orders", t, func() {
		e := newEngine(t)

		events := []model.Event{
			strike("a", 0, "red", model.TypeCross, 5000, 0.9),
			strike("b", 1, "blue", model.TypeTakedown, 6000, 0),
			strike("c", 2, "red", model.TypeKnockdownFlash, 7000, 0.8),
			strike("d", 3, "blue", model.TypeLegKick, 8000, 0.4),
		}
		reversed := []model.Event{events[3], events[2], events[1], events[0]}

		first := e.Score(input(events...))
		second := e.Score(input(reversed...))

		Convey("Then the snapshots are byte-identical", func() {
			a, err := json.Marshal(first)
			So(err, ShouldBeNil)
			b, err := json.Marshal(second)
			So(err, ShouldBeNil)
			So(string(a), ShouldEqual, string(b))
		})
	})
}

func TestScoreUncertainty(t *testing.T) {
	Convey("Given rounds of varying evidence quality", t, func() {
		e := newEngine(t)

		Convey("When the round is sparse", func() {
			snap := e.Score(input(
				strike("a", 0, "red", model.TypeJab, 1000, 0.9),
			))
			So(snap.Uncertainty, ShouldEqual, model.UncertaintyHigh)
		})

		Convey("When a well-evidenced round sits near a card boundary", func() {
			events := make([]model.Event, 0, 12)
			for i := 0; i < 12; i++ {
				events = append(events, strike("r"+string(rune('a'+i)), i, "red", model.TypeJab, int64(1000+i*1000), 0.3))
			}
			snap := e.Score(input(events...))

			So(snap.EventCount, ShouldBeGreaterThanOrEqualTo, 10)
			So(snap.Uncertainty, ShouldEqual, model.UncertaintyMedium)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given the scoring configuration", t, func() {
		Convey("Then the stock table validates", func() {
			So(scoring.DefaultConfig().Validate(), ShouldBeNil)
		})

		Convey("When weights do not sum to one", func() {
			cfg := scoring.DefaultConfig()
			cfg.Weights.Striking = 0.9
			_, err := scoring.New(cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("When a scoreable type has no base value", func() {
			cfg := scoring.DefaultConfig()
			delete(cfg.BaseValues, "head_kick")
			_, err := scoring.New(cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("When a base value names an unknown type", func() {
			cfg := scoring.DefaultConfig()
			cfg.BaseValues["haymaker"] = 5
			_, err := scoring.New(cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("When card margins are out of order", func() {
			cfg := scoring.DefaultConfig()
			cfg.Margin108 = cfg.Margin107 + 1
			_, err := scoring.New(cfg)
			So(err, ShouldNotBeNil)
		})
	})
}
