package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/ringsidehq/roundledger/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseEventType(t *testing.T) {
	Convey("Given the event type enumeration", t, func() {
		Convey("When parsing known wire names", func() {
			jab, err := model.ParseEventType("jab")
			So(err, ShouldBeNil)
			So(jab, ShouldEqual, model.TypeJab)

			kd, err := model.ParseEventType("knockdown_hard")
			So(err, ShouldBeNil)
			So(kd, ShouldEqual, model.TypeKnockdownHard)
		})

		Convey("When parsing an unknown name", func() {
			_, err := model.ParseEventType("haymaker")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid event type")
		})

		Convey("Then every declared type round-trips through its wire name", func() {
			for _, typ := range model.AllEventTypes() {
				parsed, err := model.ParseEventType(typ.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, typ)
			}
		})
	})
}

func TestParseSource(t *testing.T) {
	Convey("Given producer kinds", t, func() {
		Convey("When parsing valid kinds", func() {
			for _, s := range []string{"human", "cv", "fusion"} {
				src, err := model.ParseSource(s)
				So(err, ShouldBeNil)
				So(string(src), ShouldEqual, s)
			}
		})

		Convey("When parsing an invalid kind", func() {
			_, err := model.ParseSource("oracle")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEventTypeClassification(t *testing.T) {
	Convey("Given the type taxonomy", t, func() {
		Convey("Then strikes classify as strikes in the striking category", func() {
			So(model.TypeHeadKick.Class(), ShouldEqual, model.ClassStrike)
			So(model.TypeHeadKick.Category(), ShouldEqual, model.CategoryStriking)
		})

		Convey("Then knockdown tiers are distinct types in the striking category", func() {
			So(model.TypeKnockdownFlash.Class(), ShouldEqual, model.ClassKnockdown)
			So(model.TypeKnockdownNearFinish.Class(), ShouldEqual, model.ClassKnockdown)
			So(model.TypeKnockdownHard.Category(), ShouldEqual, model.CategoryStriking)
		})

		Convey("Then grappling and submissions land in the grappling category", func() {
			So(model.TypeTakedown.Class(), ShouldEqual, model.ClassGrapple)
			So(model.TypeSubmissionTight.Class(), ShouldEqual, model.ClassSubmission)
			So(model.TypeSubmissionTight.Category(), ShouldEqual, model.CategoryGrappling)
		})

		Convey("Then control boundaries are not scoreable themselves", func() {
			So(model.TypeControlStart.Scoreable(), ShouldBeFalse)
			So(model.TypeControlEnd.Scoreable(), ShouldBeFalse)
			So(model.TypeControlStart.Category(), ShouldEqual, model.CategoryControl)
		})
	})
}

func TestEventTypeJSON(t *testing.T) {
	Convey("Given an event with a typed action", t, func() {
		e := model.Event{EventID: "e1", Type: model.TypeLegKick, Source: model.SourceCV}

		Convey("When marshaled and unmarshaled", func() {
			data, err := json.Marshal(e)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"event_type":"leg_kick"`)

			var back model.Event
			So(json.Unmarshal(data, &back), ShouldBeNil)
			So(back.Type, ShouldEqual, model.TypeLegKick)
		})

		Convey("When unmarshaling an unknown type name", func() {
			var back model.Event
			err := json.Unmarshal([]byte(`{"event_type":"haymaker"}`), &back)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRoundClone(t *testing.T) {
	Convey("Given a round with events and flags", t, func() {
		r := model.Round{
			BoutID:  "b1",
			RoundID: "r1",
			Status:  model.RoundActive,
			Events: []model.Event{
				{EventID: "e1", Type: model.TypeJab},
			},
			ReviewFlags: []model.ReviewFlag{
				{Kind: model.FlagFusionConflict, EventIDs: []string{"e1"}},
			},
		}

		Convey("When cloned and the clone is mutated", func() {
			c := r.Clone()
			c.Events[0].EventID = "mutated"
			c.ReviewFlags[0].EventIDs[0] = "mutated"

			Convey("Then the original is unchanged", func() {
				So(r.Events[0].EventID, ShouldEqual, "e1")
				So(r.ReviewFlags[0].EventIDs[0], ShouldEqual, "e1")
			})
		})
	})
}
