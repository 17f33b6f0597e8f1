package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	api "github.com/ringsidehq/roundledger/internal/adapters/http/api"
	service "github.com/ringsidehq/roundledger/internal/app"
	"github.com/ringsidehq/roundledger/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc, err := service.New(service.WithWorkerCount(2))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func registerRound(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/rounds", map[string]any{
		"bout_id":         "bout-1",
		"round_id":        "r1",
		"round_number":    1,
		"red_fighter_id":  "red",
		"blue_fighter_id": "blue",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register round: status %d", resp.StatusCode)
	}
}

func detection(device string, ts int64) map[string]any {
	return map[string]any{
		"bout_id":             "bout-1",
		"round_id":            "r1",
		"fighter_id":          "red",
		"event_type":          "cross",
		"severity":            0.8,
		"confidence":          0.9,
		"timestamp_ms":        ts,
		"source":              "cv",
		"device_or_camera_id": device,
	}
}

func TestRoundRegistration(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts := newTestServer(t)

		Convey("When registering a round", func() {
			registerRound(t, ts)

			Convey("Then registering it again conflicts", func() {
				resp := postJSON(t, ts.URL+"/v1/rounds", map[string]any{
					"bout_id":         "bout-1",
					"round_id":        "r1",
					"round_number":    1,
					"red_fighter_id":  "red",
					"blue_fighter_id": "blue",
				})
				defer func() { _ = resp.Body.Close() }()
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})

			Convey("Then the round is readable", func() {
				resp, err := http.Get(ts.URL + "/v1/rounds/bout-1/r1")
				So(err, ShouldBeNil)
				var round map[string]any
				decode(t, resp, &round)
				So(round["status"], ShouldEqual, "OPEN")
				So(round["red_fighter_id"], ShouldEqual, "red")
			})
		})

		Convey("When the registration body is incomplete", func() {
			resp := postJSON(t, ts.URL+"/v1/rounds", map[string]any{"bout_id": "bout-1"})
			defer func() { _ = resp.Body.Close() }()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading an unknown round", func() {
			resp, err := http.Get(ts.URL + "/v1/rounds/bout-9/r9")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventSubmission(t *testing.T) {
	Convey("Given a registered round", t, func() {
		ts := newTestServer(t)
		registerRound(t, ts)

		Convey("When submitting a detection", func() {
			resp := postJSON(t, ts.URL+"/v1/events", detection("cam-1", 1000))
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			var ack struct {
				Status    string `json:"status"`
				Duplicate bool   `json:"duplicate"`
				EventID   string `json:"event_id"`
			}
			decode(t, resp, &ack)
			So(ack.Status, ShouldEqual, "accepted")
			So(ack.EventID, ShouldNotBeBlank)

			Convey("Then a retransmission acknowledges as duplicate", func() {
				resp := postJSON(t, ts.URL+"/v1/events", detection("cam-1", 1000))
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var dup struct {
					Status    string `json:"status"`
					Duplicate bool   `json:"duplicate"`
					EventID   string `json:"event_id"`
				}
				decode(t, resp, &dup)
				So(dup.Duplicate, ShouldBeTrue)
				So(dup.EventID, ShouldEqual, ack.EventID)
			})
		})

		Convey("When submitting an unknown event type", func() {
			bad := detection("cam-1", 1000)
			bad["event_type"] = "haymaker"
			resp := postJSON(t, ts.URL+"/v1/events", bad)
			defer func() { _ = resp.Body.Close() }()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When submitting an out-of-range confidence", func() {
			bad := detection("cam-1", 1000)
			bad["confidence"] = 1.7
			resp := postJSON(t, ts.URL+"/v1/events", bad)
			defer func() { _ = resp.Body.Close() }()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRoundReads(t *testing.T) {
	Convey("Given a round with a few detections", t, func() {
		ts := newTestServer(t)
		registerRound(t, ts)

		for i, dev := range []string{"cam-1", "cam-2"} {
			resp := postJSON(t, ts.URL+"/v1/events", detection(dev, int64(1000+i*40)))
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			_ = resp.Body.Close()
		}

		Convey("When fetching the score", func() {
			resp, err := http.Get(ts.URL + "/v1/rounds/bout-1/r1/score")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var snap struct {
				Card   string `json:"card"`
				Winner string `json:"winner"`
			}
			decode(t, resp, &snap)
			So(snap.Winner, ShouldEqual, "red")
		})

		Convey("When fetching canonical events", func() {
			resp, err := http.Get(ts.URL + "/v1/rounds/bout-1/r1/events")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body struct {
				Count int `json:"count"`
			}
			decode(t, resp, &body)
			// Two cameras saw one action.
			So(body.Count, ShouldEqual, 1)
		})

		Convey("When verifying the chain", func() {
			resp, err := http.Get(ts.URL + "/v1/rounds/bout-1/r1/chain")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var vr struct {
				Valid       bool `json:"Valid"`
				TotalEvents int  `json:"TotalEvents"`
			}
			decode(t, resp, &vr)
			So(vr.Valid, ShouldBeTrue)
			So(vr.TotalEvents, ShouldEqual, 2)
		})
	})
}

func TestLockAndOverrideEndpoints(t *testing.T) {
	Convey("Given a round with detections", t, func() {
		ts := newTestServer(t)
		registerRound(t, ts)

		resp := postJSON(t, ts.URL+"/v1/events", detection("cam-1", 1000))
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		_ = resp.Body.Close()

		Convey("When locking the round", func() {
			resp := postJSON(t, ts.URL+"/v1/rounds/bout-1/r1/lock", struct{}{})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var lock struct {
				Status        string `json:"status"`
				LockSignature string `json:"lock_signature"`
			}
			decode(t, resp, &lock)
			So(lock.Status, ShouldEqual, "locked")
			So(lock.LockSignature, ShouldNotBeBlank)

			Convey("Then further submissions conflict", func() {
				resp := postJSON(t, ts.URL+"/v1/events", detection("cam-9", 9000))
				defer func() { _ = resp.Body.Close() }()
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})

			Convey("Then an override is recorded", func() {
				scoreResp, err := http.Get(ts.URL + "/v1/rounds/bout-1/r1/score")
				So(err, ShouldBeNil)
				var snap map[string]any
				decode(t, scoreResp, &snap)
				snap["card"] = "10-8"

				resp := postJSON(t, ts.URL+"/v1/rounds/bout-1/r1/override", map[string]any{
					"actor":          "commissioner",
					"reason":         "missed knockdown",
					"score_snapshot": snap,
				})
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)

				var ov struct {
					OverrideID string `json:"override_id"`
					Signature  string `json:"signature"`
				}
				decode(t, resp, &ov)
				So(ov.OverrideID, ShouldNotBeBlank)
				So(ov.Signature, ShouldNotBeBlank)
			})
		})

		Convey("When overriding an unlocked round", func() {
			resp := postJSON(t, ts.URL+"/v1/rounds/bout-1/r1/override", map[string]any{
				"actor":          "commissioner",
				"reason":         "too early",
				"score_snapshot": map[string]any{},
			})
			defer func() { _ = resp.Body.Close() }()
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts := newTestServer(t)

		Convey("When scraping /healthz", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			Convey("Then it serves the metrics registry", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
