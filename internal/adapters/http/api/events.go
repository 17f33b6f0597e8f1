// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// EventsHandler handles detection submissions.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the wire schema for POST /v1/events.
type eventRequest struct {
	BoutID      string  `json:"bout_id"`
	RoundID     string  `json:"round_id"`
	FighterID   string  `json:"fighter_id"`
	EventType   string  `json:"event_type"`
	Severity    float64 `json:"severity"`
	Confidence  float64 `json:"confidence"`
	TimestampMS int64   `json:"timestamp_ms"`
	Source      string  `json:"source"`
	DeviceID    string  `json:"device_or_camera_id"`

	AngleDegrees float64 `json:"angle_degrees,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
	Position     string  `json:"position,omitempty"`
	Target       string  `json:"target,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.BoutID) == "":
		return errors.New("missing bout_id")
	case strings.TrimSpace(e.RoundID) == "":
		return errors.New("missing round_id")
	case strings.TrimSpace(e.FighterID) == "":
		return errors.New("missing fighter_id")
	case strings.TrimSpace(e.EventType) == "":
		return errors.New("missing event_type")
	case strings.TrimSpace(e.Source) == "":
		return errors.New("missing source")
	case strings.TrimSpace(e.DeviceID) == "":
		return errors.New("missing device_or_camera_id")
	}
	return nil
}

// toModel parses enum fields into their domain types.
func (e eventRequest) toModel() (model.Event, error) {
	t, err := model.ParseEventType(e.EventType)
	if err != nil {
		return model.Event{}, err
	}
	src, err := model.ParseSource(e.Source)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		BoutID:       e.BoutID,
		RoundID:      e.RoundID,
		FighterID:    e.FighterID,
		Type:         t,
		Severity:     e.Severity,
		Confidence:   e.Confidence,
		TimestampMS:  e.TimestampMS,
		Source:       src,
		DeviceID:     e.DeviceID,
		AngleDegrees: e.AngleDegrees,
		Distance:     e.Distance,
		Position:     e.Position,
		Target:       e.Target,
	}, nil
}

// ackResponse acknowledges an accepted or deduplicated submission.
type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id"`
	Sequence  int    `json:"sequence_index"`
	ChainHash string `json:"chain_hash"`
}

// HandlePostEvent handles POST /v1/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	e, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	accepted, dup, err := h.deps.SubmitEvent(r.Context(), e)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := "accepted"
	code := http.StatusCreated
	if dup {
		status = "duplicate"
		code = http.StatusOK
	}
	writeJSON(w, code, ackResponse{
		Status:    status,
		Duplicate: dup,
		EventID:   accepted.EventID,
		Sequence:  accepted.Sequence,
		ChainHash: accepted.ChainHash,
	})
}
