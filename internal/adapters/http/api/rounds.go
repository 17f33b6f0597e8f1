// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// RoundsHandler handles round lifecycle and read requests.
type RoundsHandler struct {
	deps Dependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps Dependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// registerRequest mirrors the wire schema for POST /v1/rounds.
type registerRequest struct {
	BoutID      string `json:"bout_id"`
	RoundID     string `json:"round_id"`
	RoundNumber int    `json:"round_number"`
	RedFighter  string `json:"red_fighter_id"`
	BlueFighter string `json:"blue_fighter_id"`
}

func (r registerRequest) validate() error {
	switch {
	case strings.TrimSpace(r.BoutID) == "":
		return errors.New("missing bout_id")
	case strings.TrimSpace(r.RoundID) == "":
		return errors.New("missing round_id")
	case r.RoundNumber < 1:
		return errors.New("round_number must be positive")
	case strings.TrimSpace(r.RedFighter) == "":
		return errors.New("missing red_fighter_id")
	case strings.TrimSpace(r.BlueFighter) == "":
		return errors.New("missing blue_fighter_id")
	case r.RedFighter == r.BlueFighter:
		return errors.New("red and blue fighters must differ")
	}
	return nil
}

// HandleRegister handles POST /v1/rounds requests.
func (h *RoundsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	key := Key{BoutID: req.BoutID, RoundID: req.RoundID}
	if err := h.deps.RegisterRound(r.Context(), key, req.RoundNumber, req.RedFighter, req.BlueFighter); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":   "registered",
		"bout_id":  req.BoutID,
		"round_id": req.RoundID,
	})
}

// roundResponse is the full round view, overrides and flags included.
type roundResponse struct {
	BoutID        string               `json:"bout_id"`
	RoundID       string               `json:"round_id"`
	RoundNumber   int                  `json:"round_number"`
	RedFighter    string               `json:"red_fighter_id"`
	BlueFighter   string               `json:"blue_fighter_id"`
	Status        model.RoundStatus    `json:"status"`
	EventCount    int                  `json:"event_count"`
	LastChainHash string               `json:"last_chain_hash"`
	ReviewFlags   []model.ReviewFlag   `json:"review_flags,omitempty"`
	Snapshot      *model.ScoreSnapshot `json:"score_snapshot,omitempty"`
	LockSignature string               `json:"lock_signature,omitempty"`
	Overrides     []model.Override     `json:"overrides,omitempty"`
}

// HandleGetRound handles GET /v1/rounds/{bout}/{round} requests.
func (h *RoundsHandler) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.deps.Round(r.Context(), roundKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundResponse{
		BoutID:        round.BoutID,
		RoundID:       round.RoundID,
		RoundNumber:   round.RoundNumber,
		RedFighter:    round.RedFighter,
		BlueFighter:   round.BlueFighter,
		Status:        round.Status,
		EventCount:    len(round.Events),
		LastChainHash: round.LastChainHash,
		ReviewFlags:   round.ReviewFlags,
		Snapshot:      round.Snapshot,
		LockSignature: round.LockSignature,
		Overrides:     round.Overrides,
	})
}

// HandleGetScore handles GET /v1/rounds/{bout}/{round}/score requests.
func (h *RoundsHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Score(r.Context(), roundKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleGetEvents handles GET /v1/rounds/{bout}/{round}/events requests. It
// returns the canonical timeline, synthesized momentum swings included.
func (h *RoundsHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.CanonicalEvents(r.Context(), roundKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// HandleVerifyChain handles GET /v1/rounds/{bout}/{round}/chain requests.
func (h *RoundsHandler) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	vr, err := h.deps.VerifyRoundChain(r.Context(), roundKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vr)
}

// HandleLock handles POST /v1/rounds/{bout}/{round}/lock requests.
func (h *RoundsHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	round, err := h.deps.Lock(r.Context(), roundKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "locked",
		"lock_signature": round.LockSignature,
		"score_snapshot": round.Snapshot,
		"review_flags":   round.ReviewFlags,
	})
}

// overrideRequest mirrors the wire schema for POST .../override.
type overrideRequest struct {
	Actor    string              `json:"actor"`
	Reason   string              `json:"reason"`
	Snapshot model.ScoreSnapshot `json:"score_snapshot"`
}

func (o overrideRequest) validate() error {
	switch {
	case strings.TrimSpace(o.Actor) == "":
		return errors.New("missing actor")
	case strings.TrimSpace(o.Reason) == "":
		return errors.New("missing reason")
	}
	return nil
}

// HandleOverride handles POST /v1/rounds/{bout}/{round}/override requests.
func (h *RoundsHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ov, err := h.deps.RecordOverride(r.Context(), roundKey(r), req.Actor, req.Reason, req.Snapshot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ov)
}
