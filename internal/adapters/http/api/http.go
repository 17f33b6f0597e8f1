// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ringsidehq/roundledger/internal/adapters/repository"
	"github.com/ringsidehq/roundledger/internal/domain/ledger"
	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// Key addresses one round in handler signatures.
type Key = repository.Key

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RegisterRound creates a round in OPEN state.
	RegisterRound(ctx context.Context, key Key, roundNumber int, redFighter, blueFighter string) error

	// SubmitEvent validates, fingerprints and appends one detection.
	SubmitEvent(ctx context.Context, e model.Event) (model.Event, bool, error)

	// Read operations expose round state.
	Round(ctx context.Context, key Key) (model.Round, error)
	Score(ctx context.Context, key Key) (model.ScoreSnapshot, error)
	CanonicalEvents(ctx context.Context, key Key) ([]model.Event, error)
	VerifyRoundChain(ctx context.Context, key Key) (ledger.VerifyResult, error)

	// Lifecycle operations.
	Lock(ctx context.Context, key Key) (model.Round, error)
	RecordOverride(ctx context.Context, key Key, actor, reason string, next model.ScoreSnapshot) (model.Override, error)
}

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	roundsHandler *RoundsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(deps),
		roundsHandler: NewRoundsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("POST /v1/rounds", MetricsMiddleware(s.roundsHandler.HandleRegister, "rounds"))
	mux.HandleFunc("GET /v1/rounds/{bout}/{round}", MetricsMiddleware(s.roundsHandler.HandleGetRound, "round"))
	mux.HandleFunc("GET /v1/rounds/{bout}/{round}/score", MetricsMiddleware(s.roundsHandler.HandleGetScore, "score"))
	mux.HandleFunc("GET /v1/rounds/{bout}/{round}/events", MetricsMiddleware(s.roundsHandler.HandleGetEvents, "canonical_events"))
	mux.HandleFunc("GET /v1/rounds/{bout}/{round}/chain", MetricsMiddleware(s.roundsHandler.HandleVerifyChain, "chain"))
	mux.HandleFunc("POST /v1/rounds/{bout}/{round}/lock", MetricsMiddleware(s.roundsHandler.HandleLock, "lock"))
	mux.HandleFunc("POST /v1/rounds/{bout}/{round}/override", MetricsMiddleware(s.roundsHandler.HandleOverride, "override"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses so handlers do
// not repeat the translation table.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrRoundNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrRoundExists):
		writeError(w, http.StatusConflict, "round_exists", err)
	case errors.Is(err, repository.ErrRoundLocked):
		writeError(w, http.StatusConflict, "round_locked", err)
	case errors.Is(err, repository.ErrRoundNotLocked):
		writeError(w, http.StatusConflict, "round_not_locked", err)
	case errors.Is(err, model.ErrInvalidEventType),
		errors.Is(err, model.ErrInvalidSource),
		errors.Is(err, model.ErrMalformedTimestamp),
		errors.Is(err, model.ErrSeverityOutOfRange),
		errors.Is(err, model.ErrConfidenceOutOfRange),
		errors.Is(err, model.ErrUnknownFighter):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// roundKey pulls the round address out of the request path.
func roundKey(r *http.Request) Key {
	return Key{BoutID: r.PathValue("bout"), RoundID: r.PathValue("round")}
}
