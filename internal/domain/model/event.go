// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Source identifies the kind of producer that reported an event.
type Source string

// Known producer kinds.
const (
	SourceHuman  Source = "human"
	SourceCV     Source = "cv"
	SourceFusion Source = "fusion"
)

// ParseSource validates a producer kind.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceHuman, SourceCV, SourceFusion:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

// EventType is a closed enumeration of combat actions. Keeping it closed
// lets the scoring configuration be checked exhaustively at load time.
type EventType int

// Event types. The zero value is invalid on purpose.
const (
	TypeUnknown EventType = iota

	// Strikes.
	TypeJab
	TypeCross
	TypeHook
	TypeUppercut
	TypeElbow
	TypeKnee
	TypeHeadKick
	TypeBodyKick
	TypeLegKick

	// Knockdown tiers.
	TypeKnockdownFlash
	TypeKnockdownHard
	TypeKnockdownNearFinish

	// Grappling.
	TypeTakedown
	TypeSweep

	// Submission tiers.
	TypeSubmissionAttempt
	TypeSubmissionTight
	TypeSubmissionNearFinish

	// Control time boundaries.
	TypeControlStart
	TypeControlEnd

	// Synthesized by the fusion resolver, never submitted by producers.
	TypeMomentumSwing
)

var typeNames = map[EventType]string{
	TypeJab:                  "jab",
	TypeCross:                "cross",
	TypeHook:                 "hook",
	TypeUppercut:             "uppercut",
	TypeElbow:                "elbow",
	TypeKnee:                 "knee",
	TypeHeadKick:             "head_kick",
	TypeBodyKick:             "body_kick",
	TypeLegKick:              "leg_kick",
	TypeKnockdownFlash:       "knockdown_flash",
	TypeKnockdownHard:        "knockdown_hard",
	TypeKnockdownNearFinish:  "knockdown_near_finish",
	TypeTakedown:             "takedown",
	TypeSweep:                "sweep",
	TypeSubmissionAttempt:    "submission_attempt",
	TypeSubmissionTight:      "submission_tight",
	TypeSubmissionNearFinish: "submission_near_finish",
	TypeControlStart:         "control_start",
	TypeControlEnd:           "control_end",
	TypeMomentumSwing:        "momentum_swing",
}

var typesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// String returns the wire name of the event type.
func (t EventType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseEventType maps a wire name to an EventType. Momentum swings are
// resolver-internal and are rejected at the submission boundary by callers.
func ParseEventType(s string) (EventType, error) {
	if t, ok := typesByName[s]; ok {
		return t, nil
	}
	return TypeUnknown, fmt.Errorf("%w: %q", ErrInvalidEventType, s)
}

// AllEventTypes returns every valid event type in declaration order.
func AllEventTypes() []EventType {
	out := make([]EventType, 0, len(typeNames))
	for t := TypeJab; t <= TypeMomentumSwing; t++ {
		out = append(out, t)
	}
	return out
}

// MarshalJSON encodes the event type as its wire name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes an event type from its wire name.
func (t *EventType) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidEventType, string(b))
	}
	parsed, err := ParseEventType(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Class groups event types for fusion clustering: two detections can only
// describe the same physical action when they share a class.
type Class int

// Fusion classes.
const (
	ClassNone Class = iota
	ClassStrike
	ClassKnockdown
	ClassGrapple
	ClassSubmission
	ClassControlStart
	ClassControlEnd
	ClassMomentum
)

// Class returns the fusion class of the event type.
func (t EventType) Class() Class {
	switch t {
	case TypeJab, TypeCross, TypeHook, TypeUppercut, TypeElbow, TypeKnee,
		TypeHeadKick, TypeBodyKick, TypeLegKick:
		return ClassStrike
	case TypeKnockdownFlash, TypeKnockdownHard, TypeKnockdownNearFinish:
		return ClassKnockdown
	case TypeTakedown, TypeSweep:
		return ClassGrapple
	case TypeSubmissionAttempt, TypeSubmissionTight, TypeSubmissionNearFinish:
		return ClassSubmission
	case TypeControlStart:
		return ClassControlStart
	case TypeControlEnd:
		return ClassControlEnd
	case TypeMomentumSwing:
		return ClassMomentum
	default:
		return ClassNone
	}
}

// Category is the scoring bucket an event type accrues into.
type Category int

// Scoring categories.
const (
	CategoryNone Category = iota
	CategoryStriking
	CategoryGrappling
	CategoryControl
)

// Category returns the scoring category for the event type. Control
// boundaries have no category of their own; paired segments accrue into
// CategoryControl via duration.
func (t EventType) Category() Category {
	switch t.Class() {
	case ClassStrike, ClassKnockdown:
		return CategoryStriking
	case ClassGrapple, ClassSubmission:
		return CategoryGrappling
	case ClassControlStart, ClassControlEnd, ClassMomentum:
		return CategoryControl
	default:
		return CategoryNone
	}
}

// Scoreable reports whether the type carries a per-occurrence base value in
// the scoring configuration. Control boundaries accrue by duration and
// therefore have no base value.
func (t EventType) Scoreable() bool {
	switch t.Class() {
	case ClassControlStart, ClassControlEnd, ClassNone:
		return false
	}
	return true
}

// Event is one observed or reported combat action, as recorded in a round's
// ledger. Fingerprint, Sequence and ChainHash are immutable once written;
// Canonical and Corroborated are owned by the fusion resolver.
type Event struct {
	EventID   string `json:"event_id"`
	BoutID    string `json:"bout_id"`
	RoundID   string `json:"round_id"`
	FighterID string `json:"fighter_id"`

	Type        EventType `json:"event_type"`
	Severity    float64   `json:"severity"`
	Confidence  float64   `json:"confidence"`
	TimestampMS int64     `json:"timestamp_ms"`

	Source   Source `json:"source"`
	DeviceID string `json:"device_or_camera_id"`

	// CV-only observation geometry. AngleDegrees is relative to frontal;
	// 0 means head-on.
	AngleDegrees float64 `json:"angle_degrees,omitempty"`
	Distance     float64 `json:"distance,omitempty"`

	// Optional position/target metadata.
	Position string `json:"position,omitempty"`
	Target   string `json:"target,omitempty"`

	Fingerprint string `json:"fingerprint_hash"`
	Sequence    int    `json:"sequence_index"`
	ChainHash   string `json:"chain_hash"`

	Canonical    bool `json:"is_canonical"`
	Corroborated bool `json:"is_corroborated,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
