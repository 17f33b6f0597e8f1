package model

// Card is a 10-point-must round card.
type Card string

// Possible cards.
const (
	Card1010 Card = "10-10"
	Card109  Card = "10-9"
	Card108  Card = "10-8"
	Card107  Card = "10-7"
)

// Uncertainty is the confidence band attached to a snapshot.
type Uncertainty string

// Confidence bands.
const (
	UncertaintyHigh   Uncertainty = "high"
	UncertaintyMedium Uncertainty = "medium"
	UncertaintyLow    Uncertainty = "low"
)

// CategoryTotals holds raw per-category value for one fighter.
type CategoryTotals struct {
	Striking  float64 `json:"striking"`
	Grappling float64 `json:"grappling"`
	Control   float64 `json:"control"`
}

// FighterScore is one fighter's side of a snapshot.
type FighterScore struct {
	FighterID          string         `json:"fighter_id"`
	Raw                CategoryTotals `json:"raw"`
	Weighted           float64        `json:"weighted_total"`
	DamageValue        float64        `json:"damage_value"`
	KnockdownCount     int            `json:"knockdown_count"`
	TotalStrikes       int            `json:"total_strikes"`
	SignificantStrikes int            `json:"significant_strikes"`
	ControlSeconds     float64        `json:"control_seconds"`
}

// GuardrailFlags records which scoring guardrails were consulted and how
// they resolved, so a card is auditable after the fact.
type GuardrailFlags struct {
	ExtremeCardRequested bool `json:"extreme_card_requested"`
	KnockdownAdvantage   bool `json:"knockdown_advantage_met"`
	StrikeDifferential   bool `json:"strike_differential_met"`
	CappedAtTenNine      bool `json:"capped_at_ten_nine"`
	DamagePrimacyApplied bool `json:"damage_primacy_applied"`
	VolumeDampened       bool `json:"volume_dampened"`
}

// ScoreSnapshot is the computed result of scoring a round's canonical event
// set. It is derived data: recomputing from the same canonical set must
// yield a byte-identical snapshot, so nothing here may depend on wall time
// or map iteration order.
type ScoreSnapshot struct {
	BoutID  string `json:"bout_id"`
	RoundID string `json:"round_id"`

	Red  FighterScore `json:"red"`
	Blue FighterScore `json:"blue"`

	// Differential is red minus blue on the weighted totals.
	Differential float64 `json:"differential"`

	Card   Card   `json:"card"`
	Winner string `json:"winner,omitempty"`

	Guardrails GuardrailFlags `json:"guardrails"`

	Uncertainty    Uncertainty `json:"uncertainty"`
	EventCount     int         `json:"event_count"`
	MeanConfidence float64     `json:"mean_confidence"`

	// ComputedAtSeq is the ledger sequence the canonical set was read at.
	ComputedAtSeq int `json:"computed_at_sequence"`
}
