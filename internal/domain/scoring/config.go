package scoring

import (
	"fmt"
	"math"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// weightSumTolerance absorbs float noise when checking weights sum to 1.
const weightSumTolerance = 1e-9

// Weights splits the weighted total across scoring categories. The three
// values must sum to 1.
type Weights struct {
	Striking  float64 `koanf:"striking"`
	Grappling float64 `koanf:"grappling"`
	Control   float64 `koanf:"control"`
}

// Config is the full scoring specification. Every knob lives here rather
// than in the algorithm so a deployment can tune thresholds without a
// rebuild, and so validation can reject a bad table before any round is
// scored.
type Config struct {
	Weights Weights `koanf:"weights"`

	// BaseValues maps event-type wire names to per-occurrence base value.
	// Must cover every scoreable type; unknown names are rejected.
	BaseValues map[string]float64 `koanf:"base_values"`

	// ControlRatePerSecond accrues control time into the control category.
	ControlRatePerSecond float64 `koanf:"control_rate_per_second"`

	// SignificantSeverity is the severity floor separating significant
	// strikes (scored by damage) from volume strikes.
	SignificantSeverity float64 `koanf:"significant_severity"`

	// Volume dampening: non-significant-strike advantage beyond
	// VolumeDampenAfter counts at VolumeDampenFactor of VolumeBase.
	VolumeBase         float64 `koanf:"volume_base"`
	VolumeDampenAfter  int     `koanf:"volume_dampen_after"`
	VolumeDampenFactor float64 `koanf:"volume_dampen_factor"`

	// DamagePrimacyRatio forces the round for a fighter holding at least
	// this share of combined damage-category value.
	DamagePrimacyRatio float64 `koanf:"damage_primacy_ratio"`

	// Card thresholds on the absolute weighted differential, ordered
	// DrawMargin < Margin108 < Margin107.
	DrawMargin float64 `koanf:"draw_margin"`
	Margin108  float64 `koanf:"margin_10_8"`
	Margin107  float64 `koanf:"margin_10_7"`

	// Guardrail: 10-8/10-7 additionally require a knockdown advantage of
	// at least GuardrailKnockdowns or a total-strike differential above
	// GuardrailStrikeFloor.
	GuardrailKnockdowns  int `koanf:"guardrail_knockdowns"`
	GuardrailStrikeFloor int `koanf:"guardrail_strike_floor"`

	// Uncertainty band inputs.
	UncertaintyMinEvents      int     `koanf:"uncertainty_min_events"`
	UncertaintyMinConfidence  float64 `koanf:"uncertainty_min_confidence"`
	UncertaintyBoundaryMargin float64 `koanf:"uncertainty_boundary_margin"`
}

// DefaultConfig returns the stock scoring table. Deployments override it
// via configuration; the engine itself never falls back to these silently.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{Striking: 0.5, Grappling: 0.4, Control: 0.1},
		BaseValues: map[string]float64{
			"jab":                    1.0,
			"cross":                  1.5,
			"hook":                   2.0,
			"uppercut":               2.0,
			"elbow":                  2.2,
			"knee":                   2.5,
			"head_kick":              3.0,
			"body_kick":              2.2,
			"leg_kick":               1.8,
			"knockdown_flash":        20,
			"knockdown_hard":         30,
			"knockdown_near_finish":  40,
			"takedown":               8,
			"sweep":                  6,
			"submission_attempt":     6,
			"submission_tight":       12,
			"submission_near_finish": 20,
			"momentum_swing":         5,
		},
		ControlRatePerSecond:      0.5,
		SignificantSeverity:       0.25,
		VolumeBase:                0.3,
		VolumeDampenAfter:         20,
		VolumeDampenFactor:        0.25,
		DamagePrimacyRatio:        0.8,
		DrawMargin:                1.0,
		Margin108:                 25,
		Margin107:                 60,
		GuardrailKnockdowns:       2,
		GuardrailStrikeFloor:      100,
		UncertaintyMinEvents:      10,
		UncertaintyMinConfidence:  0.6,
		UncertaintyBoundaryMargin: 3.0,
	}
}

// Validate rejects a configuration that cannot score every round
// deterministically. Called once at engine construction; a failure here is
// fatal at startup, never silently defaulted.
func (c Config) Validate() error {
	sum := c.Weights.Striking + c.Weights.Grappling + c.Weights.Control
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: category weights sum to %v, want 1", ErrInvalidConfig, sum)
	}
	if c.Weights.Striking < 0 || c.Weights.Grappling < 0 || c.Weights.Control < 0 {
		return fmt.Errorf("%w: category weights must be non-negative", ErrInvalidConfig)
	}

	for name := range c.BaseValues {
		if _, err := model.ParseEventType(name); err != nil {
			return fmt.Errorf("%w: base value for unknown event type %q", ErrInvalidConfig, name)
		}
	}
	for _, t := range model.AllEventTypes() {
		if !t.Scoreable() {
			continue
		}
		v, ok := c.BaseValues[t.String()]
		if !ok {
			return fmt.Errorf("%w: missing base value for %q", ErrInvalidConfig, t)
		}
		if v <= 0 {
			return fmt.Errorf("%w: base value for %q must be positive", ErrInvalidConfig, t)
		}
	}

	if c.ControlRatePerSecond <= 0 {
		return fmt.Errorf("%w: control rate must be positive", ErrInvalidConfig)
	}
	if c.SignificantSeverity <= 0 || c.SignificantSeverity > 1 {
		return fmt.Errorf("%w: significant severity must be in (0,1]", ErrInvalidConfig)
	}
	if c.VolumeBase < 0 || c.VolumeDampenAfter < 0 ||
		c.VolumeDampenFactor < 0 || c.VolumeDampenFactor > 1 {
		return fmt.Errorf("%w: invalid volume dampening parameters", ErrInvalidConfig)
	}
	if c.DamagePrimacyRatio <= 0.5 || c.DamagePrimacyRatio > 1 {
		return fmt.Errorf("%w: damage primacy ratio must be in (0.5,1]", ErrInvalidConfig)
	}
	if !(c.DrawMargin > 0 && c.DrawMargin < c.Margin108 && c.Margin108 < c.Margin107) {
		return fmt.Errorf("%w: card margins must be ordered 0 < draw < 10-8 < 10-7", ErrInvalidConfig)
	}
	if c.GuardrailKnockdowns < 1 || c.GuardrailStrikeFloor < 1 {
		return fmt.Errorf("%w: guardrail thresholds must be positive", ErrInvalidConfig)
	}
	if c.UncertaintyMinEvents < 1 ||
		c.UncertaintyMinConfidence <= 0 || c.UncertaintyMinConfidence > 1 ||
		c.UncertaintyBoundaryMargin < 0 {
		return fmt.Errorf("%w: invalid uncertainty parameters", ErrInvalidConfig)
	}
	return nil
}

// baseValue returns the per-occurrence value for a scoreable type. The
// table was validated exhaustively at construction.
func (c Config) baseValue(t model.EventType) float64 {
	return c.BaseValues[t.String()]
}
