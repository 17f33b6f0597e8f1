package simulate

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/ringsidehq/roundledger/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Timing constants, in milliseconds of round time.
const (
	roundDurationMS   = 300000 // five minutes
	cvJitterRangeMS   = 80     // camera offset around the true action time
	controlMinMS      = 10000
	controlRangeMS    = 45000
	humanMissRate     = 0.25 // fraction of actions the human judge misses
	knockdownRate     = 0.03
	controlRate       = 0.05
	cvConfidenceMin   = 0.55
	cvConfidenceRange = 0.4
	cameraAngleRange  = 90.0
)

// strikeTypes is the pool the generator draws plain strikes from.
var strikeTypes = []string{
	"jab", "cross", "hook", "uppercut", "elbow", "knee",
	"head_kick", "body_kick", "leg_kick",
}

var knockdownTypes = []string{
	"knockdown_flash", "knockdown_hard", "knockdown_near_finish",
}

var strikeTargets = []string{"head", "body", "legs"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func pick(pool []string) string {
	return pool[int(getRandomFloat()*float64(len(pool)))%len(pool)]
}

// generateRound produces every submission for one round: each physical
// action is observed by several cameras with jittered timestamps, and most
// actions also get a human judge entry, so the fusion resolver has real
// overlap to merge. Retransmissions are appended at the configured rate to
// exercise dedup.
func generateRound(ctx context.Context, config *Config, roundID string, red, blue string) []Submission {
	subs := make([]Submission, 0, config.Actions*2*(config.Cameras+1))

	for _, fighter := range []string{red, blue} {
		step := roundDurationMS / (config.Actions + 1)
		for i := 0; i < config.Actions; i++ {
			ts := int64((i + 1) * step)
			subs = append(subs, generateAction(config, roundID, fighter, ts)...)
		}
	}

	// Retransmissions: same producer resends the same detection.
	dups := int(float64(len(subs)) * config.DupRate)
	for i := 0; i < dups; i++ {
		subs = append(subs, subs[int(getRandomFloat()*float64(len(subs)))%len(subs)])
	}

	logger.Get().Info(ctx, "round generated",
		logger.String("round_id", roundID),
		logger.Int("submissions", len(subs)),
		logger.Int("retransmissions", dups),
	)
	return subs
}

// generateAction renders one physical action as the set of detections the
// producers would emit for it.
func generateAction(config *Config, roundID, fighter string, ts int64) []Submission {
	base := Submission{
		BoutID:    config.BoutID,
		RoundID:   roundID,
		FighterID: fighter,
	}

	roll := getRandomFloat()
	switch {
	case roll < knockdownRate:
		base.EventType = pick(knockdownTypes)
		base.Severity = 0.7 + 0.3*getRandomFloat()
		base.Target = "head"
	case roll < knockdownRate+controlRate:
		return generateControlSegment(config, roundID, fighter, ts)
	default:
		base.EventType = pick(strikeTypes)
		base.Severity = getRandomFloat()
		base.Target = pick(strikeTargets)
	}

	out := make([]Submission, 0, config.Cameras+1)
	for cam := 0; cam < config.Cameras; cam++ {
		s := base
		s.Source = "cv"
		s.DeviceID = "cam-" + strconv.Itoa(cam+1)
		s.TimestampMS = ts + int64(getRandomFloat()*cvJitterRangeMS) - cvJitterRangeMS/2
		s.Confidence = cvConfidenceMin + cvConfidenceRange*getRandomFloat()
		s.AngleDegrees = cameraAngleRange * (getRandomFloat()*2 - 1)
		out = append(out, s)
	}

	if getRandomFloat() > humanMissRate {
		s := base
		s.Source = "human"
		s.DeviceID = "judge-1"
		s.TimestampMS = ts
		s.Confidence = 1.0
		out = append(out, s)
	}
	return out
}

// generateControlSegment emits a paired control_start/control_end from the
// human judge, who is the producer that tracks grappling positions.
func generateControlSegment(config *Config, roundID, fighter string, ts int64) []Submission {
	durMS := int64(controlMinMS + getRandomFloat()*controlRangeMS)
	end := ts + durMS
	if end > roundDurationMS {
		end = roundDurationMS - 1
	}

	mk := func(typ string, at int64) Submission {
		return Submission{
			BoutID:      config.BoutID,
			RoundID:     roundID,
			FighterID:   fighter,
			EventType:   typ,
			Severity:    0,
			Confidence:  1.0,
			TimestampMS: at,
			Source:      "human",
			DeviceID:    "judge-1",
			Position:    "top",
		}
	}
	return []Submission{mk("control_start", ts), mk("control_end", end)}
}
