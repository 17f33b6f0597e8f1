// Package fingerprint computes the stable identity of an incoming event.
//
// Two submissions with identical fingerprints describe the same logical
// action (a double-tap, a network retry) and must resolve to one ledger
// entry. The timestamp is rounded to a bucket so sub-bucket jitter between
// retries is absorbed while genuinely distinct actions one bucket apart
// stay distinct.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ringsidehq/roundledger/internal/domain/model"
)

// defaultBucketMS is the timestamp rounding granularity.
const defaultBucketMS = 10

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithBucketMS sets the timestamp bucket width in milliseconds.
func WithBucketMS(ms int64) Option {
	return func(g *Generator) {
		if ms > 0 {
			g.bucketMS = ms
		}
	}
}

// Generator produces event fingerprints.
type Generator struct {
	bucketMS int64
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{bucketMS: defaultBucketMS}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Compute returns the hex-encoded SHA-256 fingerprint of the event's
// logical identity: bout, round, source device, fighter, type, and the
// bucketed producer timestamp.
func (g *Generator) Compute(boutID, roundID, deviceID, fighterID string, t model.EventType, timestampMS int64) string {
	bucket := timestampMS / g.bucketMS

	var b strings.Builder
	b.WriteString(boutID)
	b.WriteByte('|')
	b.WriteString(roundID)
	b.WriteByte('|')
	b.WriteString(deviceID)
	b.WriteByte('|')
	b.WriteString(fighterID)
	b.WriteByte('|')
	b.WriteString(t.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(bucket, 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
