// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/ringsidehq/roundledger/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FusionQueueSize bounds the in-memory fusion job queue.
	FusionQueueSize int `koanf:"fusion_queue_size"`

	// WorkerCount sets the number of background fusion workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of shards in the round store.
	ShardCount int `koanf:"shard_count"`

	// FingerprintBucketMS is the timestamp rounding granularity used when
	// fingerprinting events.
	FingerprintBucketMS int64 `koanf:"fingerprint_bucket_ms"`

	// Fusion resolver tuning.
	FusionWindowMS   int64 `koanf:"fusion_window_ms"`
	MomentumWindowMS int64 `koanf:"momentum_window_ms"`
	MomentumStrikes  int   `koanf:"momentum_strikes"`

	// Scoring holds the full scoring table; validated at engine
	// construction, never silently defaulted.
	Scoring scoring.Config `koanf:"scoring"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		FusionQueueSize:     100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		ShardCount:          8,
		FingerprintBucketMS: 10,
		FusionWindowMS:      120,
		MomentumWindowMS:    1500,
		MomentumStrikes:     4,
		Scoring:             scoring.DefaultConfig(),
	}
}
