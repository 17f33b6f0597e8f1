package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ROUNDLEDGER_CONFIG is set
//  3. env (prefix ROUNDLEDGER_)
//
// The scoring table is validated here so a bad deployment fails at startup
// instead of mis-scoring its first round.
func Load(ctx context.Context) (*Config, error) {
	_ = ctx // reserved for remote providers

	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ROUNDLEDGER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ROUNDLEDGER_ADDR, ROUNDLEDGER_WORKER_COUNT, ...
	// Map env keys like ROUNDLEDGER_FUSION_WINDOW_MS -> fusion_window_ms.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ROUNDLEDGER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "roundledger_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.FusionWindowMS <= 0 || cfg.MomentumWindowMS <= 0 || cfg.MomentumStrikes < 2 {
		return nil, fmt.Errorf("%w: fusion window and momentum parameters must be positive", ErrInvalidConfig)
	}
	if cfg.FingerprintBucketMS <= 0 {
		return nil, fmt.Errorf("%w: fingerprint bucket must be positive", ErrInvalidConfig)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}
