package repository

import "time"

// storeConfig collects construction-time settings for RoundStore.
type storeConfig struct {
	shardCount int
	clock      func() time.Time
}

// Option applies a configuration option to the RoundStore.
type Option func(*storeConfig)

// WithShardCount sets the number of shards rounds are spread across.
func WithShardCount(count int) Option {
	return func(c *storeConfig) {
		if count > 0 {
			c.shardCount = count
		}
	}
}

// WithClock overrides the wall clock used for created_at stamps.
func WithClock(clock func() time.Time) Option {
	return func(c *storeConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}
