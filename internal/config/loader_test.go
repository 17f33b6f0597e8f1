package config_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ringsidehq/roundledger/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"ROUNDLEDGER_CONFIG",
		"ROUNDLEDGER_ADDR",
		"ROUNDLEDGER_LOG_LEVEL",
		"ROUNDLEDGER_FUSION_QUEUE_SIZE",
		"ROUNDLEDGER_WORKER_COUNT",
		"ROUNDLEDGER_SHARD_COUNT",
		"ROUNDLEDGER_FINGERPRINT_BUCKET_MS",
		"ROUNDLEDGER_FUSION_WINDOW_MS",
		"ROUNDLEDGER_MOMENTUM_WINDOW_MS",
		"ROUNDLEDGER_MOMENTUM_STRIKES",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.FusionQueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
				convey.So(cfg.FingerprintBucketMS, convey.ShouldEqual, 10)
				convey.So(cfg.FusionWindowMS, convey.ShouldEqual, 120)
				convey.So(cfg.MomentumWindowMS, convey.ShouldEqual, 1500)
				convey.So(cfg.MomentumStrikes, convey.ShouldEqual, 4)
				convey.So(cfg.Scoring.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("ROUNDLEDGER_ADDR", ":8080")
			_ = os.Setenv("ROUNDLEDGER_WORKER_COUNT", "16")
			_ = os.Setenv("ROUNDLEDGER_FUSION_WINDOW_MS", "250")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.FusionWindowMS, convey.ShouldEqual, 250)
				// Untouched keys keep their defaults.
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			clearConfigEnvVars()
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "addr: \":7070\"\nmomentum_strikes: 5\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0600), convey.ShouldBeNil)
			_ = os.Setenv("ROUNDLEDGER_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values layer over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MomentumStrikes, convey.ShouldEqual, 5)
			})

			convey.Convey("And env vars still win over the file", func() {
				_ = os.Setenv("ROUNDLEDGER_ADDR", ":6060")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the file breaks the scoring table", func() {
			clearConfigEnvVars()
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "scoring:\n  weights:\n    striking: 0.9\n    grappling: 0.4\n    control: 0.1\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0600), convey.ShouldBeNil)
			_ = os.Setenv("ROUNDLEDGER_CONFIG", path)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails instead of mis-scoring rounds", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a validation bound is violated", func() {
			clearConfigEnvVars()
			_ = os.Setenv("ROUNDLEDGER_MOMENTUM_STRIKES", "1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
