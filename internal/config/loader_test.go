package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/ordertriage/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.BackendURL, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRIAGE_ADDR", ":8080")
			_ = os.Setenv("TRIAGE_QUEUE_SIZE", "2048")
			_ = os.Setenv("TRIAGE_BACKEND_URL", "http://sales.internal")
			_ = os.Setenv("TRIAGE_BACKEND_TIMEOUT", "3s")
			_ = os.Setenv("TRIAGE_EVALUATOR_ID", "42")
			_ = os.Setenv("TRIAGE_DEFAULT_APPROVAL_LIMIT", "7500.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 2048)
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://sales.internal")
				convey.So(cfg.BackendTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.EvaluatorID, convey.ShouldEqual, "42")
				convey.So(cfg.DefaultApprovalLimit, convey.ShouldEqual, 7500.5)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
# feed settings
addr: ":9090"
evaluator_id: "7"
feed_url: "ws://sales.internal/ws"
feed_backoff_initial: 500ms
feed_backoff_max: 1m
feed_max_attempts: 5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRIAGE_CONFIG", tmpFile)

			convey.Convey("Then file values merge over defaults", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.FeedURL, convey.ShouldEqual, "ws://sales.internal/ws")
				convey.So(cfg.FeedBackoffInitial, convey.ShouldEqual, 500*time.Millisecond)
				convey.So(cfg.FeedBackoffMax, convey.ShouldEqual, time.Minute)
				convey.So(cfg.FeedMaxAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, config.New().WorkerCount)
			})

			convey.Convey("Then env vars override file values", func() {
				_ = os.Setenv("TRIAGE_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.EvaluatorID, convey.ShouldEqual, "7")
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile("addr: [unclosed")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRIAGE_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("TRIAGE_CONFIG", "/nonexistent/triage.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("TRIAGE_QUEUE_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the addr is emptied", func() {
			_ = os.Setenv("TRIAGE_ADDR", "")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if name := kv[:i]; len(name) > 7 && name[:7] == "TRIAGE_" {
					_ = os.Unsetenv(name)
				}
				break
			}
		}
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "triage-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
