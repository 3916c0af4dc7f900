package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/attrib/internal/config"
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
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ATTRIB_ADDR", ":8080")
			_ = os.Setenv("ATTRIB_TRAINING_SEED", "7")
			_ = os.Setenv("ATTRIB_TRAINING_TEST_FRACTION", "0.25")
			_ = os.Setenv("ATTRIB_LOG_FORMAT", "json")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TrainingSeed, convey.ShouldEqual, 7)
				convey.So(cfg.TrainingTestFraction, convey.ShouldEqual, 0.25)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.TrainingNegatives, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
# artifact layout
addr: ":9090"
artifact_db: "/tmp/a.db"
training_anchor_limit: 500
training_workers: 2
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ATTRIB_CONFIG", tmpFile)
			_ = os.Setenv("ATTRIB_TRAINING_WORKERS", "6")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file, file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ArtifactDB, convey.ShouldEqual, "/tmp/a.db")
				convey.So(cfg.TrainingAnchorLimit, convey.ShouldEqual, 500)
				convey.So(cfg.TrainingWorkers, convey.ShouldEqual, 6)
				convey.So(cfg.DataDir, convey.ShouldEqual, "datasets")
			})
		})

		convey.Convey("When the file configures blending and metrics", func() {
			tmpFile := createTempConfigFile(`
journey_weight: 0.5
habit_weight: 0.5
metrics_namespace: campus
metrics_latency_buckets: [1, 5, 25]
metrics_labels:
  site: north
metrics_refresh_interval: 30s
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ATTRIB_CONFIG", tmpFile)
			_ = os.Setenv("ATTRIB_HABIT_WEIGHT", "0.25")

			cfg, err := config.Load(ctx)

			convey.Convey("Then every key is decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.JourneyWeight, convey.ShouldEqual, 0.5)
				convey.So(cfg.HabitWeight, convey.ShouldEqual, 0.25)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "campus")
				convey.So(cfg.MetricsLatencyBuckets, convey.ShouldResemble, []float64{1, 5, 25})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "north"})
				convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When the blend weights are invalid", func() {
			_ = os.Setenv("ATTRIB_JOURNEY_WEIGHT", "-0.5")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects them", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ATTRIB_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ATTRIB_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ATTRIB_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ATTRIB_TRAINING_EPOCHS", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the test fraction is out of range", func() {
			_ = os.Setenv("ATTRIB_TRAINING_TEST_FRACTION", "1.5")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ATTRIB_CONFIG",
		"ATTRIB_ADDR",
		"ATTRIB_LOG_FORMAT",
		"ATTRIB_TRAINING_SEED",
		"ATTRIB_TRAINING_TEST_FRACTION",
		"ATTRIB_TRAINING_WORKERS",
		"ATTRIB_TRAINING_EPOCHS",
		"ATTRIB_JOURNEY_WEIGHT",
		"ATTRIB_HABIT_WEIGHT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "attrib-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
