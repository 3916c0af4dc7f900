package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/attrib/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.ArtifactDB, convey.ShouldEqual, "model_artifacts/artifacts.db")
			convey.So(cfg.DataDir, convey.ShouldEqual, "datasets")
			convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 8<<20)
			convey.So(cfg.TrainingAnchorLimit, convey.ShouldEqual, 2000)
			convey.So(cfg.TrainingNegatives, convey.ShouldEqual, 4)
			convey.So(cfg.TrainingSeed, convey.ShouldEqual, 42)
			convey.So(cfg.TrainingTestFraction, convey.ShouldEqual, 0.2)
			convey.So(cfg.TrainingWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.JourneyWeight, convey.ShouldEqual, 0.7)
			convey.So(cfg.HabitWeight, convey.ShouldEqual, 0.3)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "attrib")
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(*config.Config){
			"addr":          func(c *config.Config) { c.Addr = "" },
			"artifact_db":   func(c *config.Config) { c.ArtifactDB = "" },
			"body":          func(c *config.Config) { c.MaxBodyBytes = 0 },
			"negatives":     func(c *config.Config) { c.TrainingNegatives = -1 },
			"fraction low":  func(c *config.Config) { c.TrainingTestFraction = 0 },
			"fraction high": func(c *config.Config) { c.TrainingTestFraction = 1 },
			"epochs":        func(c *config.Config) { c.TrainingEpochs = 0 },
			"rate":          func(c *config.Config) { c.TrainingLearningRate = -0.1 },
			"weight sign":   func(c *config.Config) { c.JourneyWeight = -1 },
			"weight sum":    func(c *config.Config) { c.JourneyWeight, c.HabitWeight = 0, 0 },
			"namespace":     func(c *config.Config) { c.MetricsNamespace = "" },
			"refresh":       func(c *config.Config) { c.MetricsRefreshInterval = 0 },
			"buckets":       func(c *config.Config) { c.MetricsLatencyBuckets = []float64{5, 5, 10} },
		}
		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			_ = name
		}
	})
}
