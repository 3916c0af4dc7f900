// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file and env on top.
// - Validation failures wrap ErrInvalidConfig, provider failures ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ArtifactDB is the SQLite file holding trained artifacts.
	ArtifactDB string `koanf:"artifact_db"`

	// DataDir holds the CSV datasets read by `attrib train`.
	DataDir string `koanf:"data_dir"`

	// MaxBodyBytes caps prediction request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// TrainingAnchorLimit bounds how many swipes become positive samples.
	TrainingAnchorLimit int `koanf:"training_anchor_limit"`

	// TrainingNegatives is the number of impostor candidates drawn per anchor.
	TrainingNegatives int `koanf:"training_negatives"`

	// TrainingSeed drives negative sampling and the train/test split.
	TrainingSeed int64 `koanf:"training_seed"`

	// TrainingTestFraction is the held-out share of each class.
	TrainingTestFraction float64 `koanf:"training_test_fraction"`

	// TrainingEpochs and TrainingLearningRate tune gradient descent.
	TrainingEpochs       int     `koanf:"training_epochs"`
	TrainingLearningRate float64 `koanf:"training_learning_rate"`

	// TrainingWorkers bounds concurrent sample synthesis.
	TrainingWorkers int `koanf:"training_workers"`

	// JourneyWeight and HabitWeight blend the location signals.
	JourneyWeight float64 `koanf:"journey_weight"`
	HabitWeight   float64 `koanf:"habit_weight"`

	// MetricsEnabled toggles recording; the registry is served either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace, MetricsSubsystem and MetricsPrefix shape metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsLatencyBuckets overrides the latency histogram buckets (ms).
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`

	// MetricsLabels are constant labels added to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsRefreshInterval is how often runtime gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ArtifactDB:           "model_artifacts/artifacts.db",
		DataDir:              "datasets",
		MaxBodyBytes:         8 << 20,
		TrainingAnchorLimit:  2000,
		TrainingNegatives:    4,
		TrainingSeed:         42,
		TrainingTestFraction: 0.2,
		TrainingEpochs:       300,
		TrainingLearningRate: 0.1,
		TrainingWorkers:      runtime.NumCPU(),

		JourneyWeight: 0.7,
		HabitWeight:   0.3,

		MetricsEnabled:         true,
		MetricsNamespace:       "attrib",
		MetricsSubsystem:       "engine",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ArtifactDB == "":
		return fmt.Errorf("%w: artifact_db must not be empty", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.TrainingAnchorLimit < 0:
		return fmt.Errorf("%w: training_anchor_limit must not be negative", ErrInvalidConfig)
	case c.TrainingNegatives < 0:
		return fmt.Errorf("%w: training_negatives must not be negative", ErrInvalidConfig)
	case c.TrainingTestFraction <= 0 || c.TrainingTestFraction >= 1:
		return fmt.Errorf("%w: training_test_fraction must be in (0,1)", ErrInvalidConfig)
	case c.TrainingEpochs <= 0:
		return fmt.Errorf("%w: training_epochs must be positive", ErrInvalidConfig)
	case c.TrainingLearningRate <= 0:
		return fmt.Errorf("%w: training_learning_rate must be positive", ErrInvalidConfig)
	case c.TrainingWorkers < 0:
		return fmt.Errorf("%w: training_workers must not be negative", ErrInvalidConfig)
	case c.JourneyWeight < 0 || c.HabitWeight < 0 || c.JourneyWeight+c.HabitWeight <= 0:
		return fmt.Errorf("%w: journey_weight and habit_weight must be non-negative with a positive sum", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case !strictlyIncreasing(c.MetricsLatencyBuckets):
		return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
	}
	return nil
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}
