// Package training fits the owner and habit models offline and persists
// every artifact the serving context needs.
package training

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/attrib/internal/adapters/dataset"
	"github.com/okian/attrib/internal/adapters/repository"
	"github.com/okian/attrib/internal/learn"
	"github.com/okian/attrib/pkg/logger"
	"github.com/okian/attrib/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Pipeline names used in logs and metrics.
const (
	PipelineOwner    = "owner"
	PipelineLocation = "location"
)

// Sentinel kinds for training errors.
var (
	ErrNoAnchors = errors.New("no swipe resolves to a known subject")
	ErrNoHistory = errors.New("no resolvable swipe history")
)

// Trainer runs the training pipelines.
type Trainer struct {
	anchorLimit  int
	negatives    int
	seed         int64
	testFraction float64
	params       learn.Params
	workers      int
	log          logger.Logger
}

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithAnchorLimit bounds how many leading swipes become positive samples.
func WithAnchorLimit(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.anchorLimit = n
		}
	}
}

// WithNegatives sets the impostor draws per anchor.
func WithNegatives(n int) Option {
	return func(t *Trainer) {
		if n >= 0 {
			t.negatives = n
		}
	}
}

// WithSeed seeds negative sampling and splitting.
func WithSeed(seed int64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithTestFraction sets the held-out share.
func WithTestFraction(f float64) Option {
	return func(t *Trainer) {
		if f > 0 && f < 1 {
			t.testFraction = f
		}
	}
}

// WithParams sets gradient-descent parameters. Balancing is decided per
// pipeline.
func WithParams(p learn.Params) Option {
	return func(t *Trainer) { t.params = p }
}

// WithWorkers bounds concurrent feature extraction.
func WithWorkers(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.log = l
		}
	}
}

// New creates a Trainer with the historical defaults.
func New(opts ...Option) *Trainer {
	t := &Trainer{
		anchorLimit:  2000,
		negatives:    4,
		seed:         42,
		testFraction: 0.2,
		params:       learn.DefaultParams(),
		workers:      runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("training")
	}
	return t
}

// Report summarises one pipeline run.
type Report struct {
	Samples   int
	TrainRows int
	TestRows  int
	// Accuracy is measured on the held-out rows; it is zero when none were held out.
	Accuracy float64
}

// Run trains both pipelines concurrently and saves every artifact in one
// transaction. Nothing is saved unless both succeed.
func (t *Trainer) Run(ctx context.Context, d *dataset.Dataset, store repository.Store) (string, error) {
	var (
		owner    *OwnerArtifacts
		location *LocationArtifacts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owner, err = t.Owner(gctx, d)
		return err
	})
	g.Go(func() error {
		var err error
		location, err = t.Location(gctx, d)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	payloads, err := Encode(owner, location)
	if err != nil {
		return "", err
	}
	version, err := store.SaveAll(ctx, payloads)
	if err != nil {
		return "", fmt.Errorf("save artifacts: %w", err)
	}
	t.log.Info(ctx, "artifacts saved",
		logger.String("version", version),
		logger.Int("artifacts", len(payloads)),
	)
	return version, nil
}

// observe records the outcome of a pipeline run.
func observe(pipeline string, start time.Time, err error) {
	metrics.RecordTrainingDuration(pipeline, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordTrainingRun(pipeline, "failure")
		return
	}
	metrics.RecordTrainingRun(pipeline, "success")
}

// fitEvaluate splits, scales, fits and scores one labelled matrix.
func (t *Trainer) fitEvaluate(x [][]float64, y []int, fit learn.FitFunc) (*learn.Scaler, learn.Classifier, Report, error) {
	split := learn.StratifiedSplit(y, t.testFraction, t.seed)
	trainX, trainY := learn.Rows(x, split.Train), learn.Rows(y, split.Train)

	scaler, err := learn.FitScaler(trainX)
	if err != nil {
		return nil, nil, Report{}, err
	}
	scaledTrain, err := scaler.Transform(trainX)
	if err != nil {
		return nil, nil, Report{}, err
	}
	model, err := fit(scaledTrain, trainY)
	if err != nil {
		return nil, nil, Report{}, err
	}

	rep := Report{Samples: len(y), TrainRows: len(split.Train), TestRows: len(split.Test)}
	if len(split.Test) > 0 {
		scaledTest, err := scaler.Transform(learn.Rows(x, split.Test))
		if err != nil {
			return nil, nil, Report{}, err
		}
		rep.Accuracy, err = learn.Accuracy(model, scaledTest, learn.Rows(y, split.Test))
		if err != nil {
			return nil, nil, Report{}, err
		}
	}
	return scaler, model, rep, nil
}
