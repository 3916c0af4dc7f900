package training

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/attrib/internal/adapters/dataset"
	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/model"
	"github.com/okian/attrib/internal/learn"
	"github.com/okian/attrib/pkg/logger"
	"github.com/okian/attrib/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// OwnerArtifacts is the trained owner classifier.
type OwnerArtifacts struct {
	Scaler *learn.Scaler
	Model  *learn.Logistic
	Report Report
}

type ownerSample struct {
	anchor    model.AnchorEvent
	candidate model.Subject
	owner     bool
}

// ownerSamples picks anchors and candidates. All randomness happens here so
// extraction can run in any order.
func (t *Trainer) ownerSamples(d *dataset.Dataset) []ownerSample {
	subjects := make(map[model.ID]model.Subject, len(d.Subjects))
	for _, s := range d.Subjects {
		subjects[s.ID] = s
	}
	rng := rand.New(rand.NewSource(t.seed)) //nolint:gosec // reproducible sampling

	limit := min(t.anchorLimit, len(d.Swipes))
	var out []ownerSample
	for _, sw := range d.Swipes[:limit] {
		owner, ok := subjects[sw.SubjectID]
		if !ok {
			continue
		}
		anchor := model.AnchorEvent{CardID: sw.CardID, LocationID: sw.LocationID, Timestamp: sw.Timestamp}
		out = append(out, ownerSample{anchor: anchor, candidate: owner, owner: true})
		for range t.negatives {
			other := d.Subjects[rng.Intn(len(d.Subjects))]
			if other.ID == owner.ID {
				continue
			}
			out = append(out, ownerSample{anchor: anchor, candidate: other})
		}
	}
	return out
}

// Owner synthesises the owner training set from historical swipes and fits a
// class-balanced logistic regression on it.
func (t *Trainer) Owner(ctx context.Context, d *dataset.Dataset) (_ *OwnerArtifacts, err error) {
	start := time.Now()
	defer func() { observe(PipelineOwner, start, err) }()

	samples := t.ownerSamples(d)
	if len(samples) == 0 {
		return nil, fmt.Errorf("owner pipeline: %w", ErrNoAnchors)
	}

	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, s := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v := features.ExtractOwner([]model.AnchorEvent{s.anchor}, s.candidate, d.Evidence, nil)
			x[i] = v.Row()
			if s.owner {
				y[i] = 1
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("owner pipeline: %w", err)
	}

	params := t.params
	params.Balanced = true
	scaler, clf, rep, err := t.fitEvaluate(x, y, func(x [][]float64, y []int) (learn.Classifier, error) {
		return learn.FitLogistic(x, y, params)
	})
	if err != nil {
		return nil, fmt.Errorf("owner pipeline: %w", err)
	}
	lr := clf.(*learn.Logistic)

	metrics.UpdateTrainingSamples(PipelineOwner, rep.Samples)
	metrics.UpdateModelAccuracy(PipelineOwner, rep.Accuracy)

	coef := lr.Coefficients()
	fields := []logger.Field{
		logger.Int("samples", rep.Samples),
		logger.Int("test_rows", rep.TestRows),
		logger.Float64("accuracy", rep.Accuracy),
		logger.Duration("took", time.Since(start)),
	}
	for i, name := range features.OwnerColumns {
		fields = append(fields, logger.Float64("coef_"+name, coef[i]))
	}
	t.log.Info(ctx, "owner model trained", fields...)

	return &OwnerArtifacts{Scaler: scaler, Model: lr, Report: rep}, nil
}
