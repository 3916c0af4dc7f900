package training

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/attrib/internal/adapters/dataset"
	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/journey"
	"github.com/okian/attrib/internal/domain/model"
	"github.com/okian/attrib/internal/learn"
	"github.com/okian/attrib/pkg/logger"
	"github.com/okian/attrib/pkg/metrics"
)

// LocationArtifacts is the transition graph plus the habit classifier.
type LocationArtifacts struct {
	Graph   journey.Graph
	Scaler  *learn.Scaler
	Model   *learn.Softmax
	Encoder *learn.LabelEncoder
	Report  Report
}

// history groups resolved swipes by subject in time order.
func history(d *dataset.Dataset) (map[model.ID][]model.Swipe, []model.ID) {
	bySubject := make(map[model.ID][]model.Swipe)
	for _, sw := range d.Swipes {
		if sw.SubjectID.IsZero() || sw.LocationID.IsZero() || !sw.Timestamp.Valid {
			continue
		}
		bySubject[sw.SubjectID] = append(bySubject[sw.SubjectID], sw)
	}
	ids := make([]model.ID, 0, len(bySubject))
	for id, swipes := range bySubject {
		sort.SliceStable(swipes, func(i, j int) bool { return swipes[i].Timestamp.Time.Before(swipes[j].Timestamp.Time) })
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return bySubject, ids
}

// Location builds the transition graph and fits the habit model. Graph
// nodes and habit labels are location names.
func (t *Trainer) Location(ctx context.Context, d *dataset.Dataset) (_ *LocationArtifacts, err error) {
	start := time.Now()
	defer func() { observe(PipelineLocation, start, err) }()

	bySubject, ids := history(d)
	if len(ids) == 0 {
		return nil, fmt.Errorf("location pipeline: %w", ErrNoHistory)
	}

	sequences := make(map[string][]journey.Step, len(ids))
	var (
		x      [][]float64
		labels []string
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		swipes := bySubject[id]
		activity := make([]model.Activity, len(swipes))
		steps := make([]journey.Step, len(swipes))
		for i, sw := range swipes {
			activity[i] = model.Activity{LocationID: sw.LocationID, Timestamp: sw.Timestamp}
			steps[i] = journey.Step{Location: d.LocationName(sw.LocationID), At: sw.Timestamp.Time}
		}
		sequences[id.String()] = steps

		freq := features.Frequencies(activity)
		for _, sw := range swipes {
			x = append(x, features.NewLocationVector(sw.Timestamp.Time, freq[sw.LocationID]).Row())
			labels = append(labels, d.LocationName(sw.LocationID))
		}
	}
	graph := journey.Build(sequences)

	enc, err := learn.FitLabelEncoder(labels)
	if err != nil {
		return nil, fmt.Errorf("location pipeline: %w", err)
	}
	y, err := enc.Encode(labels)
	if err != nil {
		return nil, fmt.Errorf("location pipeline: %w", err)
	}

	params := t.params
	params.Balanced = false
	scaler, clf, rep, err := t.fitEvaluate(x, y, func(x [][]float64, y []int) (learn.Classifier, error) {
		return learn.FitSoftmax(x, y, params)
	})
	if err != nil {
		return nil, fmt.Errorf("location pipeline: %w", err)
	}

	metrics.UpdateTrainingSamples(PipelineLocation, rep.Samples)
	metrics.UpdateModelAccuracy(PipelineLocation, rep.Accuracy)
	t.log.Info(ctx, "habit model trained",
		logger.Int("samples", rep.Samples),
		logger.Int("classes", len(enc.Labels)),
		logger.Int("graph_nodes", graph.Nodes()),
		logger.Int("graph_edges", graph.Edges()),
		logger.Float64("accuracy", rep.Accuracy),
		logger.Duration("took", time.Since(start)),
	)

	return &LocationArtifacts{
		Graph:   graph,
		Scaler:  scaler,
		Model:   clf.(*learn.Softmax),
		Encoder: enc,
		Report:  rep,
	}, nil
}
