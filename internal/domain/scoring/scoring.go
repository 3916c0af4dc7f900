// Package scoring predicts the most probable waypoint location between two
// observed locations by blending a personal-habit signal with a journey
// signal from the transition graph.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/journey"
	"github.com/okian/attrib/internal/domain/model"
)

// Default blend weights.
const (
	DefaultJourneyWeight = 0.7
	DefaultHabitWeight   = 0.3
)

// Sentinel error kinds for this package.
var (
	ErrNoHabitModel = errors.New("habit classifier not configured")
	ErrHabitPredict = errors.New("habit prediction failed")
)

// HabitClassifier predicts, for habit feature rows, a probability per known
// location label.
type HabitClassifier interface {
	Labels() ([]string, error)
	PredictProba(rows [][]float64) ([][]float64, error)
}

// Input is one location-attribution query.
type Input struct {
	Start     time.Time
	Activity  []model.Activity
	Locations []model.Location
	Before    string
	After     string
}

// Result holds the per-location signals and the blended outcome.
type Result struct {
	Final   map[string]float64
	Habit   map[string]float64
	Journey map[string]float64

	// Best is the winning location name; empty when Confident is false.
	Best       string
	Confidence float64
	// Confident is false when every blended score is exactly zero.
	Confident bool
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// ValidWeights reports whether a blend is usable: both weights non-negative
// and at least one positive.
func ValidWeights(journeyWeight, habitWeight float64) bool {
	return journeyWeight >= 0 && habitWeight >= 0 && journeyWeight+habitWeight > 0
}

// WithWeights overrides the journey and habit blend weights. Invalid blends
// are ignored.
func WithWeights(journeyWeight, habitWeight float64) Option {
	return func(s *Scorer) {
		if ValidWeights(journeyWeight, habitWeight) {
			s.journeyWeight = journeyWeight
			s.habitWeight = habitWeight
		}
	}
}

// Scorer is safe for concurrent use: it only reads its graph and classifier.
type Scorer struct {
	graph         journey.Graph
	habit         HabitClassifier
	journeyWeight float64
	habitWeight   float64
}

// New creates a scorer over an immutable graph and habit classifier.
func New(graph journey.Graph, habit HabitClassifier, opts ...Option) *Scorer {
	s := &Scorer{
		graph:         graph,
		habit:         habit,
		journeyWeight: DefaultJourneyWeight,
		habitWeight:   DefaultHabitWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score blends journey and habit signals over every candidate location
// name. Exact ties on the maximum go to the lexically smallest name.
func (s *Scorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score: %w", err)
	}
	habit, err := s.Habit(in)
	if err != nil {
		return Result{}, err
	}
	journeyScores := s.graph.Waypoints(in.Before, in.After)

	res := Result{
		Final:   make(map[string]float64, len(in.Locations)),
		Habit:   habit,
		Journey: journeyScores,
	}
	for _, loc := range in.Locations {
		res.Final[loc.Name] = s.journeyWeight*journeyScores[loc.Name] + s.habitWeight*habit[loc.Name]
	}

	names := make([]string, 0, len(res.Final))
	for name := range res.Final {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		score := res.Final[name]
		if score == 0 {
			continue
		}
		if !res.Confident || score > res.Confidence {
			res.Best, res.Confidence, res.Confident = name, score, true
		}
	}
	return res, nil
}

// Habit returns, for every label known to the classifier, the sum over all
// candidate-location rows of that label's predicted probability. Each row
// uses the query time and one candidate's observed frequency in the
// activity history. An empty history produces no habit signal.
func (s *Scorer) Habit(in Input) (map[string]float64, error) {
	scores := make(map[string]float64)
	if len(in.Activity) == 0 || len(in.Locations) == 0 {
		return scores, nil
	}
	if s.habit == nil {
		return nil, ErrNoHabitModel
	}

	freq := features.Frequencies(in.Activity)
	rows := make([][]float64, len(in.Locations))
	for i, loc := range in.Locations {
		rows[i] = features.NewLocationVector(in.Start, freq[loc.ID]).Row()
	}

	labels, err := s.habit.Labels()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHabitPredict, err)
	}
	proba, err := s.habit.PredictProba(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHabitPredict, err)
	}
	for _, row := range proba {
		for j, label := range labels {
			scores[label] += row[j]
		}
	}
	return scores, nil
}
