// Package learn provides the supervised-learning capability consumed by the
// attribution engine: probabilistic classifiers, a standard scaler and a
// label encoder, all serialisable as plain JSON snapshots.
package learn

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotFitted         = errors.New("model not fitted")
	ErrUnknownLabel      = errors.New("unknown label")
	ErrSingleClass       = errors.New("need at least two classes")
)

// Classifier predicts class probabilities for feature rows.
type Classifier interface {
	// Classes returns the encoded labels in probability-column order.
	Classes() []int
	// PredictProba returns one row per input row and one column per class.
	PredictProba(x [][]float64) ([][]float64, error)
}

// FitFunc trains a classifier on rows x with encoded labels y.
type FitFunc func(x [][]float64, y []int) (Classifier, error)

// Params tunes gradient-descent training.
type Params struct {
	Epochs       int
	LearningRate float64
	// L2 is the ridge penalty applied to weights, not biases.
	L2 float64
	// Balanced reweights samples inversely to their class frequency.
	Balanced bool
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{Epochs: 300, LearningRate: 0.1, L2: 1e-3}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.Epochs <= 0 {
		p.Epochs = d.Epochs
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.L2 < 0 {
		p.L2 = 0
	}
	return p
}

// checkMatrix validates that x is non-empty and rectangular, returning its width.
func checkMatrix(x [][]float64) (int, error) {
	if len(x) == 0 {
		return 0, ErrEmptyDataset
	}
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return 0, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), d, ErrDimensionMismatch)
		}
	}
	return d, nil
}

func checkWidth(x [][]float64, d int) error {
	for i, row := range x {
		if len(row) != d {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), d, ErrDimensionMismatch)
		}
	}
	return nil
}

// sampleWeights returns per-sample weights, balanced by class when asked.
func sampleWeights(y []int, balanced bool) []float64 {
	w := make([]float64, len(y))
	if !balanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make(map[int]int)
	for _, c := range y {
		counts[c]++
	}
	n, k := float64(len(y)), float64(len(counts))
	for i, c := range y {
		w[i] = n / (k * float64(counts[c]))
	}
	return w
}

// Accuracy returns the share of rows whose most probable class equals y.
func Accuracy(c Classifier, x [][]float64, y []int) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptyDataset
	}
	proba, err := c.PredictProba(x)
	if err != nil {
		return 0, err
	}
	classes := c.Classes()
	hits := 0
	for i, row := range proba {
		best := 0
		for j := range row {
			if row[j] > row[best] {
				best = j
			}
		}
		if classes[best] == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(x)), nil
}
