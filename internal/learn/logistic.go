package learn

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Logistic is a binary logistic-regression classifier trained with
// full-batch gradient descent.
type Logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Labels  []int     `json:"classes"` // [negative, positive]
}

var _ Classifier = (*Logistic)(nil)

// FitLogistic trains on rows x with exactly two distinct labels in y. The
// larger label is the positive class.
func FitLogistic(x [][]float64, y []int, p Params) (*Logistic, error) {
	d, err := checkMatrix(x)
	if err != nil {
		return nil, fmt.Errorf("fit logistic: %w", err)
	}
	if len(y) != len(x) {
		return nil, fmt.Errorf("fit logistic: %d labels for %d rows: %w", len(y), len(x), ErrDimensionMismatch)
	}
	classes := distinct(y)
	if len(classes) != 2 {
		return nil, fmt.Errorf("fit logistic: %d classes: %w", len(classes), ErrSingleClass)
	}
	p = p.normalized()

	targets := make([]float64, len(y))
	for i, c := range y {
		if c == classes[1] {
			targets[i] = 1
		}
	}
	sw := sampleWeights(y, p.Balanced)
	norm := floats.Sum(sw)

	m := &Logistic{Weights: make([]float64, d), Labels: classes}
	grad := make([]float64, d)
	for epoch := 0; epoch < p.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradB float64
		for i, row := range x {
			e := (sigmoid(floats.Dot(m.Weights, row)+m.Bias) - targets[i]) * sw[i]
			floats.AddScaled(grad, e, row)
			gradB += e
		}
		floats.Scale(1/norm, grad)
		floats.AddScaled(grad, p.L2, m.Weights)
		floats.AddScaled(m.Weights, -p.LearningRate, grad)
		m.Bias -= p.LearningRate * gradB / norm
	}
	return m, nil
}

// Classes returns [negative, positive].
func (m *Logistic) Classes() []int { return m.Labels }

// Coefficients returns the learned per-feature weights.
func (m *Logistic) Coefficients() []float64 {
	out := make([]float64, len(m.Weights))
	copy(out, m.Weights)
	return out
}

// PredictProba returns [P(negative), P(positive)] per row.
func (m *Logistic) PredictProba(x [][]float64) ([][]float64, error) {
	if m == nil || len(m.Labels) != 2 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(x, len(m.Weights)); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		pos := sigmoid(floats.Dot(m.Weights, row) + m.Bias)
		out[i] = []float64{1 - pos, pos}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func distinct(y []int) []int {
	seen := make(map[int]struct{})
	for _, c := range y {
		seen[c] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
