package learn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax is a multinomial logistic-regression classifier.
type Softmax struct {
	Weights [][]float64 `json:"weights"` // one row per class
	Bias    []float64   `json:"bias"`
	Labels  []int       `json:"classes"`
}

var _ Classifier = (*Softmax)(nil)

// FitSoftmax trains on rows x with at least two distinct labels in y.
func FitSoftmax(x [][]float64, y []int, p Params) (*Softmax, error) {
	d, err := checkMatrix(x)
	if err != nil {
		return nil, fmt.Errorf("fit softmax: %w", err)
	}
	if len(y) != len(x) {
		return nil, fmt.Errorf("fit softmax: %d labels for %d rows: %w", len(y), len(x), ErrDimensionMismatch)
	}
	classes := distinct(y)
	if len(classes) < 2 {
		return nil, fmt.Errorf("fit softmax: %w", ErrSingleClass)
	}
	p = p.normalized()

	k := len(classes)
	column := make(map[int]int, k)
	for j, c := range classes {
		column[c] = j
	}
	sw := sampleWeights(y, p.Balanced)
	norm := floats.Sum(sw)

	m := &Softmax{Weights: make([][]float64, k), Bias: make([]float64, k), Labels: classes}
	grad := make([][]float64, k)
	for j := range m.Weights {
		m.Weights[j] = make([]float64, d)
		grad[j] = make([]float64, d)
	}
	gradB := make([]float64, k)
	proba := make([]float64, k)

	for epoch := 0; epoch < p.Epochs; epoch++ {
		for j := range grad {
			for c := range grad[j] {
				grad[j][c] = 0
			}
			gradB[j] = 0
		}
		for i, row := range x {
			m.probaInto(proba, row)
			target := column[y[i]]
			for j := 0; j < k; j++ {
				e := proba[j]
				if j == target {
					e--
				}
				e *= sw[i]
				floats.AddScaled(grad[j], e, row)
				gradB[j] += e
			}
		}
		for j := 0; j < k; j++ {
			floats.Scale(1/norm, grad[j])
			floats.AddScaled(grad[j], p.L2, m.Weights[j])
			floats.AddScaled(m.Weights[j], -p.LearningRate, grad[j])
			m.Bias[j] -= p.LearningRate * gradB[j] / norm
		}
	}
	return m, nil
}

// Classes returns the encoded labels in column order.
func (m *Softmax) Classes() []int { return m.Labels }

// PredictProba returns one probability per class for every row.
func (m *Softmax) PredictProba(x [][]float64) ([][]float64, error) {
	if m == nil || len(m.Labels) == 0 || len(m.Weights) != len(m.Labels) {
		return nil, ErrNotFitted
	}
	if err := checkWidth(x, len(m.Weights[0])); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(m.Labels))
		m.probaInto(out[i], row)
	}
	return out, nil
}

func (m *Softmax) probaInto(dst, row []float64) {
	for j := range m.Weights {
		dst[j] = floats.Dot(m.Weights[j], row) + m.Bias[j]
	}
	lse := floats.LogSumExp(dst)
	for j := range dst {
		dst[j] = math.Exp(dst[j] - lse)
	}
}
