package learn

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises each column to zero mean and unit variance using
// population statistics. Constant columns are left centred with scale 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes column statistics of x.
func FitScaler(x [][]float64) (*Scaler, error) {
	d, err := checkMatrix(x)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	s := &Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

// Transform returns a scaled copy of x.
func (s *Scaler) Transform(x [][]float64) ([][]float64, error) {
	if s == nil || len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(x, len(s.Mean)); err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
