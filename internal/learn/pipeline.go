package learn

import "fmt"

// LabeledPipeline scales raw rows, runs a classifier and names its
// probability columns through a label encoder.
type LabeledPipeline struct {
	Scaler  *Scaler
	Model   Classifier
	Encoder *LabelEncoder
}

// Labels returns the label of every probability column.
func (p LabeledPipeline) Labels() ([]string, error) {
	if p.Model == nil || p.Encoder == nil {
		return nil, ErrNotFitted
	}
	classes := p.Model.Classes()
	out := make([]string, len(classes))
	for i, code := range classes {
		label, err := p.Encoder.Decode(code)
		if err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
		out[i] = label
	}
	return out, nil
}

// PredictProba scales x and returns the classifier's probabilities.
func (p LabeledPipeline) PredictProba(x [][]float64) ([][]float64, error) {
	if p.Model == nil || p.Scaler == nil {
		return nil, ErrNotFitted
	}
	scaled, err := p.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	return p.Model.PredictProba(scaled)
}
