package learn

import (
	"fmt"
	"sort"
)

// LabelEncoder maps string labels to dense integer codes in sorted order.
type LabelEncoder struct {
	Labels []string `json:"labels"`
	index  map[string]int
}

// FitLabelEncoder collects the distinct labels of y.
func FitLabelEncoder(y []string) (*LabelEncoder, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("fit label encoder: %w", ErrEmptyDataset)
	}
	seen := make(map[string]struct{}, len(y))
	for _, l := range y {
		seen[l] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return &LabelEncoder{Labels: labels}, nil
}

func (e *LabelEncoder) lookup() map[string]int {
	if e.index == nil {
		idx := make(map[string]int, len(e.Labels))
		for i, l := range e.Labels {
			idx[l] = i
		}
		return idx
	}
	return e.index
}

// Index builds the reverse lookup. Call it once before sharing the encoder
// between goroutines.
func (e *LabelEncoder) Index() *LabelEncoder {
	e.index = e.lookup()
	return e
}

// Encode returns the codes of y.
func (e *LabelEncoder) Encode(y []string) ([]int, error) {
	idx := e.lookup()
	out := make([]int, len(y))
	for i, l := range y {
		code, ok := idx[l]
		if !ok {
			return nil, fmt.Errorf("%q: %w", l, ErrUnknownLabel)
		}
		out[i] = code
	}
	return out, nil
}

// Decode returns the label of code.
func (e *LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Labels) {
		return "", fmt.Errorf("code %d: %w", code, ErrUnknownLabel)
	}
	return e.Labels[code], nil
}
