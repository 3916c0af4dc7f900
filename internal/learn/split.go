package learn

import (
	"math"
	"math/rand"
	"sort"
)

// Split holds a train/test partition of row indexes.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions n = len(y) rows so that every class keeps its
// share in the test set. Classes with a single row stay in training. The
// result depends only on y, testFraction and seed.
func StratifiedSplit(y []int, testFraction float64, seed int64) Split {
	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible split
	var s Split
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		s.Test = append(s.Test, idx[:nTest]...)
		s.Train = append(s.Train, idx[nTest:]...)
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s
}

// Rows selects the rows of x at idx.
func Rows[T any](x []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}
