// Package journey builds the location transition graph from historical swipe
// sequences and answers two-hop waypoint queries against it.
package journey

import (
	"sort"
	"time"
)

// Step is one observed presence of a subject at a location.
type Step struct {
	Location string
	At       time.Time
}

// Graph counts observed location-to-location transitions. It is built once
// offline and only read while serving; the zero value is an empty graph.
type Graph map[string]map[string]int

// Build scans every subject's steps in ascending time order and counts each
// consecutive pair. Input slices are not modified. Steps with equal times
// keep their input order.
func Build(sequences map[string][]Step) Graph {
	g := make(Graph)
	for _, steps := range sequences {
		g.addSequence(steps)
	}
	return g
}

func (g Graph) addSequence(steps []Step) {
	if len(steps) < 2 {
		return
	}
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })
	for i := 0; i+1 < len(ordered); i++ {
		g.add(ordered[i].Location, ordered[i+1].Location, 1)
	}
}

func (g Graph) add(from, to string, n int) {
	row, ok := g[from]
	if !ok {
		row = make(map[string]int)
		g[from] = row
	}
	row[to] += n
}

// Merge returns a new graph holding the per-edge sum of g and other.
func (g Graph) Merge(other Graph) Graph {
	out := make(Graph, len(g))
	for _, src := range []Graph{g, other} {
		for from, row := range src {
			for to, n := range row {
				out.add(from, to, n)
			}
		}
	}
	return out
}

// Count returns the number of observed from→to transitions.
func (g Graph) Count(from, to string) int {
	return g[from][to]
}

// OutTotal returns the number of transitions leaving from.
func (g Graph) OutTotal(from string) int {
	total := 0
	for _, n := range g[from] {
		total += n
	}
	return total
}

// Probability returns count(from,to) / OutTotal(from), or 0 when from has no
// outgoing transitions.
func (g Graph) Probability(from, to string) float64 {
	total := g.OutTotal(from)
	if total == 0 {
		return 0
	}
	return float64(g.Count(from, to)) / float64(total)
}

// Waypoints scores every location B on a two-hop path before → B → after as
// P(before→B) × P(B→after). Locations without a path to after are absent.
func (g Graph) Waypoints(before, after string) map[string]float64 {
	scores := make(map[string]float64)
	total := g.OutTotal(before)
	if total == 0 {
		return scores
	}
	for b, n := range g[before] {
		if g.Count(b, after) == 0 {
			continue
		}
		scores[b] = float64(n) / float64(total) * g.Probability(b, after)
	}
	return scores
}

// Nodes returns the number of distinct locations appearing in the graph.
func (g Graph) Nodes() int {
	seen := make(map[string]struct{}, len(g))
	for from, row := range g {
		seen[from] = struct{}{}
		for to := range row {
			seen[to] = struct{}{}
		}
	}
	return len(seen)
}

// Edges returns the number of distinct from→to pairs.
func (g Graph) Edges() int {
	n := 0
	for _, row := range g {
		n += len(row)
	}
	return n
}
