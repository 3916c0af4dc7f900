// Package features turns raw evidence into fixed-shape numeric vectors used
// both when synthesising training sets and when serving predictions.
package features

import "math"

// NoEvidence is the model-input value of an absent gap. It is a marker, not a
// measurement: a real gap of 999 seconds or more is still recorded and
// reported through Gap.Found and Gap.Seconds.
const NoEvidence = 999.0

// Gap is the smallest observed time difference, in seconds, between an
// anchor event and a matching evidence record. The zero value means no
// matching evidence was found.
type Gap struct {
	seconds float64
	found   bool
}

// GapOf returns a found gap of the given seconds.
func GapOf(seconds float64) Gap {
	return Gap{seconds: math.Abs(seconds), found: true}
}

// Found reports whether any matching evidence contributed to the gap.
func (g Gap) Found() bool { return g.found }

// Seconds returns the gap and whether it was found.
func (g Gap) Seconds() (float64, bool) { return g.seconds, g.found }

// Value returns the model-input value: the gap in seconds capped at
// NoEvidence, or NoEvidence when nothing was found. Models were trained on
// inputs that never exceed the marker.
func (g Gap) Value() float64 {
	if !g.found {
		return NoEvidence
	}
	return math.Min(g.seconds, NoEvidence)
}

// Observe keeps the smaller of g and seconds. The first observation is
// always kept, however large.
func (g Gap) Observe(seconds float64) Gap {
	seconds = math.Abs(seconds)
	if !g.found || seconds < g.seconds {
		return Gap{seconds: seconds, found: true}
	}
	return g
}
