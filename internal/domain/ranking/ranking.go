// Package ranking orders owner-attribution candidates and explains each
// score with human-readable evidence.
package ranking

import (
	"errors"
	"fmt"
	"sort"

	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/model"
)

// ErrLengthMismatch is returned when candidates, vectors and probabilities
// are not aligned.
var ErrLengthMismatch = errors.New("candidates, feature vectors and probabilities differ in length")

// Evidence templates.
const (
	faceMatchTemplate = "User's face was detected by a nearby CCTV camera within %.0f seconds."
	faceMatchNoGap    = "User's face was detected by a nearby CCTV camera."
	alibiConflict     = "CONFLICT: User had known activity at a different location."
	bookingMatch      = "User had an active booking for this location at the time of the event."
	wifiTemplate      = "A known device connected to a nearby Wi-Fi AP within %.0f seconds."
	wifiNoGap         = "A known device connected to a nearby Wi-Fi AP."
	noStrongEvidence  = "No strong contextual evidence found to link this user."
)

// Candidate is one ranked hypothesis.
type Candidate struct {
	Subject  model.Subject
	Vector   features.OwnerVector
	Score    float64
	Evidence []string
}

// Explain turns a feature vector into evidence lines in a fixed order:
// face match, alibi conflict, booking, Wi-Fi co-location. A vector with no
// flag set yields a single "no strong evidence" line.
func Explain(v features.OwnerVector) []string {
	var out []string
	if v.FaceMatchInFrame {
		out = append(out, withGap(v.TimeDiffCCTV, faceMatchTemplate, faceMatchNoGap))
	}
	if v.HasAlibi {
		out = append(out, alibiConflict)
	}
	if v.IsInBooking {
		out = append(out, bookingMatch)
	}
	if v.SameLocationWifi {
		out = append(out, withGap(v.TimeDiffWifi, wifiTemplate, wifiNoGap))
	}
	if len(out) == 0 {
		out = append(out, noStrongEvidence)
	}
	return out
}

func withGap(g features.Gap, template, fallback string) string {
	if s, ok := g.Seconds(); ok {
		return fmt.Sprintf(template, s)
	}
	return fallback
}

// Rank pairs each subject with its vector and probability, attaches
// evidence and sorts by probability, then evidence count, both descending.
// Candidates equal on both keep their input order.
func Rank(subjects []model.Subject, vectors []features.OwnerVector, probabilities []float64) ([]Candidate, error) {
	if len(subjects) != len(vectors) || len(subjects) != len(probabilities) {
		return nil, fmt.Errorf("rank: %d/%d/%d: %w", len(subjects), len(vectors), len(probabilities), ErrLengthMismatch)
	}
	out := make([]Candidate, len(subjects))
	for i, s := range subjects {
		out[i] = Candidate{
			Subject:  s,
			Vector:   vectors[i],
			Score:    probabilities[i],
			Evidence: Explain(vectors[i]),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return len(out[i].Evidence) > len(out[j].Evidence)
	})
	return out, nil
}
