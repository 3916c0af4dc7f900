// Package types contains response types shared by the service and HTTP layers.
package types

import "github.com/okian/attrib/internal/domain/model"

// OwnerPrediction is one ranked owner hypothesis.
type OwnerPrediction struct {
	User     model.SubjectRef `json:"user"`
	Score    float64          `json:"score"`
	Evidence []string         `json:"evidence"`
}

// OwnerResponse lists owner hypotheses best-first.
type OwnerResponse struct {
	Predictions []OwnerPrediction `json:"predictions"`
}

// LocationResponse carries the predicted waypoint, or a nil prediction with
// the reason no confident prediction could be made.
type LocationResponse struct {
	Prediction *model.Location `json:"prediction"`
	Reason     string          `json:"reason"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OwnerRequest asks who most likely caused the anchor events.
type OwnerRequest struct {
	AnchorEvents   []model.AnchorEvent `json:"anchorEvents"`
	CandidateUsers []model.Subject     `json:"candidateUsers"`
	AllEvidence    model.Bundle        `json:"allEvidence"`
}

// OwnerRequestKeys must all be present in an owner request body.
var OwnerRequestKeys = []string{"anchorEvents", "candidateUsers", "allEvidence"}

// LocationRef names a known location.
type LocationRef struct {
	Name string `json:"name"`
}

// LocationRequest asks where a subject most likely went between two
// observed locations.
type LocationRequest struct {
	StartTime          model.Timestamp  `json:"startTime"`
	HistoricalActivity []model.Activity `json:"historicalActivity"`
	AllLocations       []model.Location `json:"allLocations"`
	LocationBefore     LocationRef      `json:"locationBefore"`
	LocationAfter      LocationRef      `json:"locationAfter"`
}

// LocationRequestKeys must all be present in a location request body.
var LocationRequestKeys = []string{"startTime", "historicalActivity", "allLocations", "locationBefore", "locationAfter"}
