package model

// Subject is the identity anchor for attribution.
type Subject struct {
	ID         ID     `json:"id"`
	FullName   string `json:"fullName"`
	ExternalID string `json:"externalId"`
	CardID     ID     `json:"cardId,omitempty"`
	FaceID     ID     `json:"faceId,omitempty"`
}

// SubjectRef is the public projection of a Subject returned to callers.
type SubjectRef struct {
	ID         ID     `json:"id"`
	FullName   string `json:"fullName"`
	ExternalID string `json:"externalId"`
}

// Ref returns the public projection of s.
func (s Subject) Ref() SubjectRef {
	return SubjectRef{ID: s.ID, FullName: s.FullName, ExternalID: s.ExternalID}
}

// Location is a physical place known to the console.
type Location struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Building   string `json:"building,omitempty"`
	RoomNumber string `json:"roomNumber,omitempty"`
}
