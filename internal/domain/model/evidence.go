package model

// Kind tags an evidence record.
type Kind string

// Evidence kinds.
const (
	KindSwipe   Kind = "swipe"
	KindWifi    Kind = "wifi"
	KindBooking Kind = "booking"
	KindAlibi   Kind = "alibi"
	KindCCTV    Kind = "cctv"
	KindNote    Kind = "note"
)

// Owner resolves a card or device to the subject holding it.
type Owner struct {
	UserID ID `json:"userId"`
}

// AnchorEvent is an incident under investigation. A missing location or an
// invalid timestamp makes the anchor unusable; it is skipped, not rejected.
type AnchorEvent struct {
	ID         ID        `json:"id,omitempty"`
	CardID     ID        `json:"cardId,omitempty"`
	LocationID ID        `json:"locationId"`
	Timestamp  Timestamp `json:"timestamp"`
}

// Usable reports whether the anchor can take part in extraction.
func (a AnchorEvent) Usable() bool {
	return !a.LocationID.IsZero() && a.Timestamp.Valid
}

// WifiLog is a device association with an access point. The access point id
// shares the location id space.
type WifiLog struct {
	AccessPointID ID        `json:"accessPointId"`
	Timestamp     Timestamp `json:"timestamp"`
	Device        Owner     `json:"device"`
}

// Booking is a room booking. Its time window is carried but not used for
// matching.
type Booking struct {
	UserID     ID        `json:"userId"`
	LocationID ID        `json:"locationId"`
	StartTime  Timestamp `json:"startTime"`
	EndTime    Timestamp `json:"endTime"`
}

// AlibiSwipe is a swipe elsewhere that may conflict with the anchor.
type AlibiSwipe struct {
	LocationID ID        `json:"locationId"`
	Timestamp  Timestamp `json:"timestamp"`
	Card       Owner     `json:"card"`
}

// CCTVFrame is a camera frame with the faces detected in it.
type CCTVFrame struct {
	ID              ID        `json:"id,omitempty"`
	LocationID      ID        `json:"locationId"`
	Timestamp       Timestamp `json:"timestamp"`
	DetectedFaceIDs []ID      `json:"detectedFaceIds"`
}

// HasFace reports whether face appears in the frame.
func (f CCTVFrame) HasFace(face ID) bool {
	for _, id := range f.DetectedFaceIDs {
		if id == face {
			return true
		}
	}
	return false
}

// Note is a free-text helpdesk or RSVP note.
type Note struct {
	UserID    ID        `json:"userId"`
	Text      string    `json:"text"`
	Timestamp Timestamp `json:"timestamp"`
}

// Bundle is all evidence supplied with one owner-attribution request.
type Bundle struct {
	WifiLogs    []WifiLog    `json:"wifiLogs"`
	Bookings    []Booking    `json:"bookings"`
	AlibiSwipes []AlibiSwipe `json:"alibiSwipes"`
	CCTVFrames  []CCTVFrame  `json:"cctvFrames"`
	Notes       []Note       `json:"notes"`
	FaceMap     map[ID]ID    `json:"user_to_face_map"`
}

// FaceOf returns the face id of s: its own face id when set, otherwise the
// bundle's face map entry.
func (b Bundle) FaceOf(s Subject) (ID, bool) {
	if !s.FaceID.IsZero() {
		return s.FaceID, true
	}
	face, ok := b.FaceMap[s.ID]
	if !ok || face.IsZero() {
		return "", false
	}
	return face, true
}

// Swipe is a historical card swipe used to build journeys and habits.
type Swipe struct {
	CardID     ID
	SubjectID  ID
	LocationID ID
	Timestamp  Timestamp
}

// Activity is one historical presence row for a subject at a location.
type Activity struct {
	LocationID ID        `json:"locationId"`
	Timestamp  Timestamp `json:"timestamp"`
}
