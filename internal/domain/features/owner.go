package features

import (
	"github.com/okian/attrib/internal/domain/model"
)

// OwnerDims is the width of an owner feature vector.
const OwnerDims = 6

// OwnerColumns names the owner vector columns in model-input order.
var OwnerColumns = [OwnerDims]string{
	"time_diff_wifi",
	"same_location_wifi",
	"is_in_booking",
	"has_alibi",
	"time_diff_cctv_face",
	"face_match_in_frame",
}

// OwnerVector links one candidate subject to a set of anchor events.
type OwnerVector struct {
	TimeDiffWifi     Gap
	SameLocationWifi bool
	IsInBooking      bool
	HasAlibi         bool
	TimeDiffCCTV     Gap
	FaceMatchInFrame bool
}

// Row returns the vector in model-input order, with absent gaps encoded as
// NoEvidence and flags as 0/1.
func (v OwnerVector) Row() []float64 {
	return []float64{
		v.TimeDiffWifi.Value(),
		flag(v.SameLocationWifi),
		flag(v.IsInBooking),
		flag(v.HasAlibi),
		v.TimeDiffCCTV.Value(),
		flag(v.FaceMatchInFrame),
	}
}

// Skip describes an evidence record ignored during extraction.
type Skip struct {
	Kind   model.Kind
	Reason string
}

// SkipFunc receives skipped records. It may be nil.
type SkipFunc func(Skip)

// ExtractOwner computes the owner feature vector of candidate against the
// anchors using the evidence bundle. It is pure: the optional onSkip hook
// only observes records that were ignored.
//
// Rules:
//   - anchors lacking a location or a valid timestamp are skipped;
//   - Wi-Fi logs of the candidate's devices at the anchor location set the
//     co-location flag, and the smallest time gap over all of them is kept;
//   - a booking by the candidate at the anchor location sets the booking
//     flag, with no time-window check;
//   - any alibi record of the candidate anywhere in the bundle sets the
//     alibi flag, with no time or location check;
//   - every frame at the anchor location feeds the CCTV gap, and a frame
//     that contains the candidate's face sets the face-match flag.
func ExtractOwner(anchors []model.AnchorEvent, candidate model.Subject, bundle model.Bundle, onSkip SkipFunc) OwnerVector {
	var v OwnerVector
	skip := func(kind model.Kind, reason string) {
		if onSkip != nil {
			onSkip(Skip{Kind: kind, Reason: reason})
		}
	}

	face, hasFace := bundle.FaceOf(candidate)

	for _, anchor := range anchors {
		if !anchor.Usable() {
			skip(model.KindSwipe, "anchor without location or valid timestamp")
			continue
		}

		for _, log := range bundle.WifiLogs {
			if log.Device.UserID != candidate.ID || log.AccessPointID != anchor.LocationID {
				continue
			}
			v.SameLocationWifi = true
			if !log.Timestamp.Valid {
				skip(model.KindWifi, "unparseable timestamp")
				continue
			}
			v.TimeDiffWifi = v.TimeDiffWifi.Observe(model.AbsDiffSeconds(anchor.Timestamp, log.Timestamp))
		}

		for _, booking := range bundle.Bookings {
			if booking.UserID == candidate.ID && booking.LocationID == anchor.LocationID {
				v.IsInBooking = true
				break
			}
		}

		if !v.HasAlibi {
			for _, alibi := range bundle.AlibiSwipes {
				if alibi.Card.UserID == candidate.ID {
					v.HasAlibi = true
					break
				}
			}
		}

		for _, frame := range bundle.CCTVFrames {
			if frame.LocationID != anchor.LocationID {
				continue
			}
			if !frame.Timestamp.Valid {
				skip(model.KindCCTV, "unparseable timestamp")
				continue
			}
			v.TimeDiffCCTV = v.TimeDiffCCTV.Observe(model.AbsDiffSeconds(anchor.Timestamp, frame.Timestamp))
			if hasFace && frame.HasFace(face) {
				v.FaceMatchInFrame = true
			}
		}
	}
	return v
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
