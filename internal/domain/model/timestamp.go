package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// timestampLayouts lists the layouts accepted for evidence timestamps, most
// specific first. Naive layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp is an evidence time that may be unparseable. Records carrying an
// invalid timestamp are skipped by time-based rules instead of failing the
// whole request.
type Timestamp struct {
	Time  time.Time
	Valid bool
	Raw   string
}

// At returns a valid timestamp for t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true, Raw: t.Format(time.RFC3339Nano)}
}

// ParseTimestamp parses s with the accepted layouts. It never fails: an
// unparseable value yields a Timestamp with Valid == false.
func ParseTimestamp(s string) Timestamp {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Timestamp{Raw: s}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t, Valid: true, Raw: s}
		}
	}
	return Timestamp{Raw: s}
}

// UnmarshalJSON decodes a JSON string leniently. Non-string values decode
// to an invalid timestamp.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*ts = Timestamp{Raw: string(b)}
		return nil
	}
	*ts = ParseTimestamp(s)
	return nil
}

// MarshalJSON echoes the raw value so responses round-trip what callers sent.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Valid && ts.Raw == "" {
		return json.Marshal(ts.Time.Format(time.RFC3339Nano))
	}
	return json.Marshal(ts.Raw)
}

// AbsDiffSeconds returns |a − b| in seconds. Both timestamps must be valid.
func AbsDiffSeconds(a, b Timestamp) float64 {
	d := a.Time.Sub(b.Time).Seconds()
	if d < 0 {
		return -d
	}
	return d
}
