package features

import (
	"time"

	"github.com/okian/attrib/internal/domain/model"
)

// LocationDims is the width of a habit (location) feature vector.
const LocationDims = 4

// LocationColumns names the habit vector columns in model-input order.
var LocationColumns = [LocationDims]string{
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"historical_frequency",
}

// LocationVector describes one (time, location) habit observation.
type LocationVector struct {
	HourOfDay           int
	DayOfWeek           int // Monday = 0
	IsWeekend           bool
	HistoricalFrequency float64
}

// Row returns the vector in model-input order.
func (v LocationVector) Row() []float64 {
	return []float64{
		float64(v.HourOfDay),
		float64(v.DayOfWeek),
		flag(v.IsWeekend),
		v.HistoricalFrequency,
	}
}

// Weekday returns t's day of week with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NewLocationVector builds the vector for time t and a location frequency.
// The hour and day are read in t's own offset.
func NewLocationVector(t time.Time, frequency float64) LocationVector {
	day := Weekday(t)
	return LocationVector{
		HourOfDay:           t.Hour(),
		DayOfWeek:           day,
		IsWeekend:           day >= 5,
		HistoricalFrequency: frequency,
	}
}

// Frequencies returns, per location id, the share of activity rows observed
// at that location. Rows without a location still count toward the total.
// An empty history yields an empty map.
func Frequencies(activity []model.Activity) map[model.ID]float64 {
	out := make(map[model.ID]float64)
	if len(activity) == 0 {
		return out
	}
	counts := make(map[model.ID]int)
	for _, a := range activity {
		if a.LocationID.IsZero() {
			continue
		}
		counts[a.LocationID]++
	}
	total := float64(len(activity))
	for id, n := range counts {
		out[id] = float64(n) / total
	}
	return out
}
