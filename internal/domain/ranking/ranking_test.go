package ranking_test

import (
	"errors"
	"testing"

	"github.com/okian/attrib/internal/domain/features"
	"github.com/okian/attrib/internal/domain/model"
	"github.com/okian/attrib/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExplain(t *testing.T) {
	Convey("Given a face match 45 seconds from the anchor", t, func() {
		v := features.OwnerVector{FaceMatchInFrame: true, TimeDiffCCTV: features.GapOf(45)}

		Convey("Then the evidence references a 45-second CCTV match", func() {
			So(ranking.Explain(v), ShouldResemble, []string{
				"User's face was detected by a nearby CCTV camera within 45 seconds.",
			})
		})
	})

	Convey("Given every flag set", t, func() {
		v := features.OwnerVector{
			FaceMatchInFrame: true, TimeDiffCCTV: features.GapOf(12.4),
			HasAlibi:         true,
			IsInBooking:      true,
			SameLocationWifi: true, TimeDiffWifi: features.GapOf(300),
		}
		ev := ranking.Explain(v)

		Convey("Then lines follow the fixed order", func() {
			So(len(ev), ShouldEqual, 4)
			So(ev[0], ShouldContainSubstring, "within 12 seconds")
			So(ev[1], ShouldStartWith, "CONFLICT:")
			So(ev[2], ShouldContainSubstring, "active booking")
			So(ev[3], ShouldEqual, "A known device connected to a nearby Wi-Fi AP within 300 seconds.")
		})
	})

	Convey("Given a Wi-Fi match without a usable time", t, func() {
		ev := ranking.Explain(features.OwnerVector{SameLocationWifi: true})

		Convey("Then the line omits the gap instead of printing the marker", func() {
			So(ev, ShouldResemble, []string{"A known device connected to a nearby Wi-Fi AP."})
		})
	})

	Convey("Given a Wi-Fi match beyond the no-evidence marker", t, func() {
		var g features.Gap
		ev := ranking.Explain(features.OwnerVector{SameLocationWifi: true, TimeDiffWifi: g.Observe(1500)})

		Convey("Then the real gap is printed", func() {
			So(ev, ShouldResemble, []string{"A known device connected to a nearby Wi-Fi AP within 1500 seconds."})
		})
	})

	Convey("Given no flags", t, func() {
		Convey("Then a single no-evidence line is produced", func() {
			So(ranking.Explain(features.OwnerVector{}), ShouldResemble, []string{
				"No strong contextual evidence found to link this user.",
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given candidates with tied and distinct probabilities", t, func() {
		subjects := []model.Subject{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
		vectors := []features.OwnerVector{
			{},
			{IsInBooking: true, SameLocationWifi: true, TimeDiffWifi: features.GapOf(10)},
			{HasAlibi: true},
			{IsInBooking: true},
		}
		probs := []float64{0.4, 0.4, 0.9, 0.4}

		ranked, err := ranking.Rank(subjects, vectors, probs)
		So(err, ShouldBeNil)

		Convey("Then probability is the primary key", func() {
			So(ranked[0].Subject.ID, ShouldEqual, model.ID("c"))
			So(ranked[0].Score, ShouldEqual, 0.9)
		})

		Convey("And ties are broken by evidence count, then input order", func() {
			So(ranked[1].Subject.ID, ShouldEqual, model.ID("b"))
			So(ranked[2].Subject.ID, ShouldEqual, model.ID("a"))
			So(ranked[3].Subject.ID, ShouldEqual, model.ID("d"))
		})
	})

	Convey("Given misaligned inputs", t, func() {
		_, err := ranking.Rank([]model.Subject{{ID: "a"}}, nil, []float64{1})

		Convey("Then ranking fails", func() {
			So(errors.Is(err, ranking.ErrLengthMismatch), ShouldBeTrue)
		})
	})
}
