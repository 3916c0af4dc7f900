package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/attrib/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func decodeID(raw string) (model.ID, error) {
	var id model.ID
	err := json.Unmarshal([]byte(raw), &id)
	return id, err
}

func TestIDUnmarshal(t *testing.T) {
	Convey("Given ids in every accepted JSON form", t, func() {
		cases := map[string]model.ID{
			`"S-17"`: "S-17",
			`42`:     "42",
			`-7`:     "-7",
			`12.0`:   "12",
			`1.2e1`:  "12",
			`1E2`:    "100",
			`1.5`:    "1.5",
			`null`:   "",
		}

		Convey("Then each decodes to its string form", func() {
			for raw, want := range cases {
				got, err := decodeID(raw)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})
	})

	Convey("Given two adjacent integers beyond float64 precision", t, func() {
		a, errA := decodeID(`9007199254740993`)
		b, errB := decodeID(`9007199254740992`)

		Convey("Then they stay distinct and exact", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(a, ShouldEqual, model.ID("9007199254740993"))
			So(b, ShouldEqual, model.ID("9007199254740992"))
			So(a, ShouldNotEqual, b)
		})

		Convey("And their integral float forms normalise without rounding", func() {
			c, err := decodeID(`9007199254740993.0`)
			So(err, ShouldBeNil)
			So(c, ShouldEqual, a)
		})
	})

	Convey("Given a number with an extreme exponent", t, func() {
		id, err := decodeID(`1e999999`)

		Convey("Then the literal is kept as is", func() {
			So(err, ShouldBeNil)
			So(id, ShouldEqual, model.ID("1e999999"))
		})
	})

	Convey("Given an invalid token", t, func() {
		_, err := decodeID(`true`)

		Convey("Then decoding fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
