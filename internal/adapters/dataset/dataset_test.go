package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/attrib/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(strings.TrimLeft(body, "\n")), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const profiles = `
entity_id,name,role,email,department,student_id,staff_id,card_id,device_hash,face_id
E1,Ada Lovelace,student,ada@x,CS,S100,,C1,D1,F1
E2,Alan Turing,staff,alan@x,Math,,T200,C2,D2,
E3,Grace Hopper,student,grace@x,CS,S300,,,,F3
`

const swipes = `
card_id,location_id,timestamp
C1,LAB_101,2025-09-01 09:00:00
C2,LIB,2025-09-01T10:00:00Z
C9,GYM,2025-09-01 11:00:00
`

func TestLoad(t *testing.T) {
	Convey("Given a complete data directory", t, func() {
		dir := writeFiles(t, map[string]string{
			ProfilesFile: profiles,
			SwipesFile:   swipes,
			WifiFile: `
device_hash,ap_id,timestamp
D1,LAB_101,2025-09-01 09:00:30
DX,LAB_101,2025-09-01 09:01:00
`,
			CCTVFile: `
frame_id,location_id,timestamp,face_id
FR1,LAB_101,2025-09-01 09:00:45,F1
FR1,LAB_101,2025-09-01 09:00:45,F3
FR2,LIB,2025-09-01 10:00:10,
`,
			BookingsFile: `
booking_id,entity_id,room_id,start_time,end_time,attended
B1,E1,LAB_101,2025-09-01 08:30:00,2025-09-01 10:30:00,YES
`,
			LibraryFile: `
checkout_id,entity_id,book_id,timestamp
L1,E2,BK1,2025-09-01 09:00:00
`,
			NotesFile: `
note_id,entity_id,category,text,timestamp
N1,E3,rsvp,"Attending, with a guest",2025-09-01 12:00:00
`,
			LocationsFile: `
location_id,name,type,building
LAB_101,Robotics Lab,lab,Engineering
`,
		})

		d, err := Load(context.Background(), dir)
		So(err, ShouldBeNil)

		Convey("Then profiles become subjects with face map entries", func() {
			So(d.Subjects, ShouldHaveLength, 3)
			So(d.Subjects[0], ShouldResemble, model.Subject{ID: "E1", FullName: "Ada Lovelace", ExternalID: "S100", CardID: "C1", FaceID: "F1"})
			So(d.Subjects[1].ExternalID, ShouldEqual, "T200")
			So(d.Evidence.FaceMap, ShouldResemble, map[model.ID]model.ID{"E1": "F1", "E3": "F3"})
		})

		Convey("Then swipes resolve their card holder", func() {
			So(d.Swipes, ShouldHaveLength, 3)
			So(d.Swipes[0].SubjectID, ShouldEqual, model.ID("E1"))
			So(d.Swipes[0].Timestamp.Valid, ShouldBeTrue)
			So(d.Swipes[1].SubjectID, ShouldEqual, model.ID("E2"))
			So(d.Swipes[2].SubjectID.IsZero(), ShouldBeTrue)
			So(d.Unresolved[model.KindSwipe], ShouldEqual, 1)
		})

		Convey("Then wifi rows resolve their device", func() {
			So(d.Evidence.WifiLogs, ShouldHaveLength, 2)
			So(d.Evidence.WifiLogs[0].Device.UserID, ShouldEqual, model.ID("E1"))
			So(d.Evidence.WifiLogs[0].AccessPointID, ShouldEqual, model.ID("LAB_101"))
			So(d.Unresolved[model.KindWifi], ShouldEqual, 1)
		})

		Convey("Then CCTV detections are grouped per frame", func() {
			So(d.Evidence.CCTVFrames, ShouldHaveLength, 2)
			So(d.Evidence.CCTVFrames[0].DetectedFaceIDs, ShouldResemble, []model.ID{"F1", "F3"})
			So(d.Evidence.CCTVFrames[1].DetectedFaceIDs, ShouldBeEmpty)
		})

		Convey("Then bookings, alibis and notes are carried", func() {
			So(d.Evidence.Bookings, ShouldHaveLength, 1)
			So(d.Evidence.Bookings[0].LocationID, ShouldEqual, model.ID("LAB_101"))
			So(d.Evidence.AlibiSwipes, ShouldHaveLength, 1)
			So(d.Evidence.AlibiSwipes[0].Card.UserID, ShouldEqual, model.ID("E2"))
			So(d.Evidence.Notes[0].Text, ShouldEqual, "Attending, with a guest")
		})

		Convey("Then location names fall back to the raw id", func() {
			So(d.LocationName("LAB_101"), ShouldEqual, "Robotics Lab")
			So(d.LocationName("LIB"), ShouldEqual, "LIB")
		})
	})

	Convey("Given only the required files", t, func() {
		dir := writeFiles(t, map[string]string{ProfilesFile: profiles, SwipesFile: swipes})

		d, err := Load(context.Background(), dir)

		Convey("Then optional evidence is empty", func() {
			So(err, ShouldBeNil)
			So(Exists(dir), ShouldBeTrue)
			So(d.Evidence.WifiLogs, ShouldBeEmpty)
			So(d.Locations, ShouldBeEmpty)
		})
	})

	Convey("Given a directory without swipes", t, func() {
		dir := writeFiles(t, map[string]string{ProfilesFile: profiles})

		_, err := Load(context.Background(), dir)

		Convey("Then loading fails with ErrMissingFile", func() {
			So(errors.Is(err, ErrMissingFile), ShouldBeTrue)
			So(Exists(dir), ShouldBeFalse)
		})
	})

	Convey("Given swipes without a timestamp column", t, func() {
		dir := writeFiles(t, map[string]string{
			ProfilesFile: profiles,
			SwipesFile:   "card_id,location_id\nC1,LAB_101\n",
		})

		_, err := Load(context.Background(), dir)

		Convey("Then loading fails with ErrMissingColumn", func() {
			So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
		})
	})
}

func TestParseTable(t *testing.T) {
	Convey("Given CSV with a BOM, blank lines and ragged rows", t, func() {
		tb, err := parseTable(strings.NewReader("\ufeffCard_ID , location_id\n\n,\nC1\nC2,L2,extra\n"), "x.csv")
		So(err, ShouldBeNil)

		Convey("Then headers are normalised and ragged cells read empty", func() {
			So(tb.has("card_id"), ShouldBeTrue)
			So(tb.rows, ShouldHaveLength, 2)
			So(tb.get(tb.rows[0], "location_id"), ShouldEqual, "")
			So(tb.get(tb.rows[1], "location_id"), ShouldEqual, "L2")
		})
	})

	Convey("Given an empty file", t, func() {
		_, err := parseTable(strings.NewReader("\n\n"), "empty.csv")
		So(errors.Is(err, ErrEmptyFile), ShouldBeTrue)
	})
}
