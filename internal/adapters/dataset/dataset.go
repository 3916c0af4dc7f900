// Package dataset reads the campus CSV exports used for training.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/attrib/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// File names inside the data directory.
const (
	ProfilesFile  = "student_or_staff_profiles.csv"
	SwipesFile    = "campus_card_swipes.csv"
	WifiFile      = "wifi_associations_logs.csv"
	CCTVFile      = "cctv_frames.csv"
	NotesFile     = "free_text_notes (helpdesk or RSVps).csv"
	BookingsFile  = "lab_bookings.csv"
	LibraryFile   = "library_checkouts.csv"
	LocationsFile = "locations.csv"
)

// Sentinel kinds for dataset errors.
var (
	ErrMissingFile   = errors.New("required dataset file missing")
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptyFile     = errors.New("dataset file has no header")
)

// Column aliases.
var (
	colEntity   = []string{"entity_id", "id", "user_id"}
	colName     = []string{"full_name", "name"}
	colExternal = []string{"student_id", "staff_id", "external_id"}
	colCard     = []string{"card_id"}
	colDevice   = []string{"device_hash", "device_id"}
	colFace     = []string{"face_id"}
	colLocation = []string{"location_id", "room_id"}
	colAP       = []string{"ap_id", "access_point_id", "location_id"}
	colTime     = []string{"timestamp", "time"}
	colStart    = []string{"start_time", "start"}
	colEnd      = []string{"end_time", "end"}
	colFrame    = []string{"frame_id"}
	colText     = []string{"text", "note", "description"}
	colLocID    = []string{"location_id", "id"}
	colLocName  = []string{"name", "location_name"}
)

// Dataset is every table resolved against the subject profiles.
type Dataset struct {
	Subjects  []model.Subject
	Locations []model.Location
	Swipes    []model.Swipe
	Evidence  model.Bundle

	// Unresolved counts rows whose card or device matched no subject.
	Unresolved map[model.Kind]int

	locationNames map[model.ID]string
}

// LocationName returns the display name of id, or the raw id when the
// location table does not know it.
func (d *Dataset) LocationName(id model.ID) string {
	if name, ok := d.locationNames[id]; ok && name != "" {
		return name
	}
	return id.String()
}

type source struct {
	file     string
	required bool
}

var sources = []source{
	{ProfilesFile, true},
	{SwipesFile, true},
	{WifiFile, false},
	{CCTVFile, false},
	{NotesFile, false},
	{BookingsFile, false},
	{LibraryFile, false},
	{LocationsFile, false},
}

// Load reads dir concurrently and resolves cards and devices to subjects.
// Optional files that are absent yield empty evidence of that kind.
func Load(ctx context.Context, dir string) (*Dataset, error) {
	var (
		mu     sync.Mutex
		tables = make(map[string]*table, len(sources))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := readTable(filepath.Join(dir, src.file), src.file)
			switch {
			case errors.Is(err, fs.ErrNotExist) && src.required:
				return fmt.Errorf("%s: %w", src.file, ErrMissingFile)
			case errors.Is(err, fs.ErrNotExist):
				return nil
			case err != nil:
				return err
			}
			mu.Lock()
			tables[src.file] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assemble(tables)
}

// Exists reports whether dir holds the required files.
func Exists(dir string) bool {
	for _, src := range sources {
		if !src.required {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, src.file)); err != nil {
			return false
		}
	}
	return true
}

func assemble(tables map[string]*table) (*Dataset, error) {
	d := &Dataset{
		Unresolved:    make(map[model.Kind]int),
		locationNames: make(map[model.ID]string),
	}
	d.Evidence.FaceMap = make(map[model.ID]model.ID)

	byCard, byDevice, err := d.readProfiles(tables[ProfilesFile])
	if err != nil {
		return nil, err
	}
	if err := d.readSwipes(tables[SwipesFile], byCard); err != nil {
		return nil, err
	}
	steps := []func() error{
		func() error { return d.readLocations(tables[LocationsFile]) },
		func() error { return d.readWifi(tables[WifiFile], byDevice) },
		func() error { return d.readCCTV(tables[CCTVFile]) },
		func() error { return d.readBookings(tables[BookingsFile]) },
		func() error { return d.readLibrary(tables[LibraryFile]) },
		func() error { return d.readNotes(tables[NotesFile]) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dataset) readProfiles(t *table) (map[model.ID]model.ID, map[model.ID]model.ID, error) {
	if err := t.require(colEntity); err != nil {
		return nil, nil, err
	}
	byCard := make(map[model.ID]model.ID)
	byDevice := make(map[model.ID]model.ID)
	for _, row := range t.rows {
		id := model.ID(t.get(row, colEntity...))
		if id.IsZero() {
			continue
		}
		s := model.Subject{
			ID:         id,
			FullName:   t.get(row, colName...),
			ExternalID: t.get(row, colExternal...),
			CardID:     model.ID(t.get(row, colCard...)),
			FaceID:     model.ID(t.get(row, colFace...)),
		}
		d.Subjects = append(d.Subjects, s)
		if !s.CardID.IsZero() {
			byCard[s.CardID] = id
		}
		if dev := model.ID(t.get(row, colDevice...)); !dev.IsZero() {
			byDevice[dev] = id
		}
		if !s.FaceID.IsZero() {
			d.Evidence.FaceMap[id] = s.FaceID
		}
	}
	return byCard, byDevice, nil
}

func (d *Dataset) readSwipes(t *table, byCard map[model.ID]model.ID) error {
	if err := t.require(colCard, colLocation, colTime); err != nil {
		return err
	}
	for _, row := range t.rows {
		card := model.ID(t.get(row, colCard...))
		owner, ok := byCard[card]
		if !ok {
			d.Unresolved[model.KindSwipe]++
		}
		d.Swipes = append(d.Swipes, model.Swipe{
			CardID:     card,
			SubjectID:  owner,
			LocationID: model.ID(t.get(row, colLocation...)),
			Timestamp:  model.ParseTimestamp(t.get(row, colTime...)),
		})
	}
	return nil
}

func (d *Dataset) readLocations(t *table) error {
	if t == nil {
		return nil
	}
	if err := t.require(colLocID, colLocName); err != nil {
		return err
	}
	for _, row := range t.rows {
		loc := model.Location{
			ID:         model.ID(t.get(row, colLocID...)),
			Name:       t.get(row, colLocName...),
			Type:       t.get(row, "type"),
			Building:   t.get(row, "building"),
			RoomNumber: t.get(row, "room_number"),
		}
		if loc.ID.IsZero() {
			continue
		}
		d.Locations = append(d.Locations, loc)
		d.locationNames[loc.ID] = loc.Name
	}
	return nil
}

func (d *Dataset) readWifi(t *table, byDevice map[model.ID]model.ID) error {
	if t == nil {
		return nil
	}
	if err := t.require(colDevice, colAP, colTime); err != nil {
		return err
	}
	for _, row := range t.rows {
		owner, ok := byDevice[model.ID(t.get(row, colDevice...))]
		if !ok {
			d.Unresolved[model.KindWifi]++
		}
		d.Evidence.WifiLogs = append(d.Evidence.WifiLogs, model.WifiLog{
			AccessPointID: model.ID(t.get(row, colAP...)),
			Timestamp:     model.ParseTimestamp(t.get(row, colTime...)),
			Device:        model.Owner{UserID: owner},
		})
	}
	return nil
}

// readCCTV groups detections by frame id, keeping first-seen frame order.
// Rows without a frame id are frames of their own.
func (d *Dataset) readCCTV(t *table) error {
	if t == nil {
		return nil
	}
	if err := t.require(colLocation, colTime); err != nil {
		return err
	}
	index := make(map[model.ID]int)
	for _, row := range t.rows {
		id := model.ID(t.get(row, colFrame...))
		face := model.ID(t.get(row, colFace...))
		if i, ok := index[id]; ok && !id.IsZero() {
			if !face.IsZero() {
				d.Evidence.CCTVFrames[i].DetectedFaceIDs = append(d.Evidence.CCTVFrames[i].DetectedFaceIDs, face)
			}
			continue
		}
		frame := model.CCTVFrame{
			ID:         id,
			LocationID: model.ID(t.get(row, colLocation...)),
			Timestamp:  model.ParseTimestamp(t.get(row, colTime...)),
		}
		if !face.IsZero() {
			frame.DetectedFaceIDs = []model.ID{face}
		}
		if !id.IsZero() {
			index[id] = len(d.Evidence.CCTVFrames)
		}
		d.Evidence.CCTVFrames = append(d.Evidence.CCTVFrames, frame)
	}
	return nil
}

func (d *Dataset) readBookings(t *table) error {
	if t == nil {
		return nil
	}
	if err := t.require(colEntity, colLocation); err != nil {
		return err
	}
	for _, row := range t.rows {
		d.Evidence.Bookings = append(d.Evidence.Bookings, model.Booking{
			UserID:     model.ID(t.get(row, colEntity...)),
			LocationID: model.ID(t.get(row, colLocation...)),
			StartTime:  model.ParseTimestamp(t.get(row, colStart...)),
			EndTime:    model.ParseTimestamp(t.get(row, colEnd...)),
		})
	}
	return nil
}

// readLibrary turns checkouts into alibi swipes: presence at the library
// desk attributed to the borrower.
func (d *Dataset) readLibrary(t *table) error {
	if t == nil {
		return nil
	}
	if err := t.require(colEntity, colTime); err != nil {
		return err
	}
	for _, row := range t.rows {
		d.Evidence.AlibiSwipes = append(d.Evidence.AlibiSwipes, model.AlibiSwipe{
			LocationID: model.ID(t.get(row, colLocation...)),
			Timestamp:  model.ParseTimestamp(t.get(row, colTime...)),
			Card:       model.Owner{UserID: model.ID(t.get(row, colEntity...))},
		})
	}
	return nil
}

func (d *Dataset) readNotes(t *table) error {
	if t == nil {
		return nil
	}
	for _, row := range t.rows {
		d.Evidence.Notes = append(d.Evidence.Notes, model.Note{
			UserID:    model.ID(t.get(row, colEntity...)),
			Text:      t.get(row, colText...),
			Timestamp: model.ParseTimestamp(t.get(row, colTime...)),
		})
	}
	return nil
}
