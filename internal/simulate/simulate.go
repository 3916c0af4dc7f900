// Package simulate writes a synthetic campus dataset in the layout read by
// the dataset adapter, so the training pipelines can run without real
// exports.
package simulate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/attrib/internal/adapters/dataset"
	"github.com/okian/attrib/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Generation constants.
const (
	timeLayout      = "2006-01-02 15:04:05"
	routeLength     = 3
	hopSpacing      = 90 * time.Minute
	maxJitterMin    = 20
	maxWifiDelaySec = 120
	maxCCTVDelaySec = 60
	wifiShare       = 0.8
	cctvShare       = 0.3
	bookingLength   = 2 * time.Hour
	dirPermission   = 0o750
)

// Sentinel kinds for generation errors.
var ErrInvalidConfig = errors.New("invalid simulation config")

var locationNames = []string{
	"Main Gate", "Library", "Lab 101", "Cafeteria", "Gym",
	"Hostel A", "Auditorium", "Admin Block", "Sports Hall", "Lab 202",
}

// Config controls the size and randomness of the generated campus.
type Config struct {
	Dir       string    // output directory
	Subjects  int       // number of profiles
	Days      int       // number of simulated days
	Locations int       // number of distinct locations
	Seed      int64     // RNG seed; equal seeds produce identical files
	Start     time.Time // first simulated day
}

// DefaultConfig returns a small campus suitable for a first training run.
func DefaultConfig() Config {
	return Config{
		Dir:       "datasets",
		Subjects:  50,
		Days:      14,
		Locations: 8,
		Seed:      1,
		Start:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c Config) validate() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("%w: dir must not be empty", ErrInvalidConfig)
	case c.Subjects < 2:
		return fmt.Errorf("%w: need at least 2 subjects", ErrInvalidConfig)
	case c.Days < 1:
		return fmt.Errorf("%w: need at least 1 day", ErrInvalidConfig)
	case c.Locations < routeLength:
		return fmt.Errorf("%w: need at least %d locations", ErrInvalidConfig, routeLength)
	}
	return nil
}

// Stats summarises one generation run.
type Stats struct {
	Subjects int
	Swipes   int
	WifiLogs int
	Frames   int
	Bookings int
	Duration time.Duration
}

type profile struct {
	entity, name, student, card, device, face string
	route                                     []int
	startHour                                 int
}

// files maps each dataset file name to its rows, header first.
type files map[string][][]string

// Generate writes the dataset files into cfg.Dir. All randomness is drawn
// sequentially from one seeded source; only file writing is concurrent.
func Generate(ctx context.Context, cfg Config) (Stats, error) {
	start := time.Now()
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}
	log := logger.Get().Named("simulate")
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible data

	out := files{
		dataset.LocationsFile: {{"location_id", "name", "type", "building"}},
		dataset.ProfilesFile:  {{"entity_id", "name", "student_id", "card_id", "device_hash", "face_id"}},
		dataset.SwipesFile:    {{"card_id", "location_id", "timestamp"}},
		dataset.WifiFile:      {{"device_hash", "ap_id", "timestamp"}},
		dataset.CCTVFile:      {{"frame_id", "location_id", "timestamp", "face_id"}},
		dataset.BookingsFile:  {{"entity_id", "room_id", "start_time", "end_time"}},
	}

	locIDs := make([]string, cfg.Locations)
	for i := range locIDs {
		locIDs[i] = fmt.Sprintf("L%02d", i+1)
		name := fmt.Sprintf("Room %d", i+1)
		if i < len(locationNames) {
			name = locationNames[i]
		}
		out[dataset.LocationsFile] = append(out[dataset.LocationsFile], []string{locIDs[i], name, "room", "Block " + strconv.Itoa(i%3+1)})
	}

	profiles, err := newProfiles(rng, cfg)
	if err != nil {
		return Stats{}, err
	}
	for _, p := range profiles {
		out[dataset.ProfilesFile] = append(out[dataset.ProfilesFile], []string{p.entity, p.name, p.student, p.card, p.device, p.face})
	}

	frame := 0
	for day := range cfg.Days {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		base := cfg.Start.AddDate(0, 0, day)
		for _, p := range profiles {
			for hop, loc := range p.route {
				at := base.Add(time.Duration(p.startHour)*time.Hour +
					time.Duration(hop)*hopSpacing +
					time.Duration(rng.Intn(maxJitterMin))*time.Minute)
				out.add(dataset.SwipesFile, p.card, locIDs[loc], at.Format(timeLayout))
				if rng.Float64() < wifiShare {
					seen := at.Add(time.Duration(rng.Intn(maxWifiDelaySec)) * time.Second)
					out.add(dataset.WifiFile, p.device, locIDs[loc], seen.Format(timeLayout))
				}
				if rng.Float64() < cctvShare {
					frame++
					seen := at.Add(time.Duration(rng.Intn(maxCCTVDelaySec)) * time.Second)
					out.add(dataset.CCTVFile, fmt.Sprintf("FR%06d", frame), locIDs[loc], seen.Format(timeLayout), p.face)
				}
			}
		}
	}
	for _, p := range profiles {
		at := cfg.Start.Add(time.Duration(p.startHour)*time.Hour + hopSpacing)
		out.add(dataset.BookingsFile, p.entity, locIDs[p.route[1]], at.Format(timeLayout), at.Add(bookingLength).Format(timeLayout))
	}

	if err := out.write(ctx, cfg.Dir); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Subjects: len(profiles),
		Swipes:   len(out[dataset.SwipesFile]) - 1,
		WifiLogs: len(out[dataset.WifiFile]) - 1,
		Frames:   len(out[dataset.CCTVFile]) - 1,
		Bookings: len(out[dataset.BookingsFile]) - 1,
		Duration: time.Since(start),
	}
	log.Info(ctx, "synthetic dataset written",
		logger.String("dir", cfg.Dir),
		logger.Int("subjects", stats.Subjects),
		logger.Int("swipes", stats.Swipes),
		logger.Int("wifi_logs", stats.WifiLogs),
		logger.Int("frames", stats.Frames),
		logger.Duration("took", stats.Duration),
	)
	return stats, nil
}

func newProfiles(rng *rand.Rand, cfg Config) ([]profile, error) {
	out := make([]profile, cfg.Subjects)
	for i := range out {
		device, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, fmt.Errorf("device id: %w", err)
		}
		out[i] = profile{
			entity:    fmt.Sprintf("E%04d", i+1),
			name:      fmt.Sprintf("Subject %d", i+1),
			student:   fmt.Sprintf("S%05d", 10000+i),
			card:      fmt.Sprintf("C%05d", i+1),
			device:    device.String(),
			face:      fmt.Sprintf("F%05d", i+1),
			route:     rng.Perm(cfg.Locations)[:routeLength],
			startHour: 8 + rng.Intn(3),
		}
	}
	return out, nil
}

func (f files) add(name string, row ...string) {
	f[name] = append(f[name], row)
}

// write stores every file concurrently.
func (f files) write(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for name, rows := range f {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeCSV(filepath.Join(dir, name), rows)
		})
	}
	return g.Wait()
}

func writeCSV(path string, rows [][]string) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is built from the configured dir
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
