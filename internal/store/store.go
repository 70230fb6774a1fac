package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Store reads and atomically writes the JSON documents that make up the
// content root: metadata.json, series.json, canales.json, plays.json, and
// the generated schedule documents. All writes go through writeAtomic
// (temp file + fsync + rename) so a crash mid-write never leaves a
// document half-written.
type Store struct {
	root string

	// mu guards the advisory in-process lock held while metadata.json is
	// being rewritten; lockFD additionally holds a cross-process flock so
	// two tvargenta processes pointed at the same content root can't race.
	mu     sync.Mutex
	lockFD *os.File
}

// New returns a Store rooted at dir. dir must already exist.
func New(dir string) (*Store, error) {
	lockPath := filepath.Join(dir, ".metadata.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open lock file: %w", err)
	}
	return &Store{root: dir, lockFD: f}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.root, name) }

// Root returns the content root directory this Store is rooted at.
func (s *Store) Root() string { return s.root }

// writeAtomic writes data to name via a temp file in the same directory,
// fsyncs it, then renames it into place. The rename is atomic on the
// filesystems this appliance targets (ext4, overlayfs over ext4).
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// loadJSON reads name and unmarshals it into v. If the file is missing,
// *v keeps the value it already held and no error is returned — callers
// treat an absent document as a documented default. A corrupt document
// returns found=true together with the decode error.
func loadJSON(path string, v interface{}) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, err
	}
	return true, nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// withFileLock takes an exclusive advisory flock on the store's lock file
// for the duration of fn. It serializes metadata.json mutation across
// processes (e.g. the metadata worker and an admin upload handler running
// concurrently) in addition to the in-process mutex.
func (s *Store) withFileLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := unix.Flock(int(s.lockFD.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("store: flock: %w", err)
	}
	defer unix.Flock(int(s.lockFD.Fd()), unix.LOCK_UN)

	return fn()
}

// LoadMetadata returns the current metadata.json document. A missing file
// yields an empty Metadata, not an error.
func (s *Store) LoadMetadata() (Metadata, error) {
	m := Metadata{}
	if _, err := loadJSON(s.path("metadata.json"), &m); err != nil {
		return Metadata{}, fmt.Errorf("store: load metadata: %w", err)
	}
	return m, nil
}

// SaveMetadata atomically rewrites metadata.json under the cross-process lock.
func (s *Store) SaveMetadata(m Metadata) error {
	return s.withFileLock(func() error {
		return saveJSON(s.path("metadata.json"), m)
	})
}

// LoadSeries returns the current series.json document.
func (s *Store) LoadSeries() (SeriesSet, error) {
	v := SeriesSet{}
	if _, err := loadJSON(s.path("series.json"), &v); err != nil {
		return SeriesSet{}, fmt.Errorf("store: load series: %w", err)
	}
	return v, nil
}

// SaveSeries atomically rewrites series.json.
func (s *Store) SaveSeries(v SeriesSet) error {
	return saveJSON(s.path("series.json"), v)
}

// LoadChannels returns the current canales.json document.
func (s *Store) LoadChannels() (Channels, error) {
	v := Channels{}
	if _, err := loadJSON(s.path("canales.json"), &v); err != nil {
		return Channels{}, fmt.Errorf("store: load channels: %w", err)
	}
	return v, nil
}

// SaveChannels atomically rewrites canales.json.
func (s *Store) SaveChannels(v Channels) error {
	return saveJSON(s.path("canales.json"), v)
}

// LoadCanalActivo returns the currently selected AV-input-relative active
// channel. A missing document defaults to channel "01".
func (s *Store) LoadCanalActivo() (CanalActivo, error) {
	v := CanalActivo{CanalID: "01"}
	if _, err := loadJSON(s.path("canal_activo.json"), &v); err != nil {
		return v, fmt.Errorf("store: load canal_activo: %w", err)
	}
	return v, nil
}

// SaveCanalActivo atomically rewrites canal_activo.json.
func (s *Store) SaveCanalActivo(v CanalActivo) error {
	return saveJSON(s.path("canal_activo.json"), v)
}

// LoadPlayStats returns the current plays.json document.
func (s *Store) LoadPlayStats() (PlayStats, error) {
	v := PlayStats{}
	if _, err := loadJSON(s.path("plays.json"), &v); err != nil {
		return PlayStats{}, fmt.Errorf("store: load plays: %w", err)
	}
	return v, nil
}

// SavePlayStats atomically rewrites plays.json.
func (s *Store) SavePlayStats(v PlayStats) error {
	return saveJSON(s.path("plays.json"), v)
}

// LoadTagGroups returns the current tags.json document.
func (s *Store) LoadTagGroups() (TagGroups, error) {
	v := TagGroups{}
	if _, err := loadJSON(s.path("tags.json"), &v); err != nil {
		return TagGroups{}, fmt.Errorf("store: load tags: %w", err)
	}
	return v, nil
}

// LoadConfig returns the current configuracion.json document.
func (s *Store) LoadConfig() (Config, error) {
	v := Config{}
	if _, err := loadJSON(s.path("configuracion.json"), &v); err != nil {
		return Config{}, fmt.Errorf("store: load configuracion: %w", err)
	}
	return v, nil
}

// LoadEpisodeCursors returns the current episode_cursors.json document.
func (s *Store) LoadEpisodeCursors() (EpisodeCursors, error) {
	v := EpisodeCursors{}
	if _, err := loadJSON(s.path("episode_cursors.json"), &v); err != nil {
		return EpisodeCursors{}, fmt.Errorf("store: load episode_cursors: %w", err)
	}
	return v, nil
}

// SaveEpisodeCursors atomically rewrites episode_cursors.json.
func (s *Store) SaveEpisodeCursors(v EpisodeCursors) error {
	return saveJSON(s.path("episode_cursors.json"), v)
}

// LoadWeeklySchedule returns the current weekly_schedule.json document and
// whether it was present.
func (s *Store) LoadWeeklySchedule() (WeeklySchedule, bool, error) {
	v := WeeklySchedule{}
	found, err := loadJSON(s.path("weekly_schedule.json"), &v)
	if err != nil {
		return WeeklySchedule{}, found, fmt.Errorf("store: load weekly_schedule: %w", err)
	}
	return v, found, nil
}

// SaveWeeklySchedule atomically rewrites weekly_schedule.json.
func (s *Store) SaveWeeklySchedule(v WeeklySchedule) error {
	return saveJSON(s.path("weekly_schedule.json"), v)
}

// LoadDailySchedule returns the current daily_schedule.json document and
// whether it was present.
func (s *Store) LoadDailySchedule() (DailySchedule, bool, error) {
	v := DailySchedule{}
	found, err := loadJSON(s.path("daily_schedule.json"), &v)
	if err != nil {
		return DailySchedule{}, found, fmt.Errorf("store: load daily_schedule: %w", err)
	}
	return v, found, nil
}

// SaveDailySchedule atomically rewrites daily_schedule.json.
func (s *Store) SaveDailySchedule(v DailySchedule) error {
	return saveJSON(s.path("daily_schedule.json"), v)
}

// LoadScheduleMeta returns the current schedule_meta.json document.
func (s *Store) LoadScheduleMeta() (ScheduleMeta, error) {
	v := ScheduleMeta{}
	if _, err := loadJSON(s.path("schedule_meta.json"), &v); err != nil {
		return ScheduleMeta{}, fmt.Errorf("store: load schedule_meta: %w", err)
	}
	return v, nil
}

// SaveScheduleMeta atomically rewrites schedule_meta.json.
func (s *Store) SaveScheduleMeta(v ScheduleMeta) error {
	return saveJSON(s.path("schedule_meta.json"), v)
}

// Close releases the store's lock file handle.
func (s *Store) Close() error {
	return s.lockFD.Close()
}
