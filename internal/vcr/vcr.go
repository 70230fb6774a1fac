// Package vcr mirrors the NFC/VCR subsystem's shared state file into
// memory. The VCR subsystem itself — tape detection, pause/rewind — runs
// as a separate process and owns vcr_state.json; tvargenta only ever
// reads it, on a one-second ticker, so that Channel 03 lookups never
// block on a file read.
package vcr

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the shape of vcr_state.json as written by the external VCR
// subsystem.
type State struct {
	TapeID      string  `json:"tape_id"`
	Inserted    bool    `json:"inserted"`
	VideoURL    string  `json:"video_url"`
	PositionSec float64 `json:"position_sec"`
}

// Mirror polls vcr_state.json on a ticker and exposes the last-read
// state through an atomic pointer, implementing switcher.AVInputState.
type Mirror struct {
	path  string
	state atomic.Pointer[State]
	log   *logrus.Entry
}

// New creates a Mirror reading contentRoot/vcr_state.json. The file need
// not exist at startup; reads before the first successful poll report
// "no tape inserted".
func New(contentRoot string, log *logrus.Entry) *Mirror {
	return &Mirror{path: filepath.Join(contentRoot, "vcr_state.json"), log: log}
}

// Run polls the state file once per second until ctx is cancelled. The
// external subsystem writes vcr_state.json atomically, so a poll always
// observes a complete document or none at all.
func (m *Mirror) Run(ctx context.Context) {
	m.Poll()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll reads vcr_state.json once and updates the mirrored state on
// success. Exported so tests and manual triggers can force a read
// without waiting on the ticker.
func (m *Mirror) Poll() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) && m.log != nil {
			m.log.WithError(err).Warn("vcr: read state failed")
		}
		return
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		if m.log != nil {
			m.log.WithError(err).Warn("vcr: decode state failed")
		}
		return
	}
	m.state.Store(&s)
}

// TapeInserted reports whether a tape is currently inserted.
func (m *Mirror) TapeInserted() bool {
	s := m.state.Load()
	return s != nil && s.Inserted
}

// TapeVideoURL returns the currently-inserted tape's video URL, or "" if
// no tape is inserted.
func (m *Mirror) TapeVideoURL() string {
	s := m.state.Load()
	if s == nil {
		return ""
	}
	return s.VideoURL
}

// TapePositionSec returns the currently-inserted tape's playhead
// position, in seconds.
func (m *Mirror) TapePositionSec() float64 {
	s := m.state.Load()
	if s == nil {
		return 0
	}
	return s.PositionSec
}

// Control signals pause/rewind commands to the external VCR subsystem via
// the same mtime-trigger-file convention the rotary-encoder bridge uses.
// tvargenta never pauses or rewinds the tape itself — it only raises the
// request.
type Control struct {
	pausePath  string
	rewindPath string
}

// NewControl creates a Control writing trigger files under contentRoot.
func NewControl(contentRoot string) *Control {
	return &Control{
		pausePath:  filepath.Join(contentRoot, "trigger_vcr_pause.json"),
		rewindPath: filepath.Join(contentRoot, "trigger_vcr_rewind.json"),
	}
}

// Pause raises the pause/resume trigger for the external VCR subsystem.
func (c *Control) Pause() error { return touch(c.pausePath) }

// Rewind raises the rewind trigger for the external VCR subsystem.
func (c *Control) Rewind() error { return touch(c.rewindPath) }

func touch(path string) error {
	now := time.Now()
	if err := os.WriteFile(path, []byte(now.Format(time.RFC3339Nano)), 0o644); err != nil {
		return err
	}
	return os.Chtimes(path, now, now)
}
