// Package switcher implements the channel-switcher hot path (component G):
// on every next_video request, route to AV-input, the broadcast schedule
// lookup, or the fairness picker, with sticky/cooldown/pending-dedupe
// anti-bounce guards applied to the library branch.
package switcher

import (
	"sync"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/store"
)

const (
	avInputChannel = "03"

	stickyWindow  = 1000 * time.Millisecond
	cooldown      = 500 * time.Millisecond
	pendingTTL    = 12 * time.Second
)

// Selection is the result of a next_video call.
type Selection struct {
	Kind         string // "av_input" | "broadcast" | "library"
	VideoID      string
	VideoURL     string
	SeekTo       float64
	CanalNombre  string
	CanalNumero  string
	Broadcast    bool
	Sticky       bool
	Cooldown     bool
	Reused       bool
	NoVideos     bool
}

// AVInputState is the adapter surface the out-of-core VCR subsystem
// advertises for Channel 03; nil means plain passthrough.
type AVInputState interface {
	TapeInserted() bool
	TapeVideoURL() string
	TapePositionSec() float64
}

// pendingPick is a library pick awaiting a played confirmation.
type pendingPick struct {
	videoID string
	at      time.Time
}

// Switcher holds the per-channel anti-bounce state behind one mutex, as
// the single owned scheduler service for the whole process.
type Switcher struct {
	Lookup   *lookup.Cache
	Fairness *fairness.Picker
	AVInput  AVInputState

	mu           sync.Mutex
	lastPickAt   map[string]time.Time
	lastPick     map[string]Selection
	pending      map[string]pendingPick
	forceNext    bool
}

// New returns a Switcher wired to the given lookup cache and fairness picker.
func New(lookupCache *lookup.Cache, picker *fairness.Picker) *Switcher {
	return &Switcher{
		Lookup:     lookupCache,
		Fairness:   picker,
		lastPickAt: map[string]time.Time{},
		lastPick:   map[string]Selection{},
		pending:    map[string]pendingPick{},
	}
}

// RaiseForceNext marks the next call on any channel as exempt from the
// sticky/cooldown/pending anti-bounce windows. It is one-shot: the flag is
// consumed (cleared) by the next NextVideo call that observes it.
func (s *Switcher) RaiseForceNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceNext = true
}

// NextVideo resolves the hot-path selection for active channel canalID.
func (s *Switcher) NextVideo(
	canalID string,
	ch store.Channel,
	cat *catalog.Catalog,
	plays store.PlayStats,
	shown fairness.ShownLists,
	now time.Time,
) (Selection, fairness.ShownLists) {
	if canalID == avInputChannel {
		return s.nextAVInput(), shown
	}
	if ch.IsBroadcast() {
		return s.nextBroadcast(canalID, ch, now), shown
	}
	return s.nextLibrary(canalID, ch, cat, plays, shown, now)
}

func (s *Switcher) nextAVInput() Selection {
	sel := Selection{Kind: "av_input", CanalNumero: avInputChannel}
	if s.AVInput != nil && s.AVInput.TapeInserted() {
		sel.VideoURL = s.AVInput.TapeVideoURL()
		sel.SeekTo = s.AVInput.TapePositionSec()
	}
	return sel
}

func (s *Switcher) nextBroadcast(canalID string, ch store.Channel, now time.Time) Selection {
	r := s.Lookup.Lookup(canalID, now)
	return Selection{
		Kind:        "broadcast",
		VideoID:     r.VideoID,
		VideoURL:    r.VideoURL(),
		SeekTo:      r.SeekOffsetSec,
		CanalNombre: ch.Nombre,
		CanalNumero: ch.Numero,
		Broadcast:   true,
	}
}

func (s *Switcher) nextLibrary(
	canalID string,
	ch store.Channel,
	cat *catalog.Catalog,
	plays store.PlayStats,
	shown fairness.ShownLists,
	now time.Time,
) (Selection, fairness.ShownLists) {
	s.mu.Lock()
	force := s.forceNext
	if force {
		s.forceNext = false
	}
	lastAt, hadPick := s.lastPickAt[canalID]
	lastSel := s.lastPick[canalID]
	pend, hasPending := s.pending[canalID]
	s.mu.Unlock()

	if !force && hadPick {
		elapsed := now.Sub(lastAt)
		if elapsed < stickyWindow {
			sticky := lastSel
			sticky.Sticky = true
			return sticky, shown
		}
		if elapsed < stickyWindow+cooldown {
			return Selection{Kind: "library", CanalNombre: ch.Nombre, CanalNumero: ch.Numero, Cooldown: true}, shown
		}
	}

	if !force && hasPending && now.Sub(pend.at) < pendingTTL {
		reused := lastSel
		reused.Reused = true
		return reused, shown
	}

	previousPick := ""
	if hadPick {
		previousPick = lastSel.VideoID
	}

	pick, newShown, ok := s.Fairness.Select(ch, cat, plays, shown, canalID, previousPick, now)
	if !ok {
		sel := Selection{Kind: "library", CanalNombre: ch.Nombre, CanalNumero: ch.Numero, NoVideos: true}
		s.recordPick(canalID, sel, now)
		return sel, newShown
	}

	videoURL := lookup.Result{SegmentType: store.SegmentEpisode, VideoID: pick.VideoID}.VideoURL()
	if v, found := cat.Metadata[pick.VideoID]; found && v.SeriesPath != "" {
		videoURL = lookup.Result{SegmentType: store.SegmentEpisode, VideoID: pick.VideoID, SeriesPath: v.SeriesPath}.VideoURL()
	}

	sel := Selection{
		Kind:        "library",
		VideoID:     pick.VideoID,
		VideoURL:    videoURL,
		CanalNombre: ch.Nombre,
		CanalNumero: ch.Numero,
	}
	s.recordPick(canalID, sel, now)
	return sel, newShown
}

func (s *Switcher) recordPick(canalID string, sel Selection, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPickAt[canalID] = now
	s.lastPick[canalID] = sel
	s.pending[canalID] = pendingPick{videoID: sel.VideoID, at: now}
}

// ConfirmPlayed clears the pending-pick dedupe entry for videoID on any
// channel it matches. An unknown video_id is a no-op; confirmation is
// idempotent.
func (s *Switcher) ConfirmPlayed(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for canalID, p := range s.pending {
		if p.videoID == videoID {
			delete(s.pending, canalID)
		}
	}
}
