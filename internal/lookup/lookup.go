// Package lookup resolves (channel, now) to the exact content and seek
// offset a broadcast channel should be playing (component F), via a
// binary search over an in-memory, atomically-swapped daily-plan snapshot.
package lookup

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/rsappia/tvargenta/internal/store"
)

// Result is the resolved playback position for a channel at a point in time.
type Result struct {
	Found         bool
	SegmentType   store.SegmentType
	VideoID       string
	SeriesPath    string
	SeekOffsetSec float64
}

// testPatternResult is the fallback returned whenever lookup cannot resolve
// a concrete segment: unknown channel, cold cache, or an empty plan.
var testPatternResult = Result{Found: false, SegmentType: store.SegmentTestPattern, SeekOffsetSec: 0}

// Cache holds the current daily plan as an immutable-per-generation
// snapshot. Readers never block; a new plan is swapped in atomically by
// the daily planner loop.
type Cache struct {
	plan atomic.Pointer[store.DailySchedule]
}

// NewCache returns an empty Cache; Lookup returns the test-pattern fallback
// until Swap is called at least once.
func NewCache() *Cache {
	return &Cache{}
}

// Swap atomically replaces the cached plan.
func (c *Cache) Swap(plan store.DailySchedule) {
	p := plan
	c.plan.Store(&p)
}

// Plan returns the currently cached plan, or false if none has been warmed yet.
func (c *Cache) Plan() (store.DailySchedule, bool) {
	p := c.plan.Load()
	if p == nil {
		return store.DailySchedule{}, false
	}
	return *p, true
}

// SecondsSince0300 converts now to seconds since the most recent 03:00
// local time: before 03:00, the relevant instant falls within yesterday's
// broadcast day and is expressed past the 21-hour mark.
func SecondsSince0300(now time.Time) int {
	now = now.Local()
	h, m, s := now.Hour(), now.Minute(), now.Second()
	if h < 3 {
		return (24-3)*3600 + h*3600 + m*60 + s
	}
	return (h-3)*3600 + m*60 + s
}

// Lookup resolves the segment active for channel at now. It never mutates
// and never errors: an unknown channel or a cold cache returns the
// test-pattern fallback.
func (c *Cache) Lookup(channel string, now time.Time) Result {
	plan, ok := c.Plan()
	if !ok {
		return testPatternResult
	}
	segs, ok := plan.Channels[channel]
	if !ok || len(segs) == 0 {
		return testPatternResult
	}

	s := SecondsSince0300(now)
	idx := sort.Search(len(segs), func(i int) bool { return segs[i].StartSec > s }) - 1
	if idx < 0 || idx >= len(segs) {
		return testPatternResult
	}
	seg := segs[idx]
	if s >= seg.EndSec {
		return testPatternResult
	}

	return Result{
		Found:         true,
		SegmentType:   seg.Type,
		VideoID:       seg.VideoID,
		SeriesPath:    seg.SeriesPath,
		SeekOffsetSec: seg.BaseTimestamp + float64(s-seg.StartSec),
	}
}

// VideoURL derives the playable URL for a lookup result.
func (r Result) VideoURL() string {
	switch r.SegmentType {
	case store.SegmentTestPattern:
		return "/videos/system/test_pattern.mp4"
	case store.SegmentSponsorsPlaceholder:
		return "/videos/system/sponsors_placeholder.mp4"
	case store.SegmentCommercial:
		return "/videos/commercials/" + r.VideoID + ".mp4"
	case store.SegmentEpisode:
		if r.SeriesPath != "" {
			return "/videos/series/" + r.SeriesPath + "/" + r.VideoID + ".mp4"
		}
		return "/videos/" + r.VideoID + ".mp4"
	default:
		return "/videos/system/test_pattern.mp4"
	}
}
