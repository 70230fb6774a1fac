// Package cursor tracks per-(channel, series) episode progression: which
// episode plays next, advancing exactly once per episode regardless of how
// many 30-minute blocks it spans (component C).
package cursor

import (
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/store"
)

// Tracker reads and advances episode_cursors.json entries. It holds no
// state of its own beyond the documents handed to Peek/Advance, so callers
// own persistence.
type Tracker struct{}

// New returns a Tracker.
func New() *Tracker { return &Tracker{} }

// Peek returns the episode that would play next for (channel, seriesPath)
// without advancing the cursor. With no prior cursor entry it returns the
// first episode; if the series has no episodes, ok is false.
func (t *Tracker) Peek(cursors store.EpisodeCursors, cat *catalog.Catalog, channel, seriesPath string) (ep catalog.Episode, ok bool) {
	episodes := cat.EpisodesOf(seriesPath)
	if len(episodes) == 0 {
		return catalog.Episode{}, false
	}
	idx := nextIndex(cursors, channel, seriesPath, len(episodes))
	return episodes[idx], true
}

// Advance returns the episode that plays next for (channel, seriesPath) and
// the updated cursors document with that episode's index recorded as the
// new cursor position, wrapping modulo the episode count.
func (t *Tracker) Advance(cursors store.EpisodeCursors, cat *catalog.Catalog, channel, seriesPath string, now time.Time) (ep catalog.Episode, next store.EpisodeCursors, ok bool) {
	episodes := cat.EpisodesOf(seriesPath)
	if len(episodes) == 0 {
		return catalog.Episode{}, cursors, false
	}
	idx := nextIndex(cursors, channel, seriesPath, len(episodes))
	picked := episodes[idx]

	next = cloneCursors(cursors)
	if next[channel] == nil {
		next[channel] = map[string]store.EpisodeCursorEntry{}
	}
	next[channel][seriesPath] = store.EpisodeCursorEntry{
		LastIndex: idx,
		Season:    picked.Video.Season,
		Episode:   picked.Video.Episode,
		UpdatedAt: now,
	}
	return picked, next, true
}

// nextIndex computes the index of the episode that should play next: one
// past the last recorded index, wrapped modulo count. A missing entry
// starts at index 0.
func nextIndex(cursors store.EpisodeCursors, channel, seriesPath string, count int) int {
	if count <= 0 {
		return 0
	}
	bySeries, ok := cursors[channel]
	if !ok {
		return 0
	}
	entry, ok := bySeries[seriesPath]
	if !ok {
		return 0
	}
	return (entry.LastIndex + 1) % count
}

func cloneCursors(in store.EpisodeCursors) store.EpisodeCursors {
	out := make(store.EpisodeCursors, len(in))
	for ch, bySeries := range in {
		m := make(map[string]store.EpisodeCursorEntry, len(bySeries))
		for series, e := range bySeries {
			m[series] = e
		}
		out[ch] = m
	}
	return out
}
