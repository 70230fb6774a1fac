// Package daily expands a weekly schedule into the second-indexed segment
// list for one 24-hour broadcast day (component E): a leading test-pattern
// hour followed by 46 half-hour blocks, each structured from the upcoming
// episode's duration and padded with commercial breaks.
package daily

import (
	"context"
	"math/rand"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/cursor"
	"github.com/rsappia/tvargenta/internal/store"
)

const (
	blockSec      = 1800
	blockCount    = 46
	testPatternSec = 3600 // the leading test-pattern hour
	dayStartHour  = 3 // the test-pattern hour begins the broadcast day
	defaultCommDur = 30 * time.Second
)

var periodOrder = []struct {
	tod   store.TimeOfDay
	count int
}{
	{store.EarlyMorning, 6},
	{store.LateMorning, 10},
	{store.Afternoon, 10},
	{store.Evening, 8},
	{store.Night, 12},
}

// blockPeriod returns the time-of-day period and the zero-based index
// within it for programming block k (k in [0,46)).
func blockPeriod(k int) (store.TimeOfDay, int) {
	idx := k
	for _, p := range periodOrder {
		if idx < p.count {
			return p.tod, idx
		}
		idx -= p.count
	}
	last := periodOrder[len(periodOrder)-1]
	return last.tod, last.count - 1
}

// blockStructure is which layout a block uses, selected by the duration of
// the series' upcoming episode.
type blockStructure int

const (
	structureVeryShort blockStructure = iota
	structureShort
	structureMedium
	structureLong
	structureVeryLong
)

func selectStructure(durSec float64) (s blockStructure, episodesPerBlock int, blocksSpanned int) {
	switch {
	case durSec < 600:
		return structureVeryShort, 3, 1
	case durSec < 900:
		return structureShort, 2, 1
	case durSec < 1680:
		return structureMedium, 1, 1
	case durSec < 3480:
		return structureLong, 1, 2
	default:
		spanned := int(durSec) / blockSec
		if int(durSec)%blockSec != 0 {
			spanned++
		}
		return structureVeryLong, 1, spanned
	}
}

// Planner builds daily schedules. Rand seeds commercial-pool shuffling and
// is an injection point for deterministic tests.
type Planner struct {
	Rand    *rand.Rand
	Cursors *cursor.Tracker
}

// New returns a Planner with a time-seeded PRNG.
func New() *Planner {
	return &Planner{
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Cursors: cursor.New(),
	}
}

func (p *Planner) rng() *rand.Rand {
	if p.Rand != nil {
		return p.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (p *Planner) cursors() *cursor.Tracker {
	if p.Cursors != nil {
		return p.Cursors
	}
	return cursor.New()
}

// ScheduleDate returns the calendar date (at local midnight) that the
// segment array indexes into, given the current time. Before 03:00 local,
// the relevant broadcast day is still yesterday's.
func ScheduleDate(now time.Time) time.Time {
	now = now.Local()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Hour() < dayStartHour {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NeedsRegeneration reports whether the stored daily schedule is stale:
// missing, or it is past 03:00 local and the stored schedule_date isn't today.
func NeedsRegeneration(existing store.DailySchedule, found bool, now time.Time) bool {
	if !found {
		return true
	}
	today := ScheduleDate(now)
	return now.Hour() >= dayStartHour && !sameDate(existing.ScheduleDate, today)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Generate produces a DailySchedule for every broadcast channel, advancing
// and returning updated episode cursors. Persisting the plan and the
// cursors is left to the caller.
func (p *Planner) Generate(
	now time.Time,
	weekly store.WeeklySchedule,
	cursors store.EpisodeCursors,
	cat *catalog.Catalog,
	channels store.Channels,
	commercialPool []catalog.Episode,
) (store.DailySchedule, store.EpisodeCursors) {
	rng := p.rng()
	scheduleDate := ScheduleDate(now)

	out := store.DailySchedule{
		ScheduleDate: scheduleDate,
		ValidFrom:    time.Date(scheduleDate.Year(), scheduleDate.Month(), scheduleDate.Day(), dayStartHour, 0, 0, 0, scheduleDate.Location()),
		ValidUntil:   time.Date(scheduleDate.Year(), scheduleDate.Month(), scheduleDate.Day(), dayStartHour, 0, 0, 0, scheduleDate.Location()).AddDate(0, 0, 1),
		GenerationID: uuid.NewString(),
		Channels:     map[string][]store.Segment{},
	}

	for canalID, ch := range channels {
		if !ch.IsBroadcast() {
			continue
		}
		chanSchedule, ok := weekly.Channels[canalID]
		if !ok {
			out.Channels[canalID] = []store.Segment{testPatternSegment(0, testPatternSec+blockCount*blockSec)}
			continue
		}
		segs := []store.Segment{testPatternSegment(0, testPatternSec)}
		k := 0
		for k < blockCount {
			blockStart := testPatternSec + k*blockSec
			tod, idx := blockPeriod(k)
			slots := chanSchedule.TimeSlots[tod]
			seriesName := store.TestPatternSeries
			if idx < len(slots) {
				seriesName = slots[idx]
			}

			if seriesName == store.TestPatternSeries {
				segs = append(segs, testPatternSegment(blockStart, blockStart+blockSec))
				k++
				continue
			}

			peeked, ok := p.cursors().Peek(cursors, cat, canalID, seriesName)
			if !ok {
				segs = append(segs, testPatternSegment(blockStart, blockStart+blockSec))
				k++
				continue
			}

			_, episodesPerBlock, blocksSpanned := selectStructure(peeked.Video.DuracionSec)
			blockSegs, newCursors := p.buildEpisodeBlocks(rng, cursors, cat, canalID, seriesName, now, blockStart, episodesPerBlock, blocksSpanned, commercialPool)
			segs = append(segs, blockSegs...)
			cursors = newCursors
			k += blocksSpanned
		}
		out.Channels[canalID] = segs
	}

	return out, cursors
}

// pollInterval mirrors weekly.pollInterval: the background loop wakes at
// least every 5s.
const pollInterval = 5 * time.Second

// Run polls at pollInterval and regenerates the daily plan whenever
// NeedsRegeneration reports stale, swapping the result into lookupCache and
// persisting the plan and advanced cursors together. Blocks until ctx is
// cancelled.
func (p *Planner) Run(
	ctx context.Context,
	st *store.Store,
	catalogOf func() *catalog.Catalog,
	swap func(store.DailySchedule),
	log *logrus.Entry,
) {
	regen := func() {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				if log != nil {
					log.WithField("panic", r).Error("daily: regeneration panicked, skipping this wake")
				}
			}
		}()
		existing, found, err := st.LoadDailySchedule()
		if err != nil && log != nil {
			log.WithError(err).Warn("daily: load schedule failed, treating as absent")
		}
		now := time.Now()
		if found && !NeedsRegeneration(existing, found, now) {
			swap(existing)
			return
		}

		weekly, weeklyFound, err := st.LoadWeeklySchedule()
		if err != nil || !weeklyFound {
			if log != nil {
				log.WithError(err).Warn("daily: weekly schedule unavailable, skipping this wake")
			}
			return
		}
		channels, err := st.LoadChannels()
		if err != nil {
			if log != nil {
				log.WithError(err).Warn("daily: load channels failed, skipping this wake")
			}
			return
		}
		cursors, err := st.LoadEpisodeCursors()
		if err != nil {
			cursors = store.EpisodeCursors{}
		}
		cat := catalogOf()
		commercialPool := cat.Commercials(nil)

		plan, newCursors := p.Generate(now, weekly, cursors, cat, channels, commercialPool)

		if err := st.SaveEpisodeCursors(newCursors); err != nil && log != nil {
			log.WithError(err).Error("daily: save cursors failed")
		}
		if err := st.SaveDailySchedule(plan); err != nil {
			if log != nil {
				log.WithError(err).Error("daily: save schedule failed")
			}
			return
		}
		swap(plan)
		if log != nil {
			log.WithField("generation_id", plan.GenerationID).Info("daily: schedule regenerated")
		}
	}

	regen()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			regen()
		}
	}
}

// buildEpisodeBlocks advances the cursor and lays out the segments for one
// schedule entry, which may span multiple 30-minute blocks.
func (p *Planner) buildEpisodeBlocks(
	rng *rand.Rand,
	cursors store.EpisodeCursors,
	cat *catalog.Catalog,
	canalID, seriesName string,
	now time.Time,
	blockStart int,
	episodesPerBlock int,
	blocksSpanned int,
	commercialPool []catalog.Episode,
) ([]store.Segment, store.EpisodeCursors) {
	if blocksSpanned > 1 {
		ep, next, ok := p.cursors().Advance(cursors, cat, canalID, seriesName, now)
		if !ok {
			return []store.Segment{testPatternSegment(blockStart, blockStart+blocksSpanned*blockSec)}, cursors
		}
		perBlock := ep.Video.DuracionSec / float64(blocksSpanned)
		var segs []store.Segment
		for b := 0; b < blocksSpanned; b++ {
			thisStart := blockStart + b*blockSec
			segs = append(segs, buildSingleEpisodeLayout(rng, ep.VideoID, seriesName, thisStart, perBlock, float64(b)*perBlock, commercialPool)...)
		}
		return segs, next
	}

	if episodesPerBlock == 1 {
		ep, next, ok := p.cursors().Advance(cursors, cat, canalID, seriesName, now)
		if !ok {
			return []store.Segment{testPatternSegment(blockStart, blockStart+blockSec)}, cursors
		}
		segs := buildSingleEpisodeLayout(rng, ep.VideoID, seriesName, blockStart, ep.Video.DuracionSec, 0, commercialPool)
		return segs, next
	}

	// Multi-episode block: short / very_short structures.
	var durations []float64
	var ids []string
	cur := cursors
	for i := 0; i < episodesPerBlock; i++ {
		ep, next, ok := p.cursors().Advance(cur, cat, canalID, seriesName, now)
		if !ok {
			break
		}
		durations = append(durations, ep.Video.DuracionSec)
		ids = append(ids, ep.VideoID)
		cur = next
	}
	if len(ids) == 0 {
		return []store.Segment{testPatternSegment(blockStart, blockStart+blockSec)}, cursors
	}
	segs := buildMultiEpisodeLayout(rng, ids, seriesName, blockStart, durations, commercialPool)
	return segs, cur
}

// buildSingleEpisodeLayout builds the [comm1 | ep-half | comm2 | ep-half |
// comm3] layout for one episode (or one episode's share of a multi-block
// episode) inside one 30-minute block. baseOffset is the seek position
// inside the source video at which this block's portion begins.
func buildSingleEpisodeLayout(rng *rand.Rand, videoID, seriesPath string, blockStart int, episodeDur float64, baseOffset float64, pool []catalog.Episode) []store.Segment {
	commBudget := float64(blockSec) - episodeDur
	if commBudget <= 0 {
		// Resolved ambiguity (commercial budget at exactly 1800s): skip
		// breaks rather than emit zero-length placeholders.
		return []store.Segment{
			episodeSegment(blockStart, blockStart+blockSec, videoID, seriesPath, baseOffset),
		}
	}

	third := commBudget / 3
	half := episodeDur / 2

	var segs []store.Segment
	cursorSec := blockStart

	c1, n := fillBreak(rng, pool, third, cursorSec)
	segs = append(segs, c1...)
	cursorSec += n

	segs = append(segs, episodeSegment(cursorSec, cursorSec+int(half), videoID, seriesPath, baseOffset))
	cursorSec += int(half)

	c2, n := fillBreak(rng, pool, third, cursorSec)
	segs = append(segs, c2...)
	cursorSec += n

	segs = append(segs, episodeSegment(cursorSec, cursorSec+int(half), videoID, seriesPath, baseOffset+half))
	cursorSec += int(half)

	// Final break absorbs any rounding remainder so the block sums to
	// exactly 1800s.
	remainder := (blockStart + blockSec) - cursorSec
	c3, _ := fillBreak(rng, pool, float64(remainder), cursorSec)
	segs = append(segs, c3...)

	return segs
}

// buildMultiEpisodeLayout builds [comm | ep1 | comm | ep2 | ...] for a
// short / very_short structured block with N episodes, each preceded by an
// equal share of the block's commercial budget.
func buildMultiEpisodeLayout(rng *rand.Rand, videoIDs []string, seriesPath string, blockStart int, durations []float64, pool []catalog.Episode) []store.Segment {
	var total float64
	for _, d := range durations {
		total += d
	}
	n := len(videoIDs)
	commBudget := float64(blockSec) - total
	if commBudget < 0 {
		commBudget = 0
	}
	share := commBudget / float64(n)

	var segs []store.Segment
	cursorSec := blockStart
	for i, id := range videoIDs {
		c, consumed := fillBreak(rng, pool, share, cursorSec)
		segs = append(segs, c...)
		cursorSec += consumed

		end := cursorSec + int(durations[i])
		if i == n-1 {
			// Last episode absorbs any rounding remainder.
			end = blockStart + blockSec
		}
		segs = append(segs, episodeSegment(cursorSec, end, id, seriesPath, 0))
		cursorSec = end
	}
	return segs
}

// fillBreak lays commercials end-to-end from a shuffled copy of pool to
// cover duration seconds starting at startSec, looping the pool if
// exhausted, truncating the final commercial to fit exactly. If pool is
// empty, it returns a single sponsors_placeholder segment. It returns the
// segments and the number of seconds actually consumed (int(duration), the
// fractional part truncated).
func fillBreak(rng *rand.Rand, pool []catalog.Episode, duration float64, startSec int) ([]store.Segment, int) {
	total := int(duration)
	if total <= 0 {
		return nil, 0
	}
	if len(pool) == 0 {
		return []store.Segment{placeholderSegment(store.SegmentSponsorsPlaceholder, startSec, startSec+total)}, total
	}

	shuffled := make([]catalog.Episode, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var segs []store.Segment
	cursorSec := startSec
	remaining := total
	i := 0
	for remaining > 0 {
		c := shuffled[i%len(shuffled)]
		dur := c.Video.DuracionSec
		if dur <= 0 {
			dur = float64(defaultCommDur / time.Second)
		}
		take := int(dur)
		if take > remaining {
			take = remaining
		}
		segs = append(segs, store.Segment{
			StartSec: cursorSec,
			EndSec:   cursorSec + take,
			Type:     store.SegmentCommercial,
			VideoID:  c.VideoID,
		})
		cursorSec += take
		remaining -= take
		i++
	}
	return segs, total
}

func testPatternSegment(start, end int) store.Segment {
	return placeholderSegment(store.SegmentTestPattern, start, end)
}

func placeholderSegment(t store.SegmentType, start, end int) store.Segment {
	return store.Segment{StartSec: start, EndSec: end, Type: t}
}

func episodeSegment(start, end int, videoID, seriesPath string, baseTimestamp float64) store.Segment {
	return store.Segment{
		StartSec:      start,
		EndSec:        end,
		Type:          store.SegmentEpisode,
		VideoID:       videoID,
		SeriesPath:    seriesPath,
		BaseTimestamp: baseTimestamp,
	}
}
