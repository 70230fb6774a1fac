// Package weekly generates the weekly program grid (component D): for each
// broadcast channel, a time-of-day slot map of series assignments valid
// Sunday through Sunday, with weighted back-to-back run lengths.
package weekly

import (
	"context"
	"math/rand"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/store"
)

// SlotCounts gives the fixed number of 30-minute slots per time-of-day
// period; they sum to 46, the number of programming blocks in a day.
var SlotCounts = map[store.TimeOfDay]int{
	store.EarlyMorning: 6,
	store.LateMorning:  10,
	store.Afternoon:    10,
	store.Evening:      8,
	store.Night:        12,
}

// runLengthWeights is the back-to-back run-length distribution: run of k
// repeats of the same series chosen with the given weight.
var runLengthWeights = []struct {
	k int
	w float64
}{
	{2, 0.80},
	{3, 0.10},
	{4, 0.05},
	{5, 0.03},
	{6, 0.02},
}

// Planner generates weekly schedules. Rand is an injection point for
// deterministic tests; a nil Rand uses a time-seeded default.
type Planner struct {
	Rand *rand.Rand
}

// New returns a Planner with a time-seeded PRNG.
func New() *Planner {
	return &Planner{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *Planner) rng() *rand.Rand {
	if p.Rand != nil {
		return p.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// WeekStart returns the most recent Sunday at 00:00 local time, relative to now.
func WeekStart(now time.Time) time.Time {
	now = now.Local()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daysSinceSunday := int(midnight.Weekday())
	return midnight.AddDate(0, 0, -daysSinceSunday)
}

// NeedsRegeneration reports whether the given schedule is stale relative to now.
func NeedsRegeneration(existing store.WeeklySchedule, found bool, now time.Time) bool {
	if !found {
		return true
	}
	return existing.WeekStart.Before(WeekStart(now))
}

// Generate produces a WeeklySchedule for every broadcast channel in channels.
func (p *Planner) Generate(now time.Time, channels store.Channels, cat *catalog.Catalog) store.WeeklySchedule {
	rng := p.rng()
	out := store.WeeklySchedule{
		WeekStart: WeekStart(now),
		Channels:  map[string]store.WeeklyChannelSchedule{},
	}
	for canalID, ch := range channels {
		if !ch.IsBroadcast() {
			continue
		}
		slots := map[store.TimeOfDay][]string{}
		for tod, count := range SlotCounts {
			slots[tod] = p.generateSlot(rng, ch, cat, tod, count)
		}
		out.Channels[canalID] = store.WeeklyChannelSchedule{TimeSlots: slots}
	}
	return out
}

// generateSlot fills count entries for one (channel, time-of-day) pair.
func (p *Planner) generateSlot(rng *rand.Rand, ch store.Channel, cat *catalog.Catalog, tod store.TimeOfDay, count int) []string {
	eligible := p.eligibleSeries(ch, cat, tod)
	if len(eligible) == 0 {
		out := make([]string, count)
		for i := range out {
			out[i] = store.TestPatternSeries
		}
		return out
	}

	out := make([]string, 0, count)
	for len(out) < count {
		series := eligible[rng.Intn(len(eligible))]
		run := sampleRunLength(rng)
		for i := 0; i < run && len(out) < count; i++ {
			out = append(out, series)
		}
	}
	return out
}

// eligibleSeries returns series folders from ch.SeriesFilter whose
// time_of_day matches tod (or "any") and that have at least one episode.
func (p *Planner) eligibleSeries(ch store.Channel, cat *catalog.Catalog, tod store.TimeOfDay) []string {
	var out []string
	for _, folder := range ch.SeriesFilter {
		s, ok := cat.Series[folder]
		if !ok {
			continue
		}
		if s.TimeOfDay != tod && s.TimeOfDay != store.AnyTimeOfDay {
			continue
		}
		if len(cat.EpisodesOf(folder)) == 0 {
			continue
		}
		out = append(out, folder)
	}
	return out
}

// pollInterval is the background loop's wake period: regeneration is
// triggered by the loop's periodic wake, at most 5s after staleness.
const pollInterval = 5 * time.Second

// Run polls at pollInterval and regenerates the weekly schedule whenever
// NeedsRegeneration reports stale. Blocks until ctx is cancelled, which is
// the planner's cooperative abort point.
func (p *Planner) Run(ctx context.Context, st *store.Store, catalogOf func() *catalog.Catalog, log *logrus.Entry) {
	regen := func() {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				if log != nil {
					log.WithField("panic", r).Error("weekly: regeneration panicked, skipping this wake")
				}
			}
		}()
		existing, found, err := st.LoadWeeklySchedule()
		if err != nil && log != nil {
			log.WithError(err).Warn("weekly: load schedule failed, treating as absent")
		}
		now := time.Now()
		if !NeedsRegeneration(existing, found, now) {
			return
		}
		channels, err := st.LoadChannels()
		if err != nil {
			if log != nil {
				log.WithError(err).Warn("weekly: load channels failed, skipping this wake")
			}
			return
		}
		plan := p.Generate(now, channels, catalogOf())
		if err := st.SaveWeeklySchedule(plan); err != nil && log != nil {
			log.WithError(err).Error("weekly: save schedule failed")
			return
		}
		if log != nil {
			log.WithField("week_start", plan.WeekStart).Info("weekly: schedule regenerated")
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

// sampleRunLength draws a back-to-back run length from runLengthWeights.
func sampleRunLength(rng *rand.Rand) int {
	r := rng.Float64()
	var cum float64
	for _, rw := range runLengthWeights {
		cum += rw.w
		if r < cum {
			return rw.k
		}
	}
	return runLengthWeights[len(runLengthWeights)-1].k
}
