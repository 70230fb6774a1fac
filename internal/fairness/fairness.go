// Package fairness implements the weighted candidate picker used by
// library channels (component H): per-minute play rate, last-played age,
// tag priority, diversity overlap with the previous pick, an anti-repeat
// gap filter, and a per-channel shown-list that rotates once exhausted.
package fairness

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/store"
)

// Picker selects the next video for a library channel. Rand is an
// injection point for deterministic tests.
type Picker struct {
	Rand *rand.Rand
}

// New returns a Picker with a time-seeded PRNG.
func New() *Picker {
	return &Picker{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *Picker) rng() *rand.Rand {
	if p.Rand != nil {
		return p.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ShownLists tracks, per channel, which video ids have already been shown
// in the current rotation.
type ShownLists map[string]map[string]bool

// Pick is the chosen candidate plus the data the caller needs to persist
// (the shown-list addition) and to report back (age for diagnostics).
type Pick struct {
	VideoID    string
	AgeSeconds float64
}

// candidate is a scored video, carrying its sort key.
type candidate struct {
	videoID   string
	video     store.Video
	playsNorm float64
	lastTS    float64
	overlap   int
	tagScore  int
	jitter    float64
}

// Select picks the next video for channel among candidates, honoring the
// shown list, the anti-repeat gap, and the fairness scoring. It
// returns the pick and the shown list updated to include it. previousPick
// is the video_id of the last pick on this channel, used for diversity
// overlap (may be empty).
func (p *Picker) Select(
	ch store.Channel,
	cat *catalog.Catalog,
	plays store.PlayStats,
	shown ShownLists,
	channelID string,
	previousPick string,
	now time.Time,
) (Pick, ShownLists, bool) {
	all := p.candidateSet(ch, cat)
	if len(all) == 0 {
		return Pick{}, shown, false
	}

	shownSet := shown[channelID]
	remaining := filterShown(all, shownSet)
	if len(remaining) == 0 {
		shownSet = map[string]bool{}
		remaining = all
	}

	gapFiltered := filterGap(remaining, plays, ch.EffectiveMinGap(), now)
	pool := gapFiltered
	if len(pool) == 0 {
		pool = sortByGreatestAge(remaining, plays, now)
	}

	previousTags := map[string]bool{}
	if previousPick != "" {
		if v, ok := cat.Metadata[previousPick]; ok {
			for _, t := range v.Tags {
				previousTags[t] = true
			}
		}
	}

	rng := p.rng()
	scored := make([]candidate, 0, len(pool))
	for _, ep := range pool {
		scored = append(scored, score(ep, plays, ch.TagsPrioridad, previousTags, rng))
	}
	sort.Slice(scored, func(i, j int) bool { return less(scored[i], scored[j]) })

	winner := scored[0]

	newShown := cloneShown(shownSet)
	newShown[winner.videoID] = true
	out := cloneShownLists(shown)
	out[channelID] = newShown

	age := ageSeconds(plays[winner.videoID], now)
	return Pick{VideoID: winner.videoID, AgeSeconds: age}, out, true
}

// candidateSet returns the eligible videos for ch: episodes of its series
// filter if it is (defensively) broadcast, else videos whose tags
// intersect tags_incluidos.
func (p *Picker) candidateSet(ch store.Channel, cat *catalog.Catalog) []catalog.Episode {
	if ch.IsBroadcast() {
		var out []catalog.Episode
		for _, s := range ch.SeriesFilter {
			out = append(out, cat.EpisodesOf(s)...)
		}
		return out
	}
	want := map[string]bool{}
	for _, t := range ch.TagsIncluidos {
		want[t] = true
	}
	var out []catalog.Episode
	for id, v := range cat.Metadata {
		if hasAny(v.Tags, want) {
			out = append(out, catalog.Episode{VideoID: id, Video: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

func hasAny(tags []string, want map[string]bool) bool {
	for _, t := range tags {
		if want[t] {
			return true
		}
	}
	return false
}

func filterShown(all []catalog.Episode, shownSet map[string]bool) []catalog.Episode {
	if len(shownSet) == 0 {
		return all
	}
	var out []catalog.Episode
	for _, ep := range all {
		if !shownSet[ep.VideoID] {
			out = append(out, ep)
		}
	}
	return out
}

// filterGap drops candidates whose last play was less than minGapMinutes ago.
func filterGap(all []catalog.Episode, plays store.PlayStats, minGapMinutes int, now time.Time) []catalog.Episode {
	gap := time.Duration(minGapMinutes) * time.Minute
	var out []catalog.Episode
	for _, ep := range all {
		stat, ok := plays[ep.VideoID]
		if !ok || now.Sub(stat.LastPlayed) >= gap {
			out = append(out, ep)
		}
	}
	return out
}

// sortByGreatestAge relaxes the gap filter: return all candidates ordered
// oldest-last-played first.
func sortByGreatestAge(all []catalog.Episode, plays store.PlayStats, now time.Time) []catalog.Episode {
	out := make([]catalog.Episode, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool {
		return ageSeconds(plays[out[i].VideoID], now) > ageSeconds(plays[out[j].VideoID], now)
	})
	return out
}

func ageSeconds(stat store.PlayStat, now time.Time) float64 {
	if stat.LastPlayed.IsZero() {
		return math.Inf(1)
	}
	return now.Sub(stat.LastPlayed).Seconds()
}

func score(ep catalog.Episode, plays store.PlayStats, tagsPrioridad []string, previousTags map[string]bool, rng *rand.Rand) candidate {
	stat := plays[ep.VideoID]
	durMin := math.Ceil(ep.Video.DuracionSec / 60)
	if durMin < 1 {
		durMin = 1
	}
	playsNorm := float64(stat.Plays) / durMin

	lastTS := 0.0
	if !stat.LastPlayed.IsZero() {
		lastTS = float64(stat.LastPlayed.Unix())
	}

	overlap := 0
	for _, t := range ep.Video.Tags {
		if previousTags[t] {
			overlap++
		}
	}

	tagScore := 0
	prioIndex := map[string]int{}
	for i, t := range tagsPrioridad {
		prioIndex[t] = i
	}
	for _, t := range ep.Video.Tags {
		if idx, ok := prioIndex[t]; ok {
			tagScore += len(tagsPrioridad) - idx
		}
	}

	return candidate{
		videoID:   ep.VideoID,
		video:     ep.Video,
		playsNorm: playsNorm,
		lastTS:    lastTS,
		overlap:   overlap,
		tagScore:  tagScore,
		jitter:    rng.Float64() * 0.01,
	}
}

// less implements the ascending sort key
// (plays_norm, last_ts, overlap, -tag_score, jitter).
func less(a, b candidate) bool {
	if a.playsNorm != b.playsNorm {
		return a.playsNorm < b.playsNorm
	}
	if a.lastTS != b.lastTS {
		return a.lastTS < b.lastTS
	}
	if a.overlap != b.overlap {
		return a.overlap < b.overlap
	}
	if a.tagScore != b.tagScore {
		return a.tagScore > b.tagScore // -tag_score ascending == tag_score descending
	}
	return a.jitter < b.jitter
}

func cloneShown(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneShownLists(in ShownLists) ShownLists {
	out := make(ShownLists, len(in))
	for k, v := range in {
		out[k] = cloneShown(v)
	}
	return out
}

// Confirm records a played confirmation: clears it from n/a (pending-pick
// bookkeeping lives in the switcher) and bumps plays/last_played. It
// returns the updated PlayStats; callers persist it. Two concurrent
// confirmations for the same id both apply (plays is a count of reported
// completions, not deduplicated).
func Confirm(plays store.PlayStats, videoID string, now time.Time) store.PlayStats {
	out := make(store.PlayStats, len(plays))
	for k, v := range plays {
		out[k] = v
	}
	stat := out[videoID]
	stat.Plays++
	stat.LastPlayed = now
	out[videoID] = stat
	return out
}
