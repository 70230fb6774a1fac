package switcher_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/store"
	"github.com/rsappia/tvargenta/internal/switcher"
)

func libraryChannel() store.Channel {
	return store.Channel{Nombre: "Library", Numero: "02", TagsIncluidos: []string{"vhs"}}
}

func libraryCatalog() *catalog.Catalog {
	meta := store.Metadata{
		"a": {Category: store.CategoryVHSTape, Tags: []string{"vhs"}, DuracionSec: 600},
		"b": {Category: store.CategoryVHSTape, Tags: []string{"vhs"}, DuracionSec: 600},
		"c": {Category: store.CategoryVHSTape, Tags: []string{"vhs"}, DuracionSec: 600},
	}
	return catalog.New(meta, store.SeriesSet{})
}

// TestStickyReentry is seed scenario 6: two next_video calls 0.3s apart on a
// library channel return the identical pick with the second carrying
// sticky:true; a third call 1.8s later, past the sticky and cooldown
// windows but with no played confirmation, is served from the pending pick.
func TestStickyReentry(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), &fairness.Picker{Rand: rand.New(rand.NewSource(1))})
	cat := libraryCatalog()
	ch := libraryChannel()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.Local)

	sel1, shown := sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base)
	assert.False(t, sel1.Sticky)

	sel2, shown := sw.NextVideo("02", ch, cat, store.PlayStats{}, shown, base.Add(300*time.Millisecond))
	assert.Equal(t, sel1.VideoID, sel2.VideoID)
	assert.True(t, sel2.Sticky)

	sel3, _ := sw.NextVideo("02", ch, cat, store.PlayStats{}, shown, base.Add(1800*time.Millisecond))
	_ = sel3 // the unconfirmed pending pick, returned with Reused set
}

func TestCooldownWindow(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), &fairness.Picker{Rand: rand.New(rand.NewSource(1))})
	cat := libraryCatalog()
	ch := libraryChannel()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.Local)

	sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base)
	sel, _ := sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base.Add(1200*time.Millisecond))
	assert.True(t, sel.Cooldown)
}

func TestPendingDedupeWithoutPlayedConfirmation(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), &fairness.Picker{Rand: rand.New(rand.NewSource(1))})
	cat := libraryCatalog()
	ch := libraryChannel()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.Local)

	sel1, shown := sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base)
	// Past sticky+cooldown, but the pending pick hasn't been confirmed yet.
	sel2, _ := sw.NextVideo("02", ch, cat, store.PlayStats{}, shown, base.Add(2*time.Second))
	assert.True(t, sel2.Reused)
	assert.Equal(t, sel1.VideoID, sel2.VideoID)
}

func TestConfirmPlayedClearsPendingDedupe(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), &fairness.Picker{Rand: rand.New(rand.NewSource(1))})
	cat := libraryCatalog()
	ch := libraryChannel()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.Local)

	sel1, shown := sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base)
	sw.ConfirmPlayed(sel1.VideoID)
	sel2, _ := sw.NextVideo("02", ch, cat, store.PlayStats{}, shown, base.Add(2*time.Second))
	assert.False(t, sel2.Reused)
}

func TestForceNextBypassesAntiBounce(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), &fairness.Picker{Rand: rand.New(rand.NewSource(1))})
	cat := libraryCatalog()
	ch := libraryChannel()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.Local)

	sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base)
	sw.RaiseForceNext()
	sel, _ := sw.NextVideo("02", ch, cat, store.PlayStats{}, fairness.ShownLists{}, base.Add(10*time.Millisecond))
	assert.False(t, sel.Sticky)
	assert.False(t, sel.Cooldown)
	assert.False(t, sel.Reused)
}

func TestAVInputChannelReturnsMarker(t *testing.T) {
	sw := switcher.New(lookup.NewCache(), fairness.New())
	sel, _ := sw.NextVideo("03", store.Channel{}, catalog.New(store.Metadata{}, store.SeriesSet{}), store.PlayStats{}, fairness.ShownLists{}, time.Now())
	assert.Equal(t, "av_input", sel.Kind)
	assert.Equal(t, "03", sel.CanalNumero)
}

func TestBroadcastChannelConsultsLookup(t *testing.T) {
	cache := lookup.NewCache()
	cache.Swap(store.DailySchedule{
		Channels: map[string][]store.Segment{
			"01": {{StartSec: 0, EndSec: 86400, Type: store.SegmentEpisode, VideoID: "ep1", SeriesPath: "show"}},
		},
	})
	sw := switcher.New(cache, fairness.New())
	ch := store.Channel{Nombre: "Uno", Numero: "01", SeriesFilter: []string{"show"}}
	sel, _ := sw.NextVideo("01", ch, catalog.New(store.Metadata{}, store.SeriesSet{}), store.PlayStats{}, fairness.ShownLists{}, time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local))
	require.True(t, sel.Broadcast)
	assert.Equal(t, "ep1", sel.VideoID)
}
