package lookup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/store"
)

func plan05() store.DailySchedule {
	return store.DailySchedule{
		Channels: map[string][]store.Segment{
			"01": {
				{StartSec: 0, EndSec: 3600, Type: store.SegmentTestPattern},
				{StartSec: 3600, EndSec: 7200, Type: store.SegmentTestPattern},
				{StartSec: 7200, EndSec: 7200 + 120, Type: store.SegmentCommercial, VideoID: "commA"},
				{StartSec: 7200 + 120, EndSec: 7200 + 120 + 1000, Type: store.SegmentEpisode, VideoID: "ep1", SeriesPath: "show"},
			},
		},
	}
}

// TestLookupAt050030 is seed scenario 3: at 05:00:30 the 05:00 block begins
// with a 120s commercial, so lookup returns that commercial with seek_to=30.
func TestLookupAt050030(t *testing.T) {
	c := lookup.NewCache()
	c.Swap(plan05())

	now := time.Date(2026, 7, 31, 5, 0, 30, 0, time.Local)
	r := c.Lookup("01", now)
	require.True(t, r.Found)
	assert.Equal(t, store.SegmentCommercial, r.SegmentType)
	assert.Equal(t, "commA", r.VideoID)
	assert.Equal(t, float64(30), r.SeekOffsetSec)
}

func TestLookupAtExactly0300MapsToSegmentZero(t *testing.T) {
	c := lookup.NewCache()
	c.Swap(plan05())
	now := time.Date(2026, 7, 31, 3, 0, 0, 0, time.Local)
	r := c.Lookup("01", now)
	require.True(t, r.Found)
	assert.Equal(t, store.SegmentTestPattern, r.SegmentType)
	assert.Equal(t, float64(0), r.SeekOffsetSec)
}

func TestLookupAt0259MapsToYesterdaysNightPeriod(t *testing.T) {
	s := lookup.SecondsSince0300(time.Date(2026, 7, 31, 2, 59, 0, 0, time.Local))
	assert.Equal(t, (24-3)*3600+2*3600+59*60, s)
	assert.Greater(t, s, 21*3600)
}

func TestLookupColdCacheReturnsTestPattern(t *testing.T) {
	c := lookup.NewCache()
	r := c.Lookup("01", time.Now())
	assert.False(t, r.Found)
	assert.Equal(t, store.SegmentTestPattern, r.SegmentType)
}

func TestLookupUnknownChannelReturnsTestPattern(t *testing.T) {
	c := lookup.NewCache()
	c.Swap(plan05())
	r := c.Lookup("99", time.Now())
	assert.False(t, r.Found)
}

func TestLookupIsPure(t *testing.T) {
	c := lookup.NewCache()
	c.Swap(plan05())
	now := time.Date(2026, 7, 31, 5, 0, 30, 0, time.Local)
	r1 := c.Lookup("01", now)
	r2 := c.Lookup("01", now)
	assert.Equal(t, r1, r2)
}
