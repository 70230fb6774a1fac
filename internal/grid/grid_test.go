package grid_test

import (
	"testing"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/grid"
	"github.com/rsappia/tvargenta/internal/store"
)

func testSchedule() store.DailySchedule {
	return store.DailySchedule{
		ValidFrom: time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC),
		Channels: map[string][]store.Segment{
			"01": {
				{StartSec: 0, EndSec: 1800, Type: store.SegmentTestPattern},
				{StartSec: 1800, EndSec: 3600, Type: store.SegmentEpisode, VideoID: "ep-001"},
				{StartSec: 3600, EndSec: 5400, Type: store.SegmentCommercial, VideoID: "ad-01"},
			},
		},
	}
}

func TestComposeBuildsRowsAndSlots(t *testing.T) {
	channels := store.Channels{"01": {Nombre: "Canal Uno", Numero: "01", SeriesFilter: []string{"cartoons"}}}
	cat := catalog.New(store.Metadata{"ep-001": {Title: "The Pilot"}}, store.SeriesSet{})
	schedule := testSchedule()

	req := grid.Request{
		ChannelIDs: []string{"01"},
		StartTime:  schedule.ValidFrom,
		Duration:   2 * time.Hour,
	}
	resp, err := grid.Compose(schedule.ValidFrom, req, channels, schedule, cat)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if len(resp.TimeSlots) != 4 {
		t.Fatalf("expected 4 half-hour slots across a 2h window, got %d", len(resp.TimeSlots))
	}
	if len(resp.Channels) != 1 {
		t.Fatalf("expected 1 channel row, got %d", len(resp.Channels))
	}
	row := resp.Channels[0]
	if row.Channel.Name != "Canal Uno" {
		t.Errorf("expected channel name Canal Uno, got %q", row.Channel.Name)
	}

	var sawEpisode, sawCommercial bool
	for _, p := range row.Programs {
		if p.Title == "The Pilot" {
			sawEpisode = true
			if p.VideoID != "ep-001" {
				t.Errorf("expected video_id ep-001, got %q", p.VideoID)
			}
		}
		if p.Title == "Commercial Break" {
			sawCommercial = true
		}
	}
	if !sawEpisode {
		t.Errorf("expected an episode cell resolved to its catalog title, got %+v", row.Programs)
	}
	if !sawCommercial {
		t.Errorf("expected a commercial break cell, got %+v", row.Programs)
	}
}

func TestComposeUnknownChannelRendersAsUnknownRow(t *testing.T) {
	schedule := testSchedule()
	cat := catalog.New(store.Metadata{}, store.SeriesSet{})
	req := grid.Request{ChannelIDs: []string{"99"}, StartTime: schedule.ValidFrom, Duration: time.Hour}

	resp, err := grid.Compose(schedule.ValidFrom, req, store.Channels{}, schedule, cat)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if resp.Channels[0].Channel.Name != "Unknown" {
		t.Errorf("expected Unknown row for unconfigured channel, got %+v", resp.Channels[0].Channel)
	}
}

func TestComposeRejectsEmptyChannelList(t *testing.T) {
	schedule := testSchedule()
	cat := catalog.New(store.Metadata{}, store.SeriesSet{})
	_, err := grid.Compose(schedule.ValidFrom, grid.Request{}, store.Channels{}, schedule, cat)
	if err == nil {
		t.Fatal("expected an error for an empty channel list")
	}
}
