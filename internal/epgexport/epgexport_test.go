package epgexport_test

import (
	"strings"
	"testing"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/epgexport"
	"github.com/rsappia/tvargenta/internal/store"
)

func TestWriteIncludesBroadcastChannelsAndEpisodeTitles(t *testing.T) {
	channels := store.Channels{
		"01": {Nombre: "Canal Uno", Numero: "01", SeriesFilter: []string{"cartoons"}},
		"02": {Nombre: "Library", Numero: "02"},
	}
	schedule := store.DailySchedule{
		ValidFrom: time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC),
		Channels: map[string][]store.Segment{
			"01": {
				{StartSec: 0, EndSec: 1800, Type: store.SegmentTestPattern},
				{StartSec: 1800, EndSec: 3600, Type: store.SegmentEpisode, VideoID: "ep-001", SeriesPath: "cartoons"},
			},
		},
	}
	cat := catalog.New(store.Metadata{"ep-001": {Title: "The Pilot"}}, store.SeriesSet{})

	var buf strings.Builder
	if err := epgexport.Write(&buf, channels, schedule, cat); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `id="01"`) {
		t.Errorf("expected channel 01 in output, got:\n%s", out)
	}
	if strings.Contains(out, `id="02"`) {
		t.Errorf("library channel should be excluded from XMLTV, got:\n%s", out)
	}
	if !strings.Contains(out, "The Pilot") {
		t.Errorf("expected episode title in output, got:\n%s", out)
	}
	if strings.Contains(out, "<title></title>") {
		t.Errorf("test-pattern segment should not have produced a programme")
	}
}
