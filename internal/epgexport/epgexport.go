// Package epgexport renders a broadcast channel's daily segment list as an
// XMLTV document, the standard EPG interchange format, so third-party
// guide-aware frontends can show tvargenta's grid without understanding
// its native JSON schedule documents.
package epgexport

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/store"
)

// xmltvDateLayout is the XMLTV timestamp format: YYYYMMDDHHmmss ±HHMM.
const xmltvDateLayout = "20060102150405 -0700"

type xmlTV struct {
	XMLName    xml.Name        `xml:"tv"`
	Channels   []xmlChannel    `xml:"channel"`
	Programmes []xmlProgramme  `xml:"programme"`
}

type xmlChannel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
}

type xmlProgramme struct {
	Channel string `xml:"channel,attr"`
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

// Write renders schedule's segments for every broadcast channel in
// channels as an XMLTV document, anchored at schedule.ValidFrom (the
// 03:00 start of the broadcast day). Commercial and test-pattern
// segments are omitted; only episodes carry programme listings.
func Write(w io.Writer, channels store.Channels, schedule store.DailySchedule, cat *catalog.Catalog) error {
	doc := xmlTV{}
	for canalID, ch := range channels {
		if !ch.IsBroadcast() {
			continue
		}
		doc.Channels = append(doc.Channels, xmlChannel{ID: canalID, DisplayName: ch.Nombre})

		segs, ok := schedule.Channels[canalID]
		if !ok {
			continue
		}
		for _, seg := range segs {
			if seg.Type != store.SegmentEpisode {
				continue
			}
			start := schedule.ValidFrom.Add(time.Duration(seg.StartSec) * time.Second)
			stop := schedule.ValidFrom.Add(time.Duration(seg.EndSec) * time.Second)
			title := seg.VideoID
			if v, ok := cat.Metadata[seg.VideoID]; ok && v.Title != "" {
				title = v.Title
			}
			doc.Programmes = append(doc.Programmes, xmlProgramme{
				Channel: canalID,
				Start:   start.Format(xmltvDateLayout),
				Stop:    stop.Format(xmltvDateLayout),
				Title:   title,
				Desc:    seg.SeriesPath,
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("epgexport: write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("epgexport: encode xmltv: %w", err)
	}
	return nil
}
