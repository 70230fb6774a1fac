// Package grid assembles a multi-channel program grid for a time window,
// one row per channel and one column per 30-minute slot, shaped for a
// CSS-grid guide view: each program carries a SpanSlots count that maps
// directly to grid-column-span, so the frontend does no layout math of
// its own.
package grid

import (
	"fmt"
	"math"
	"time"

	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/store"
)

// Request specifies the parameters for a grid query.
type Request struct {
	ChannelIDs []string      // ordered list of channel IDs to include
	StartTime  time.Time     // grid window start (rounded down to the slot)
	Duration   time.Duration // total window length, typically 2-4 hours
}

// Response is the complete assembled grid, ready for CSS grid rendering.
type Response struct {
	Channels  []ChannelRow `json:"channels"`
	TimeSlots []TimeSlot   `json:"time_slots"`
}

// TimeSlot represents a 30-minute grid column.
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Label     string    `json:"label"`
	SlotIndex int       `json:"slot_index"`
}

// ChannelRow is one channel's row in the grid.
type ChannelRow struct {
	Channel  ChannelInfo `json:"channel"`
	Programs []Program   `json:"programs"`
}

// ChannelInfo contains display fields for a channel header.
type ChannelInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Program is a single program cell in the grid.
type Program struct {
	VideoID     string    `json:"video_id,omitempty"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsNow       bool      `json:"is_now"`
	ProgressPct float64   `json:"progress_pct"`
	SpanSlots   int       `json:"span_slots"`
	StartsAt    int       `json:"starts_at_slot"`
	IsNoInfo    bool      `json:"is_no_info"`
}

// rawProgram is a schedule segment translated to absolute wall-clock time.
type rawProgram struct {
	videoID string
	title   string
	start   time.Time
	end     time.Time
}

// Compose assembles the grid for req against a single generated daily
// schedule. Channels named in req.ChannelIDs but not found in channels are
// rendered as an "Unknown" row rather than dropped, so a stale request
// still gets a same-shaped response.
func Compose(now time.Time, req Request, channels store.Channels, schedule store.DailySchedule, cat *catalog.Catalog) (*Response, error) {
	if len(req.ChannelIDs) == 0 {
		return nil, fmt.Errorf("grid: no channel IDs provided")
	}
	if req.Duration <= 0 {
		req.Duration = 2 * time.Hour
	}

	start := alignToSlot(req.StartTime)
	end := start.Add(req.Duration)
	slots := buildTimeSlots(start, end)

	rows := make([]ChannelRow, 0, len(req.ChannelIDs))
	for _, canalID := range req.ChannelIDs {
		ch, ok := channels[canalID]
		info := ChannelInfo{ID: canalID, Name: "Unknown"}
		if ok {
			info = ChannelInfo{ID: canalID, Name: ch.Nombre, Number: ch.Numero}
		}

		progs := segmentsToPrograms(schedule, canalID, cat, start, end)
		rows = append(rows, ChannelRow{
			Channel:  info,
			Programs: buildChannelRow(progs, slots, now),
		})
	}

	return &Response{Channels: rows, TimeSlots: slots}, nil
}

// segmentsToPrograms converts a channel's segments into rawPrograms
// clipped to [start, end), resolving episode titles through cat.
func segmentsToPrograms(schedule store.DailySchedule, canalID string, cat *catalog.Catalog, start, end time.Time) []rawProgram {
	segs, ok := schedule.Channels[canalID]
	if !ok {
		return nil
	}
	var out []rawProgram
	for _, seg := range segs {
		segStart := schedule.ValidFrom.Add(time.Duration(seg.StartSec) * time.Second)
		segEnd := schedule.ValidFrom.Add(time.Duration(seg.EndSec) * time.Second)
		if !segEnd.After(start) || !segStart.Before(end) {
			continue
		}
		out = append(out, rawProgram{
			videoID: seg.VideoID,
			title:   segmentTitle(seg, cat),
			start:   segStart,
			end:     segEnd,
		})
	}
	return out
}

func segmentTitle(seg store.Segment, cat *catalog.Catalog) string {
	switch seg.Type {
	case store.SegmentEpisode:
		if v, ok := cat.Metadata[seg.VideoID]; ok && v.Title != "" {
			return v.Title
		}
		return seg.VideoID
	case store.SegmentCommercial:
		return "Commercial Break"
	case store.SegmentSponsorsPlaceholder:
		return "Sponsors"
	default:
		return "Off Air"
	}
}

// alignToSlot rounds t down to the previous 30-minute boundary, local time.
func alignToSlot(t time.Time) time.Time {
	t = t.Local()
	if t.Minute() < 30 {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 30, 0, 0, t.Location())
}

func buildTimeSlots(start, end time.Time) []TimeSlot {
	var slots []TimeSlot
	idx := 0
	for t := start; t.Before(end); t = t.Add(30 * time.Minute) {
		slots = append(slots, TimeSlot{
			Start:     t,
			End:       t.Add(30 * time.Minute),
			Label:     t.Format("3:04 PM"),
			SlotIndex: idx,
		})
		idx++
	}
	return slots
}

// buildChannelRow converts raw programs into Programs with SpanSlots set
// and gaps filled with "Off Air" placeholders.
func buildChannelRow(progs []rawProgram, slots []TimeSlot, now time.Time) []Program {
	if len(slots) == 0 {
		return nil
	}
	gridStart := slots[0].Start
	gridEnd := slots[len(slots)-1].End
	totalSlots := len(slots)

	var result []Program
	cursor := gridStart

	for _, p := range progs {
		pStart, pEnd := p.start, p.end
		if pEnd.After(gridEnd) {
			pEnd = gridEnd
		}
		if pStart.Before(gridStart) {
			pStart = gridStart
		}
		if !pStart.Before(gridEnd) || !pEnd.After(gridStart) {
			continue
		}
		if cursor.Before(pStart) {
			result = append(result, buildGaps(cursor, pStart, gridStart, now)...)
		}
		result = append(result, buildProgram(p.videoID, p.title, pStart, pEnd, gridStart, now, false))
		cursor = pEnd
	}
	if cursor.Before(gridEnd) {
		result = append(result, buildGaps(cursor, gridEnd, gridStart, now)...)
	}

	for i := range result {
		if result[i].SpanSlots > totalSlots {
			result[i].SpanSlots = totalSlots
		}
		if result[i].SpanSlots < 1 {
			result[i].SpanSlots = 1
		}
	}
	return result
}

func buildProgram(videoID, title string, start, end, gridStart, now time.Time, isNoInfo bool) Program {
	isLive := !now.Before(start) && now.Before(end)
	var progress float64
	if isLive {
		elapsed := now.Sub(start).Seconds()
		total := end.Sub(start).Seconds()
		if total > 0 {
			progress = math.Min(100, math.Max(0, elapsed/total*100))
		}
	}
	return Program{
		VideoID:     videoID,
		Title:       title,
		StartTime:   start,
		EndTime:     end,
		IsNow:       isLive,
		ProgressPct: progress,
		SpanSlots:   computeSpanSlots(start, end),
		StartsAt:    computeSlotIndex(start, gridStart),
		IsNoInfo:    isNoInfo,
	}
}

// buildGaps fills [start, end) with "Off Air" placeholders, one per
// 30-minute boundary crossed, so a gap never produces one giant cell.
func buildGaps(start, end, gridStart, now time.Time) []Program {
	var result []Program
	cursor := start
	for cursor.Before(end) {
		nextBoundary := alignToSlot(cursor).Add(30 * time.Minute)
		segEnd := nextBoundary
		if segEnd.After(end) {
			segEnd = end
		}
		result = append(result, buildProgram("", "Off Air", cursor, segEnd, gridStart, now, true))
		cursor = segEnd
	}
	return result
}

func computeSpanSlots(start, end time.Time) int {
	slots := int(math.Ceil(end.Sub(start).Minutes() / 30.0))
	if slots < 1 {
		return 1
	}
	return slots
}

func computeSlotIndex(start, gridStart time.Time) int {
	offset := start.Sub(gridStart)
	if offset < 0 {
		return 0
	}
	return int(offset.Minutes() / 30.0)
}
