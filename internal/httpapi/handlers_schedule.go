package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rsappia/tvargenta/internal/apierr"
	"github.com/rsappia/tvargenta/internal/epgexport"
	"github.com/rsappia/tvargenta/internal/grid"
	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/metrics"
	"github.com/rsappia/tvargenta/internal/store"
)

type scheduleInfoResponse struct {
	Channel    string  `json:"channel"`
	NowPlaying segment `json:"now_playing"`
	UpNext     segment `json:"up_next,omitempty"`
}

type segment struct {
	Type    string `json:"type"`
	VideoID string `json:"video_id,omitempty"`
}

// handleScheduleInfo reports the currently-resolved and next segment for
// a broadcast channel, for the player UI's now/next overlay.
func (s *Server) handleScheduleInfo(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		apierr.WriteJSON(w, apierr.BadRequest("channel query parameter is required"))
		return
	}

	plan, found := s.Switcher.Lookup.Plan()
	if !found {
		apierr.WriteSuccess(w, http.StatusOK, scheduleInfoResponse{
			Channel:    channel,
			NowPlaying: segment{Type: "test_pattern"},
		})
		return
	}
	segs, ok := plan.Channels[channel]
	if !ok {
		apierr.WriteJSON(w, apierr.NotFound("unknown channel"))
		return
	}

	res := s.Switcher.Lookup.Lookup(channel, now())
	resp := scheduleInfoResponse{
		Channel:    channel,
		NowPlaying: segment{Type: string(res.SegmentType), VideoID: res.VideoID},
	}
	if next, ok := findNextSegment(segs, lookup.SecondsSince0300(now())); ok {
		resp.UpNext = segment{Type: string(next.Type), VideoID: next.VideoID}
	}
	apierr.WriteSuccess(w, http.StatusOK, resp)
}

func findNextSegment(segs []store.Segment, s int) (store.Segment, bool) {
	for _, seg := range segs {
		if seg.StartSec > s {
			return seg, true
		}
	}
	return store.Segment{}, false
}

// handleEPG renders today's broadcast-channel grid as an XMLTV document
// for guide-aware third-party frontends.
func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	plan, found := s.Switcher.Lookup.Plan()
	if !found {
		apierr.WriteJSON(w, apierr.NotFound("no daily schedule generated yet"))
		return
	}
	channels, err := s.Store.LoadChannels()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load channels: "+err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := epgexport.Write(w, channels, plan, s.CatalogOf()); err != nil {
		if s.Log != nil {
			s.Log.WithError(err).Error("epg: render failed")
		}
	}
}

// handleScheduleGrid assembles a multi-channel CSS-grid-ready guide view
// for the admin dashboard: ?channels=01,02&hours=3 (hours defaults to 2).
func (s *Server) handleScheduleGrid(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	rawChannels := r.URL.Query().Get("channels")
	if rawChannels == "" {
		apierr.WriteJSON(w, apierr.BadRequest("channels query parameter is required"))
		return
	}
	channelIDs := strings.Split(rawChannels, ",")

	hours := 2
	if h := r.URL.Query().Get("hours"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed <= 0 {
			apierr.WriteJSON(w, apierr.BadRequest("hours must be a positive integer"))
			return
		}
		hours = parsed
	}

	plan, found := s.Switcher.Lookup.Plan()
	if !found {
		apierr.WriteJSON(w, apierr.NotFound("no daily schedule generated yet"))
		return
	}
	channels, err := s.Store.LoadChannels()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load channels: "+err.Error()))
		return
	}

	t := now()
	resp, err := grid.Compose(t, grid.Request{
		ChannelIDs: channelIDs,
		StartTime:  t,
		Duration:   time.Duration(hours) * time.Hour,
	}, channels, plan, s.CatalogOf())
	if err != nil {
		apierr.WriteJSON(w, apierr.BadRequest(err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, resp)
}

// handleAdminScheduleRegenerate forces an immediate weekly and daily
// regeneration, bypassing the staleness check the background planners
// use. Gated by requireAdmin in RegisterRoutes.
func (s *Server) handleAdminScheduleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	channels, err := s.Store.LoadChannels()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load channels: "+err.Error()))
		return
	}
	cat := s.CatalogOf()
	t := now()

	weeklyPlan := s.Weekly.Generate(t, channels, cat)
	if err := s.Store.SaveWeeklySchedule(weeklyPlan); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("save weekly schedule: "+err.Error()))
		return
	}
	metrics.ScheduleRegenerations.WithLabelValues("weekly").Inc()

	cursors, err := s.Store.LoadEpisodeCursors()
	if err != nil {
		cursors = store.EpisodeCursors{}
	}
	commercialPool := cat.Commercials(nil)
	dailyPlan, newCursors := s.Daily.Generate(t, weeklyPlan, cursors, cat, channels, commercialPool)

	if err := s.Store.SaveEpisodeCursors(newCursors); err != nil && s.Log != nil {
		s.Log.WithError(err).Error("admin regenerate: save cursors failed")
	}
	if err := s.Store.SaveDailySchedule(dailyPlan); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("save daily schedule: "+err.Error()))
		return
	}
	s.Switcher.Lookup.Swap(dailyPlan)
	metrics.ScheduleRegenerations.WithLabelValues("daily").Inc()

	apierr.WriteSuccess(w, http.StatusOK, map[string]string{
		"weekly_week_start": weeklyPlan.WeekStart.Format(timeLayout),
		"daily_generation_id": dailyPlan.GenerationID,
	})
}
