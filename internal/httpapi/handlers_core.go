package httpapi

import (
	"net/http"

	"github.com/rsappia/tvargenta/internal/apierr"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/metrics"
	"github.com/rsappia/tvargenta/internal/store"
)

// nextVideoResponse is the wire shape for GET /api/next_video. Optional
// fields are omitted rather than sent as zero values.
type nextVideoResponse struct {
	VideoID     string  `json:"video_id,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	SeekTo      float64 `json:"seek_to,omitempty"`
	CanalNumero string  `json:"canal_numero,omitempty"`
	CanalNombre string  `json:"canal_nombre,omitempty"`
	Modo        string  `json:"modo"`
	Broadcast   bool    `json:"broadcast,omitempty"`
	Sticky      bool    `json:"sticky,omitempty"`
	Cooldown    bool    `json:"cooldown,omitempty"`
	Reused      bool    `json:"reused,omitempty"`
	NoVideos    bool    `json:"no_videos,omitempty"`
}

// handleNextVideo is the channel-switcher hot path. It never returns a
// 5xx for catalog/schedule problems; an unresolvable channel falls back
// to the test-pattern selection.
func (s *Server) handleNextVideo(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	s.ForceNext.Poll()
	if s.ForceNext.Consume() {
		s.Switcher.RaiseForceNext()
	}

	canalActivo, err := s.Store.LoadCanalActivo()
	canalID := canalActivo.CanalID
	if err != nil || canalID == "" {
		if s.Log != nil && err != nil {
			s.Log.WithError(err).Warn("next_video: load active channel failed, using test pattern")
		}
		writeTestPattern(w)
		return
	}

	channels, err := s.Store.LoadChannels()
	if err != nil {
		if s.Log != nil {
			s.Log.WithError(err).Warn("next_video: load channels failed, using test pattern")
		}
		writeTestPattern(w)
		return
	}
	ch, ok := channels[canalID]
	if !ok && canalID != "03" {
		writeTestPattern(w)
		return
	}

	cat := s.CatalogOf()
	t := now()

	s.mu.Lock()
	sel, newShown := s.Switcher.NextVideo(canalID, ch, cat, s.plays, s.shown, t)
	s.shown = newShown
	s.mu.Unlock()

	metrics.NextVideoPicks.WithLabelValues(sel.Kind).Inc()

	apierr.WriteSuccess(w, http.StatusOK, nextVideoResponse{
		VideoID:     sel.VideoID,
		VideoURL:    sel.VideoURL,
		SeekTo:      sel.SeekTo,
		CanalNumero: sel.CanalNumero,
		CanalNombre: sel.CanalNombre,
		Modo:        sel.Kind,
		Broadcast:   sel.Broadcast,
		Sticky:      sel.Sticky,
		Cooldown:    sel.Cooldown,
		Reused:      sel.Reused,
		NoVideos:    sel.NoVideos,
	})
}

func writeTestPattern(w http.ResponseWriter) {
	apierr.WriteSuccess(w, http.StatusOK, nextVideoResponse{
		VideoURL: "/videos/system/test_pattern.mp4",
		Modo:     "broadcast",
	})
}

// playedRequest is the body of POST /api/played.
type playedRequest struct {
	VideoID string `json:"video_id"`
}

type playedResponse struct {
	OK         bool   `json:"ok"`
	Plays      int    `json:"plays"`
	LastPlayed string `json:"last_played"`
}

// handlePlayed bumps the play count for a confirmed playback. Confirmation
// of an id missing from the catalog is a no-op that still answers ok; for
// known ids it is additive across concurrent confirmations of the same id:
// N events always yield plays += N.
func (s *Server) handlePlayed(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req playedRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if req.VideoID == "" {
		apierr.WriteJSON(w, apierr.BadRequest("video_id is required"))
		return
	}
	if _, known := s.CatalogOf().Metadata[req.VideoID]; !known {
		apierr.WriteSuccess(w, http.StatusOK, playedResponse{OK: true})
		return
	}

	t := now()
	s.mu.Lock()
	s.plays = fairness.Confirm(s.plays, req.VideoID, t)
	stat := s.plays[req.VideoID]
	playsSnapshot := s.plays
	s.mu.Unlock()

	s.Switcher.ConfirmPlayed(req.VideoID)

	if err := s.Store.SavePlayStats(playsSnapshot); err != nil && s.Log != nil {
		s.Log.WithError(err).Warn("played: save play stats failed")
	}

	apierr.WriteSuccess(w, http.StatusOK, playedResponse{
		OK:         true,
		Plays:      stat.Plays,
		LastPlayed: stat.LastPlayed.Format(timeLayout),
	})
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

type shouldReloadResponse struct {
	ShouldReload bool `json:"should_reload"`
}

// handleShouldReload reports the one-shot edge of the reload trigger file
// (raised externally on menu navigation / channel-switch / config change).
func (s *Server) handleShouldReload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	s.ShouldReload.Poll()
	apierr.WriteSuccess(w, http.StatusOK, shouldReloadResponse{ShouldReload: s.ShouldReload.Consume()})
}

// handleCanales lists the configured channels.
func (s *Server) handleCanales(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	channels, err := s.Store.LoadChannels()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load channels: "+err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, channels)
}

type setCanalActivoRequest struct {
	CanalID string `json:"canal_id"`
}

// handleSetCanalActivo switches the active channel. force-next is raised
// so the next next_video call bypasses the anti-bounce windows for a
// crisp channel change.
func (s *Server) handleSetCanalActivo(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req setCanalActivoRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if req.CanalID == "" {
		apierr.WriteJSON(w, apierr.BadRequest("canal_id is required"))
		return
	}
	channels, err := s.Store.LoadChannels()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load channels: "+err.Error()))
		return
	}
	if _, ok := channels[req.CanalID]; !ok && req.CanalID != "03" {
		apierr.WriteJSON(w, apierr.NotFound("unknown canal_id"))
		return
	}
	if err := s.Store.SaveCanalActivo(store.CanalActivo{CanalID: req.CanalID}); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("save active channel: "+err.Error()))
		return
	}
	s.Switcher.RaiseForceNext()
	apierr.WriteSuccess(w, http.StatusOK, map[string]bool{"ok": true})
}
