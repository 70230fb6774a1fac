package httpapi

import (
	"net/http"

	"github.com/rsappia/tvargenta/internal/apierr"
	"github.com/rsappia/tvargenta/internal/store"
	"github.com/rsappia/tvargenta/internal/validate"
)

// handleSeries lists the series catalog (folder -> Series).
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	series, err := s.Store.LoadSeries()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load series: "+err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, series)
}

type seriesTimeOfDayRequest struct {
	Series    string `json:"series"`
	TimeOfDay string `json:"time_of_day"`
}

// handleSeriesTimeOfDay reassigns a series' time-of-day period, which the
// weekly planner picks up on its next regeneration.
func (s *Server) handleSeriesTimeOfDay(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req seriesTimeOfDayRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if err := validate.NonEmptyString("series", req.Series); err != nil {
		apierr.WriteJSON(w, apierr.BadRequest(err.Error()))
		return
	}
	if err := validate.IsTimeOfDay("time_of_day", req.TimeOfDay); err != nil {
		apierr.WriteJSON(w, apierr.BadRequest(err.Error()))
		return
	}

	seriesSet, err := s.Store.LoadSeries()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("load series: "+err.Error()))
		return
	}
	entry, ok := seriesSet[req.Series]
	if !ok {
		apierr.WriteJSON(w, apierr.NotFound("unknown series"))
		return
	}
	entry.TimeOfDay = store.TimeOfDay(req.TimeOfDay)
	seriesSet[req.Series] = entry

	if err := s.Store.SaveSeries(seriesSet); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("save series: "+err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, map[string]bool{"ok": true})
}
