package httpapi

import (
	"net/http"

	"github.com/rsappia/tvargenta/internal/apierr"
)

type vcrStateResponse struct {
	Inserted    bool    `json:"inserted"`
	VideoURL    string  `json:"video_url,omitempty"`
	PositionSec float64 `json:"position_sec,omitempty"`
}

// handleVCRState reports the last-mirrored tape state for Channel 03's
// player UI to reflect tape-in/tape-out without its own NFC polling.
func (s *Server) handleVCRState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, vcrStateResponse{
		Inserted:    s.VCRMirror.TapeInserted(),
		VideoURL:    s.VCRMirror.TapeVideoURL(),
		PositionSec: s.VCRMirror.TapePositionSec(),
	})
}

// handleVCRPause raises the pause/resume trigger for the external VCR
// subsystem; tvargenta never pauses the tape itself.
func (s *Server) handleVCRPause(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.VCRControl.Pause(); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("raise pause trigger: "+err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleVCRRewind raises the rewind trigger for the external VCR subsystem.
func (s *Server) handleVCRRewind(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.VCRControl.Rewind(); err != nil {
		apierr.WriteJSON(w, apierr.IOFault("raise rewind trigger: "+err.Error()))
		return
	}
	apierr.WriteSuccess(w, http.StatusOK, map[string]bool{"ok": true})
}
