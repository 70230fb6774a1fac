package httpapi

import (
	"net/http"
	"strconv"

	"github.com/rsappia/tvargenta/internal/adminauth"
	"github.com/rsappia/tvargenta/internal/apierr"
	"github.com/rsappia/tvargenta/internal/logredact"
	"github.com/rsappia/tvargenta/internal/ratelimit"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

// handleAdminLogin exchanges the admin password for a short-lived bearer
// token. Rate limited the same as the endpoints it gates access to, so a
// password-guessing loop can't outrun the admin rate limit by hitting
// login directly.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	allowed, retryAfter := s.Limiter.CheckAdmin(r.Context(), "login:"+ratelimit.ClientIP(r))
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		apierr.WriteJSON(w, apierr.RateLimited("too many login attempts"))
		return
	}

	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if s.AdminPasswordHash == "" || !adminauth.CheckPassword(s.AdminPasswordHash, req.Password) {
		apierr.WriteJSON(w, apierr.Unauthorized("invalid admin password"))
		return
	}

	token, err := s.AdminAuth.Mint()
	if err != nil {
		apierr.WriteJSON(w, apierr.IOFault("mint admin token: "+err.Error()))
		return
	}
	if s.Log != nil {
		s.Log.WithField("token", logredact.Token(token)).Info("httpapi: admin token minted")
	}
	apierr.WriteSuccess(w, http.StatusOK, adminLoginResponse{Token: token})
}
