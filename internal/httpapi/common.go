package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rsappia/tvargenta/internal/apierr"
	"github.com/rsappia/tvargenta/internal/logredact"
	"github.com/rsappia/tvargenta/internal/ratelimit"
)

// requireMethod reports whether r.Method matches, writing a 405 envelope
// otherwise. Handlers call this first and return immediately on false.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	apierr.WriteJSON(w, &apierr.Error{
		Kind:    apierr.KindBadRequest,
		Message: "method not allowed, expected " + method,
		Status:  http.StatusMethodNotAllowed,
	})
	return false
}

// decodeJSON decodes the request body into v, returning a BadRequest on
// malformed JSON.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.BadRequest("malformed request body: " + err.Error())
	}
	return nil
}

// requireAdmin wraps h with bearer-token validation and the admin rate
// limit. The hot path never passes through here — only the admin-gated
// endpoints propagate auth/rate-limit errors verbatim to the caller.
func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := ratelimit.ClientIP(r)
		allowed, retryAfter := s.Limiter.CheckAdmin(ctx, clientIP)
		if !allowed {
			if s.Log != nil {
				s.Log.WithField("client_ip", logredact.IP(clientIP)).Warn("httpapi: admin rate limit exceeded")
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			apierr.WriteJSON(w, apierr.RateLimited("too many admin requests"))
			return
		}

		token := bearerToken(r)
		if token == "" {
			apierr.WriteJSON(w, apierr.Unauthorized("missing bearer token"))
			return
		}
		if _, err := s.AdminAuth.Validate(token); err != nil {
			apierr.WriteJSON(w, apierr.Unauthorized("invalid or expired token"))
			return
		}
		h(w, r)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}
