package httpapi

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rsappia/tvargenta/internal/apierr"
)

// handleHealthz is a liveness probe: 200 as soon as the process can
// respond at all, with no dependency checks.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	apierr.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is a readiness probe: it additionally confirms the content
// root is still reachable and, when a rate-limit store is configured,
// that it still answers a round-trip Set/Get within a short deadline.
// Returns 503 with per-check detail when anything is degraded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	degraded := false

	if _, err := os.Stat(s.Store.Root()); err != nil {
		checks["content_root"] = "error: " + err.Error()
		degraded = true
	} else {
		checks["content_root"] = "ok"
	}

	if s.Limiter != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Limiter.Ping(ctx); err != nil {
			checks["rate_limit_store"] = "error: " + err.Error()
			degraded = true
		} else {
			checks["rate_limit_store"] = "ok"
		}
	}

	status := http.StatusOK
	body := map[string]interface{}{"status": "ok", "checks": checks}
	if degraded {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	apierr.WriteSuccess(w, status, body)
}
