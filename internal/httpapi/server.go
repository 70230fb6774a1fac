// Package httpapi wires tvargenta's core operations onto HTTP: the
// channel-switcher hot path, the admin-gated schedule controls, and the
// thin adapters the external rotary-encoder and VCR subsystems need.
// Routing is stdlib-only: one ServeMux.Handle per path, small
// per-resource handlers, no router package.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsappia/tvargenta/internal/adminauth"
	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/daily"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/metrics"
	"github.com/rsappia/tvargenta/internal/ratelimit"
	"github.com/rsappia/tvargenta/internal/store"
	"github.com/rsappia/tvargenta/internal/switcher"
	"github.com/rsappia/tvargenta/internal/trigger"
	"github.com/rsappia/tvargenta/internal/vcr"
	"github.com/rsappia/tvargenta/internal/weekly"
)

// Server holds every dependency tvargenta's HTTP surface needs. Construct
// with New and mount with RegisterRoutes.
type Server struct {
	Store    *store.Store
	Switcher *switcher.Switcher
	Weekly   *weekly.Planner
	Daily    *daily.Planner
	CatalogOf func() *catalog.Catalog

	VCRMirror  *vcr.Mirror
	VCRControl *vcr.Control

	ForceNext    *trigger.Watcher
	ShouldReload *trigger.Watcher

	AdminAuth         *adminauth.Issuer
	AdminPasswordHash string
	Limiter           *ratelimit.Limiter

	Log *logrus.Entry

	mu    sync.Mutex
	plays store.PlayStats
	shown fairness.ShownLists
}

// New constructs a Server, warming its in-memory play-stats/shown-list
// cache from the store. A load failure is logged and treated as empty,
// matching the rest of the store's missing-file-means-default policy.
func New(
	st *store.Store,
	sw *switcher.Switcher,
	weeklyPlanner *weekly.Planner,
	dailyPlanner *daily.Planner,
	catalogOf func() *catalog.Catalog,
	mirror *vcr.Mirror,
	ctrl *vcr.Control,
	forceNext *trigger.Watcher,
	shouldReload *trigger.Watcher,
	auth *adminauth.Issuer,
	adminPasswordHash string,
	limiter *ratelimit.Limiter,
	log *logrus.Entry,
) *Server {
	plays, err := st.LoadPlayStats()
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("httpapi: load play stats failed, starting empty")
		}
		plays = store.PlayStats{}
	}
	return &Server{
		Store:             st,
		Switcher:          sw,
		Weekly:            weeklyPlanner,
		Daily:             dailyPlanner,
		CatalogOf:         catalogOf,
		VCRMirror:         mirror,
		VCRControl:        ctrl,
		ForceNext:         forceNext,
		ShouldReload:      shouldReload,
		AdminAuth:         auth,
		AdminPasswordHash: adminPasswordHash,
		Limiter:           limiter,
		Log:               log,
		plays:             plays,
		shown:             fairness.ShownLists{},
	}
}

// RegisterRoutes mounts every endpoint on mux, each wrapped by the
// metrics latency middleware.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	route := func(path string, h http.HandlerFunc) {
		mux.Handle(path, requestID(recoverMiddleware(s.Log)(securityHeaders(metrics.Middleware(path, h)))))
	}

	// ── Channel switcher hot path ────────────────────────────────────────
	route("/api/next_video", s.handleNextVideo)
	route("/api/played", s.handlePlayed)
	route("/api/should_reload", s.handleShouldReload)

	// ── Channels ─────────────────────────────────────────────────────────
	route("/api/canales", s.handleCanales)
	route("/api/set_canal_activo", s.handleSetCanalActivo)

	// ── Series catalog ───────────────────────────────────────────────────
	route("/api/series", s.handleSeries)
	route("/api/series/time_of_day", s.handleSeriesTimeOfDay)

	// ── Supplementary schedule controls ──────────────────────────────────
	route("/api/schedule_info", s.handleScheduleInfo)
	route("/api/epg.xml", s.handleEPG)
	route("/api/schedule_grid", s.handleScheduleGrid)
	route("/api/admin/schedule/regenerate", s.requireAdmin(s.handleAdminScheduleRegenerate))

	// ── VCR adapter (Channel 03) ──────────────────────────────────────────
	route("/api/vcr/state", s.handleVCRState)
	route("/api/vcr/pause", s.handleVCRPause)
	route("/api/vcr/rewind", s.handleVCRRewind)

	// ── Admin session ─────────────────────────────────────────────────────
	route("/api/admin/login", s.handleAdminLogin)

	// ── Ambient ─────────────────────────────────────────────────────────
	route("/healthz", s.handleHealthz)
	route("/ready", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())
}

// now is a var so tests can override it deterministically.
var now = time.Now
