// Package metrics provides Prometheus instrumentation for tvargenta.
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// tvargenta-specific metrics registered here:
//
//	tvargenta_next_video_total            — counter: next_video picks by kind
//	tvargenta_schedule_regenerations_total — counter: weekly/daily regenerations by scope
//	tvargenta_fairness_picks_total         — counter: fairness-picker selections
//	tvargenta_active_channel               — gauge: numeric id of the active channel
//	tvargenta_http_request_duration_seconds — histogram: HTTP latency by method/path
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NextVideoPicks counts next_video hot-path resolutions by kind
// (av_input, broadcast, library).
var NextVideoPicks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvargenta_next_video_total",
	Help: "Total next_video picks by channel kind.",
}, []string{"kind"})

// ScheduleRegenerations counts weekly/daily plan regenerations.
var ScheduleRegenerations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvargenta_schedule_regenerations_total",
	Help: "Planner regenerations by scope (weekly, daily).",
}, []string{"scope"})

// FairnessPicks counts selections made by the fairness picker.
var FairnessPicks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tvargenta_fairness_picks_total",
	Help: "Total picks made by the fairness picker.",
})

// ActiveChannel reports the numeric id of the currently active channel.
var ActiveChannel = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "tvargenta_active_channel",
	Help: "Numeric id of the channel currently selected as active.",
})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tvargenta_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// Handler returns the Prometheus HTTP handler, mounted at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware wraps an HTTP handler to record request latency. path should
// be a templated path (e.g. "/api/next_video"), not the raw URL, to keep
// label cardinality bounded.
func Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
