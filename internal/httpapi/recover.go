package httpapi

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// recoverMiddleware turns a panicking handler into a 500 instead of taking
// down the whole process. The channel switcher hot path runs on every
// /api/next_video call, so one bad video file or malformed schedule entry
// must not crash the server mid-broadcast.
func recoverMiddleware(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					sentry.CurrentHub().Recover(rec)
					if log != nil {
						log.WithField("panic", rec).
							WithField("path", r.URL.Path).
							WithField("request_id", requestIDFromContext(r.Context())).
							Error("httpapi: handler panicked")
					}
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
