package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDKey is the context key the request ID is stored under.
type requestIDKey struct{}

// requestID stamps every response with an X-Request-ID header, generating
// one unless the caller already supplied one, and makes it available to
// handlers for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFromContext returns the request ID stashed by requestID, or ""
// if the middleware wasn't applied.
func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}
