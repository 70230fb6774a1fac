// Package ratelimit provides a rate limiter for tvargenta's admin HTTP
// endpoints. It is backed by Redis when REDIS_URL is configured, and
// degrades to an in-memory counter otherwise — the hot path
// (/api/next_video and friends) never goes through this package, since it
// must stay non-blocking after warmup.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Store is the minimal interface required for rate limiting. In
// production this is implemented by RedisStore; when REDIS_URL is unset,
// by MemoryStore.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Limiter performs rate limit checks against a Store.
type Limiter struct {
	store Store
}

// New creates a Limiter backed by the given Store. If store is nil, the
// Limiter is a no-op that always allows requests.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// AdminRateLimit is the production admin-endpoint rate limit: 30 requests
// per minute per client.
var AdminRateLimit = struct {
	Rate   int
	Window time.Duration
}{Rate: 30, Window: time.Minute}

// CheckAdmin enforces the admin rate limit for the given key (typically
// admin client IP). Returns (allowed, retryAfterSecs).
func (l *Limiter) CheckAdmin(ctx context.Context, key string) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rl:admin:%s", key), AdminRateLimit.Rate, int(AdminRateLimit.Window.Seconds()))
}

// ClientIP extracts the real client IP from a request, handling reverse
// proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i]
	}
	return addr
}

// Ping confirms the backing store still answers, via a throwaway
// Set/Get round trip. Used by the readiness probe; always nil when the
// Limiter has no store (fully in-memory/no-op mode has nothing to ping).
func (l *Limiter) Ping(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	const key = "rl:ping"
	if err := l.store.Set(ctx, key, "1", 5*time.Second); err != nil {
		return err
	}
	_, err := l.store.Get(ctx, key)
	return err
}

// check is the generic increment-and-check against a store key. Returns
// (allowed, retryAfterSecs). If store is nil, always returns (true, 0).
func (l *Limiter) check(ctx context.Context, key string, max int, ttlSecs int) (bool, int) {
	if l.store == nil {
		return true, 0
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		// Store error — fail open (allow request, don't block on infra issues).
		return true, 0
	}

	if count == 1 {
		l.store.Expire(ctx, key, time.Duration(ttlSecs)*time.Second)
	}

	if count > int64(max) {
		ttl, _ := l.store.TTL(ctx, key)
		retry := int(ttl.Seconds())
		if retry < 1 {
			retry = ttlSecs
		}
		return false, retry
	}

	return true, 0
}
