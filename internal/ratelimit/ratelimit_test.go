package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rsappia/tvargenta/internal/ratelimit"
)

func TestCheckAdminAllowsUnderLimit(t *testing.T) {
	l := ratelimit.New(ratelimit.NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < ratelimit.AdminRateLimit.Rate; i++ {
		ok, _ := l.CheckAdmin(ctx, "1.2.3.4")
		if !ok {
			t.Fatalf("request %d unexpectedly denied", i)
		}
	}
}

func TestCheckAdminDeniesOverLimit(t *testing.T) {
	l := ratelimit.New(ratelimit.NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < ratelimit.AdminRateLimit.Rate; i++ {
		l.CheckAdmin(ctx, "1.2.3.4")
	}
	ok, retry := l.CheckAdmin(ctx, "1.2.3.4")
	if ok {
		t.Fatal("expected request beyond the limit to be denied")
	}
	if retry <= 0 {
		t.Errorf("expected positive retry-after, got %d", retry)
	}
}

func TestCheckAdminKeysAreIndependent(t *testing.T) {
	l := ratelimit.New(ratelimit.NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < ratelimit.AdminRateLimit.Rate; i++ {
		l.CheckAdmin(ctx, "1.2.3.4")
	}
	ok, _ := l.CheckAdmin(ctx, "5.6.7.8")
	if !ok {
		t.Fatal("a different client key should not be affected by another key's limit")
	}
}

func TestNilStoreAlwaysAllows(t *testing.T) {
	l := ratelimit.New(nil)
	ctx := context.Background()
	for i := 0; i < ratelimit.AdminRateLimit.Rate+10; i++ {
		ok, _ := l.CheckAdmin(ctx, "1.2.3.4")
		if !ok {
			t.Fatalf("nil store should never deny, failed at request %d", i)
		}
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	r.RemoteAddr = "127.0.0.1:54321"
	if got := ratelimit.ClientIP(r); got != "9.9.9.9" {
		t.Errorf("expected 9.9.9.9, got %q", got)
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:54321"
	if got := ratelimit.ClientIP(r); got != "203.0.113.5" {
		t.Errorf("expected 203.0.113.5, got %q", got)
	}
}
