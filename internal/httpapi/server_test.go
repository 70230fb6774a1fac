package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rsappia/tvargenta/internal/adminauth"
	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/daily"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/httpapi"
	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/ratelimit"
	"github.com/rsappia/tvargenta/internal/store"
	"github.com/rsappia/tvargenta/internal/switcher"
	"github.com/rsappia/tvargenta/internal/testutil"
	"github.com/rsappia/tvargenta/internal/trigger"
	"github.com/rsappia/tvargenta/internal/vcr"
	"github.com/rsappia/tvargenta/internal/weekly"
)

const testSecret = "a-test-secret-at-least-32-bytes-long!!"

func newTestServer(t *testing.T) (*httpapi.Server, *store.Store, *catalog.Catalog) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	meta, series, channels := testutil.SeedCatalog()
	if err := st.SaveMetadata(meta); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}
	if err := st.SaveSeries(series); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	if err := st.SaveChannels(channels); err != nil {
		t.Fatalf("seed channels: %v", err)
	}
	if err := st.SaveCanalActivo(store.CanalActivo{CanalID: "02"}); err != nil {
		t.Fatalf("seed active channel: %v", err)
	}

	cat := catalog.New(meta, series)
	catalogOf := func() *catalog.Catalog { return cat }

	lookupCache := lookup.NewCache()
	picker := fairness.New()
	sw := switcher.New(lookupCache, picker)

	mirror := vcr.New(dir, nil)
	ctrl := vcr.NewControl(dir)
	forceNext := trigger.New(dir, "trigger_skip.json")
	shouldReload := trigger.New(dir, "trigger_reload.json")

	auth := adminauth.New(testSecret, time.Hour)
	hash, err := adminauth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	limiter := ratelimit.New(nil)

	srv := httpapi.New(st, sw, weekly.New(), daily.New(), catalogOf, mirror, ctrl, forceNext, shouldReload, auth, hash, limiter, nil)
	return srv, st, cat
}

func mux(srv *httpapi.Server) http.Handler {
	m := http.NewServeMux()
	srv.RegisterRoutes(m)
	return m
}

func TestNextVideoLibraryChannel(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.GetJSON(t, h, "/api/next_video")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	testutil.DecodeJSON(t, rr, &resp)
	if resp["video_id"] == "" || resp["video_id"] == nil {
		t.Errorf("expected a video_id, got %+v", resp)
	}
	if resp["modo"] != "library" {
		t.Errorf("expected modo=library, got %+v", resp["modo"])
	}
}

func TestNextVideoUnknownChannelFallsBackToTestPattern(t *testing.T) {
	srv, st, _ := newTestServer(t)
	if err := st.SaveCanalActivo(store.CanalActivo{CanalID: "99"}); err != nil {
		t.Fatalf("set active channel: %v", err)
	}
	h := mux(srv)

	rr := testutil.GetJSON(t, h, "/api/next_video")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	testutil.DecodeJSON(t, rr, &resp)
	if resp["video_url"] != "/videos/system/test_pattern.mp4" {
		t.Errorf("expected test pattern fallback, got %+v", resp)
	}
}

func TestPlayedBumpsPlayCount(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/played", map[string]string{"video_id": "vhs-001"})
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	testutil.DecodeJSON(t, rr, &resp)
	if resp["plays"] != float64(1) {
		t.Errorf("expected plays=1, got %+v", resp["plays"])
	}

	rr2 := testutil.PostJSON(t, h, "/api/played", map[string]string{"video_id": "vhs-001"})
	var resp2 map[string]interface{}
	testutil.DecodeJSON(t, rr2, &resp2)
	if resp2["plays"] != float64(2) {
		t.Errorf("expected plays=2 after second confirmation, got %+v", resp2["plays"])
	}
}

func TestPlayedRejectsMissingVideoID(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/played", map[string]string{})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestShouldReloadFalseBeforeAnyTrigger(t *testing.T) {
	srv, st, _ := newTestServer(t)
	_ = st
	h := mux(srv)

	rr := testutil.GetJSON(t, h, "/api/should_reload")
	var resp map[string]bool
	testutil.DecodeJSON(t, rr, &resp)
	if resp["should_reload"] {
		t.Fatalf("expected no pending reload before any trigger")
	}
}

func TestSetCanalActivoRejectsUnknownChannel(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/set_canal_activo", map[string]string{"canal_id": "does-not-exist"})
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestSetCanalActivoSwitchesChannel(t *testing.T) {
	srv, st, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/set_canal_activo", map[string]string{"canal_id": "01"})
	testutil.AssertStatus(t, rr, http.StatusOK)

	active, err := st.LoadCanalActivo()
	if err != nil {
		t.Fatalf("load active channel: %v", err)
	}
	if active.CanalID != "01" {
		t.Errorf("expected active channel 01, got %q", active.CanalID)
	}
}

func TestAdminScheduleRegenerateRequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/admin/schedule/regenerate", map[string]string{})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAdminLoginAndRegenerate(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	loginRR := testutil.PostJSON(t, h, "/api/admin/login", map[string]string{"password": "correct-horse"})
	testutil.AssertStatus(t, loginRR, http.StatusOK)
	var loginResp map[string]string
	testutil.DecodeJSON(t, loginRR, &loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("expected a non-empty admin token")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/schedule/regenerate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rr.Code, rr.Body.String())
	}
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.PostJSON(t, h, "/api/admin/login", map[string]string{"password": "wrong"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestVCRStateReflectsNoTapeByDefault(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)

	rr := testutil.GetJSON(t, h, "/api/vcr/state")
	testutil.AssertStatus(t, rr, http.StatusOK)
	var resp map[string]interface{}
	testutil.DecodeJSON(t, rr, &resp)
	if resp["inserted"] != false {
		t.Errorf("expected inserted=false, got %+v", resp)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)
	rr := testutil.GetJSON(t, h, "/healthz")
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestReadyReportsOKWithReachableContentRoot(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)
	rr := testutil.GetJSON(t, h, "/ready")
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestEveryResponseCarriesARequestID(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := mux(srv)
	rr := testutil.GetJSON(t, h, "/healthz")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}
