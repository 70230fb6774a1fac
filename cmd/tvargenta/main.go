// main.go — tvargenta server entrypoint.
// Wires the store, scheduler, switcher, and HTTP layer, then blocks until
// SIGTERM/SIGINT.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rsappia/tvargenta/internal/adminauth"
	"github.com/rsappia/tvargenta/internal/catalog"
	"github.com/rsappia/tvargenta/internal/config"
	"github.com/rsappia/tvargenta/internal/daily"
	"github.com/rsappia/tvargenta/internal/fairness"
	"github.com/rsappia/tvargenta/internal/httpapi"
	"github.com/rsappia/tvargenta/internal/lookup"
	"github.com/rsappia/tvargenta/internal/metadata"
	"github.com/rsappia/tvargenta/internal/obslog"
	"github.com/rsappia/tvargenta/internal/ratelimit"
	"github.com/rsappia/tvargenta/internal/shutdown"
	"github.com/rsappia/tvargenta/internal/store"
	"github.com/rsappia/tvargenta/internal/switcher"
	"github.com/rsappia/tvargenta/internal/trigger"
	"github.com/rsappia/tvargenta/internal/vcr"
	"github.com/rsappia/tvargenta/internal/weekly"
)

const adminTokenTTL = 2 * time.Hour
const shutdownDrain = 10 * time.Second
const metadataProbeInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Printf("sentry: init failed, continuing without crash reporting: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	mainLog := obslog.New("main")

	if err := os.MkdirAll(cfg.ContentRoot, 0o755); err != nil {
		mainLog.WithError(err).Fatal("content root unavailable")
	}

	st, err := store.New(cfg.ContentRoot)
	if err != nil {
		mainLog.WithError(err).Fatal("open store")
	}

	// catalogPtr holds the in-memory join of metadata.json + series.json
	// behind an atomic pointer so the hot path never blocks on a reload.
	var catalogPtr atomic.Pointer[catalog.Catalog]
	refreshCatalog := func() error {
		meta, err := st.LoadMetadata()
		if err != nil {
			return fmt.Errorf("load metadata: %w", err)
		}
		series, err := st.LoadSeries()
		if err != nil {
			return fmt.Errorf("load series: %w", err)
		}
		catalogPtr.Store(catalog.New(meta, series))
		return nil
	}
	if err := refreshCatalog(); err != nil {
		mainLog.WithError(err).Warn("initial catalog load failed, starting with an empty catalog")
		catalogPtr.Store(catalog.New(store.Metadata{}, store.SeriesSet{}))
	}
	catalogOf := func() *catalog.Catalog { return catalogPtr.Load() }

	lookupCache := lookup.NewCache()
	picker := fairness.New()
	sw := switcher.New(lookupCache, picker)

	vcrMirror := vcr.New(cfg.ContentRoot, obslog.New("vcr"))
	vcrControl := vcr.NewControl(cfg.ContentRoot)
	sw.AVInput = vcrMirror

	forceNext := trigger.New(cfg.ContentRoot, "trigger_skip.json")
	shouldReload := trigger.New(cfg.ContentRoot, "trigger_reload.json")

	var redisStore ratelimit.Store
	if cfg.RedisURL != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisURL})
		redisStore = ratelimit.NewRedisStore(rdb)
		mainLog.WithField("redis_url", cfg.RedisURL).Info("admin rate limiter backed by redis")
	} else {
		redisStore = ratelimit.NewMemoryStore()
		mainLog.Warn("REDIS_URL not set — admin rate limiter is in-process only")
	}
	limiter := ratelimit.New(redisStore)

	adminAuth := adminauth.New(cfg.AdminJWTSecret, adminTokenTTL)
	if cfg.AdminJWTPrevSecret != "" {
		adminAuth = adminAuth.WithPrevSecret(cfg.AdminJWTPrevSecret)
		mainLog.Info("admin auth validating tokens against both current and previous secret")
	}

	weeklyPlanner := weekly.New()
	dailyPlanner := daily.New()
	if cfg.SchedulerSeed != 0 {
		weeklyPlanner.Rand = rand.New(rand.NewSource(cfg.SchedulerSeed))
		dailyPlanner.Rand = rand.New(rand.NewSource(cfg.SchedulerSeed + 1))
	}

	bgCtx, cancelBg := context.WithCancel(context.Background())

	go runRecovered(obslog.New("weekly"), func() {
		weeklyPlanner.Run(bgCtx, st, catalogOf, obslog.New("weekly"))
	})
	go runRecovered(obslog.New("daily"), func() {
		dailyPlanner.Run(bgCtx, st, catalogOf, lookupCache.Swap, obslog.New("daily"))
	})
	go runRecovered(obslog.New("vcr"), func() {
		vcrMirror.Run(bgCtx)
	})
	go runMetadataProbe(bgCtx, st, cfg.ContentRoot, obslog.New("metadata"))

	srv := httpapi.New(
		st,
		sw,
		weeklyPlanner,
		dailyPlanner,
		catalogOf,
		vcrMirror,
		vcrControl,
		forceNext,
		shouldReload,
		adminAuth,
		cfg.AdminPasswordHash,
		limiter,
		obslog.New("httpapi"),
	)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	if err := shutdown.GracefulServe(httpServer, shutdownDrain, mainLog, cancelBg); err != nil {
		mainLog.WithError(err).Fatal("server exited with error")
	}
}

// runRecovered runs fn on the calling goroutine and reports a panic to
// Sentry instead of crashing the process; a background loop that dies
// silently would otherwise starve the schedule or VCR mirror with no one
// the wiser.
func runRecovered(log *logrus.Entry, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			log.WithField("panic", r).Error("background loop panicked and exited")
		}
	}()
	fn()
}

// runMetadataProbe periodically fills in missing duration/loudness data
// for videos added to the content root since the last probe pass.
func runMetadataProbe(ctx context.Context, st *store.Store, contentRoot string, log *logrus.Entry) {
	probe := func() {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				log.WithField("panic", r).Error("metadata: probe pass panicked")
			}
		}()
		if err := metadata.RefreshMissing(ctx, st, contentRoot, log); err != nil {
			log.WithError(err).Warn("metadata: probe pass failed")
		}
	}

	probe()
	ticker := time.NewTicker(metadataProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
