package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stockscan/config"
	"stockscan/internal/api"
	"stockscan/internal/fetch"
	"stockscan/internal/logger"
	"stockscan/internal/metrics"
	"stockscan/internal/scan"
	"stockscan/internal/scheduler"
	"stockscan/internal/sim"
	sqlitestore "stockscan/internal/store/sqlite"
	"stockscan/internal/universe"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[scanserver] starting...")

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[scanserver] config load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[scanserver] config invalid: %v", err)
	}

	logger.Init("scanserver", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	go func() {
		if err := metrics.Serve(cfg.Metrics.Addr, health); err != nil {
			log.Printf("[scanserver] metrics server stopped: %v", err)
		}
	}()

	// ---- Universe store ----
	os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755)
	store, err := sqlitestore.New(sqlitestore.StoreConfig{DBPath: cfg.Database.SQLitePath})
	if err != nil {
		log.Fatalf("[scanserver] sqlite init failed: %v", err)
	}
	defer store.Close()
	resolver := universe.NewResolver(store)
	log.Println("[scanserver] universe store ready")

	// ---- Fetcher (with optional Redis cache) ----
	var fetcher fetch.Fetcher = fetch.NewYahoo(cfg.Proxy)
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		cached, err := fetch.NewCached(fetcher, fetch.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Std(),
		})
		if err != nil {
			log.Printf("[scanserver] WARNING: redis init failed: %v (continuing without cache)", err)
		} else {
			fetcher = cached
			redisClient = cached.Client()
			defer cached.Close()
		}
	}
	log.Printf("[scanserver] fetcher ready: %s", fetcher.Name())

	health.StartLivenessChecker(ctx, redisClient, store.DB(), 10*time.Second)

	// ---- Scanner ----
	simulator := sim.New(cfg.Trading.InitialBalance, cfg.Trading.CommissionRate)
	scanner := scan.New(fetcher, resolver, simulator, prom, scan.Config{
		Workers:     cfg.Scan.Workers,
		BatchSize:   cfg.Scan.BatchSize,
		Delay:       cfg.Scan.RequestDelay.Std(),
		BatchPause:  cfg.Scan.BatchPause.Std(),
		TaskTimeout: cfg.Scan.TaskTimeout.Std(),
		MaxAttempts: cfg.Scan.MaxAttempts,
		RetryDelay:  cfg.Scan.RetryDelay.Std(),
	})

	// ---- Universe size gauge ----
	updateUniverseGauge(ctx, prom, resolver)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updateUniverseGauge(ctx, prom, resolver)
			}
		}
	}()

	// ---- Scheduler: periodic universe refresh ----
	sched := scheduler.New(ctx, scanner, universe.NewRefresher(store, fetch.NewYahooQuote(cfg.Proxy)))
	if err := sched.RegisterRefresh(cfg.Schedule.UniverseRefreshCron); err != nil {
		log.Printf("[scanserver] WARNING: refresh job not registered: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// ---- HTTP API ----
	apiSrv := &api.Server{
		Scanner:   scanner,
		Fetcher:   fetcher,
		Simulator: simulator,
		Resolver:  resolver,
	}
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiSrv.NewRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // a full-universe scan takes a while
	}
	go func() {
		log.Printf("[scanserver] API listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[scanserver] API server failed: %v", err)
		}
	}()

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[scanserver] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	log.Println("[scanserver] shutdown complete.")
}

// updateUniverseGauge refreshes the per-category symbol count gauge.
func updateUniverseGauge(ctx context.Context, prom *metrics.Metrics, resolver *universe.Resolver) {
	summary, err := resolver.Summarize(ctx)
	if err != nil {
		log.Printf("[scanserver] universe summary failed: %v", err)
		return
	}
	for category, n := range summary.Categories {
		prom.UniverseSize.WithLabelValues(category).Set(float64(n))
	}
}
