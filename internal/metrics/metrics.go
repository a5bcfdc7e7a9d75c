// Package metrics exposes Prometheus metrics and a health endpoint for the
// scanner service.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scan engine.
type Metrics struct {
	ScansTotal       prometheus.Counter
	SymbolsSucceeded prometheus.Counter
	SymbolsFailed    prometheus.Counter
	FetchRetries     prometheus.Counter
	BatchesTotal     prometheus.Counter
	FetchDur         prometheus.Histogram
	ScanDur          prometheus.Histogram
	UniverseSize     *prometheus.GaugeVec // labels: category
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_scans_total",
			Help: "Total market scans executed",
		}),
		SymbolsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_symbols_succeeded_total",
			Help: "Symbols that produced an accepted simulation result",
		}),
		SymbolsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_symbols_failed_total",
			Help: "Symbols that failed fetch/simulate or missed min_trades",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_fetch_retries_total",
			Help: "Fetch attempts retried after throttle-shaped failures",
		}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_batches_total",
			Help: "Symbol batches processed",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_fetch_duration_seconds",
			Help:    "Bar fetch latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_duration_seconds",
			Help:    "End-to-end scan latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		UniverseSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scanner_universe_symbols",
			Help: "Symbols known per market-cap category",
		}, []string{"category"}),
	}

	prometheus.MustRegister(
		m.ScansTotal,
		m.SymbolsSucceeded,
		m.SymbolsFailed,
		m.FetchRetries,
		m.BatchesTotal,
		m.FetchDur,
		m.ScanDur,
		m.UniverseSize,
	)

	return m
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected  bool
	SQLiteOK        bool
	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), SQLiteOK: true, RedisConnected: true}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
// Either client may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		status = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	body := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(body)
}

// Serve runs an HTTP server exposing /metrics and /healthz. Blocks.
func Serve(addr string, health *HealthStatus) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.Handle("/healthz", health)
	}
	log.Printf("[metrics] serving on %s", addr)
	return http.ListenAndServe(addr, mux)
}
