package scan

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stockscan/internal/fetch"
	"stockscan/internal/logger"
	"stockscan/internal/metrics"
	"stockscan/internal/signal"
	"stockscan/internal/sim"
)

// SymbolResolver maps an explicit symbol list or market-cap category tags to
// a concrete candidate set. With neither given it returns a default universe.
type SymbolResolver interface {
	Resolve(ctx context.Context, symbols, categories []string) ([]string, error)
}

// Config tunes the Scanner. Zero fields fall back to defaults.
type Config struct {
	Workers     int           // default-tier worker count
	BatchSize   int           // default-tier batch size
	Delay       time.Duration // default-tier pre-fetch pacing
	BatchPause  time.Duration // cool-down between batches
	TaskTimeout time.Duration // per-symbol time bound
	MaxAttempts int           // fetch attempts for throttle-shaped failures
	RetryDelay  time.Duration // backoff between attempts
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 20
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Delay <= 0 {
		c.Delay = 100 * time.Millisecond
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 5 * time.Second
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// Scanner runs scans. Symbol tasks share only read-only configuration; the
// result list and counters are mutated exclusively by the orchestrating
// goroutine as tasks complete.
type Scanner struct {
	fetcher   fetch.Fetcher
	resolver  SymbolResolver
	simulator *sim.Simulator
	metrics   *metrics.Metrics // optional
	cfg       Config
}

// New creates a Scanner. metrics may be nil.
func New(fetcher fetch.Fetcher, resolver SymbolResolver, simulator *sim.Simulator, m *metrics.Metrics, cfg Config) *Scanner {
	cfg.applyDefaults()
	return &Scanner{
		fetcher:   fetcher,
		resolver:  resolver,
		simulator: simulator,
		metrics:   m,
		cfg:       cfg,
	}
}

// Scan executes the request. Per-symbol failures are folded into the failed
// counter; only invalid indicators or an empty candidate set abort the call.
func (s *Scanner) Scan(ctx context.Context, req Request) (*Response, error) {
	buyInd := strings.ToLower(req.BuyIndicator)
	sellInd := strings.ToLower(req.SellIndicator)
	if !signal.ValidIndicator(buyInd) {
		return nil, fmt.Errorf("%w: unknown buy indicator %q", ErrInvalidParameter, req.BuyIndicator)
	}
	if !signal.ValidIndicator(sellInd) {
		return nil, fmt.Errorf("%w: unknown sell indicator %q", ErrInvalidParameter, req.SellIndicator)
	}

	period := req.Period
	if period == "" {
		period = "6mo"
	}
	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}

	symbols, err := s.resolver.Resolve(ctx, req.Symbols, req.MarketCapCategories)
	if err != nil {
		return nil, fmt.Errorf("resolve symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil, ErrEmptyCandidateSet
	}

	sigCfg := signal.NewConfig(buyInd, sellInd)
	if req.BuyThreshold != nil {
		sigCfg.BuyThreshold = *req.BuyThreshold
	}
	if req.SellThreshold != nil {
		sigCfg.SellThreshold = *req.SellThreshold
	}

	if s.metrics != nil {
		s.metrics.ScansTotal.Inc()
		start := time.Now()
		defer func() {
			s.metrics.ScanDur.Observe(time.Since(start).Seconds())
		}()
	}

	tier := TierFor(len(symbols), Tier{
		Workers:   s.cfg.Workers,
		BatchSize: s.cfg.BatchSize,
		Delay:     s.cfg.Delay,
	})
	limiter := rate.NewLimiter(rate.Every(tier.Delay), 1)

	ctx = logger.WithScanID(ctx, logger.GenerateScanID("scan", time.Now()))
	log.Printf("[scan] %s: scanning %d symbols (workers=%d batch=%d delay=%s)",
		logger.ScanID(ctx), len(symbols), tier.Workers, tier.BatchSize, tier.Delay)

	var (
		results    []StockResult
		successful int
		failed     int
	)
	for start := 0; start < len(symbols); start += tier.BatchSize {
		end := start + tier.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batchResults, ok, bad := s.scanBatch(ctx, symbols[start:end], period, interval, sigCfg, tier, limiter, req.MinTrades)
		results = append(results, batchResults...)
		successful += ok
		failed += bad
		if s.metrics != nil {
			s.metrics.BatchesTotal.Inc()
		}

		if end < len(symbols) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}

	results = applyExcludeRules(results, req.ExcludeRules)
	applySortRules(results, req.SortRules)
	if req.TopN > 0 && len(results) > req.TopN {
		results = results[:req.TopN]
	}

	topStocks := make([]string, len(results))
	for i := range results {
		topStocks[i] = results[i].Symbol
	}

	return &Response{
		Summary: Summary{
			TotalScanned: len(symbols),
			Successful:   successful,
			Failed:       failed,
			AfterFilters: len(results),
			Criteria: Criteria{
				BuyIndicator:  buyInd,
				SellIndicator: sellInd,
				Period:        period,
				Interval:      interval,
				MinTrades:     req.MinTrades,
			},
		},
		TopStocks:  topStocks,
		TopResults: results,
	}, nil
}

type taskOutcome struct {
	symbol string
	result *StockResult
	err    error
}

// scanBatch runs one batch against a bounded worker pool and collects
// outcomes in completion order. A per-symbol timeout or failure never aborts
// the batch.
func (s *Scanner) scanBatch(ctx context.Context, symbols []string, period, interval string,
	sigCfg signal.Config, tier Tier, limiter *rate.Limiter, minTrades int) ([]StockResult, int, int) {

	sem := make(chan struct{}, tier.Workers)
	out := make(chan taskOutcome, len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			taskCtx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
			defer cancel()

			res, err := s.scanSymbol(taskCtx, symbol, period, interval, sigCfg, limiter)
			out <- taskOutcome{symbol: symbol, result: res, err: err}
		}()
	}

	var (
		results    []StockResult
		successful int
		failed     int
	)
	for range symbols {
		o := <-out
		if o.err != nil {
			log.Printf("[scan] %s: %s failed: %v", logger.ScanID(ctx), o.symbol, o.err)
			failed++
			if s.metrics != nil {
				s.metrics.SymbolsFailed.Inc()
			}
			continue
		}
		if o.result.Summary.TotalTrades >= minTrades {
			results = append(results, *o.result)
			successful++
			if s.metrics != nil {
				s.metrics.SymbolsSucceeded.Inc()
			}
		} else {
			// Too few trades is not an error, but the symbol does not count
			// as a successful scan either.
			failed++
			if s.metrics != nil {
				s.metrics.SymbolsFailed.Inc()
			}
		}
	}
	return results, successful, failed
}

// scanSymbol is the retrying fetch-and-simulate task for one symbol. Only
// throttle-shaped upstream failures are retried; anything else is terminal.
func (s *Scanner) scanSymbol(ctx context.Context, symbol, period, interval string,
	sigCfg signal.Config, limiter *rate.Limiter) (*StockResult, error) {

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		fetchStart := time.Now()
		bars, err := s.fetcher.History(ctx, symbol, period, interval)
		if s.metrics != nil {
			s.metrics.FetchDur.Observe(time.Since(fetchStart).Seconds())
		}
		if err != nil {
			if !retryable(err) {
				return nil, fmt.Errorf("fetch %s: %w", symbol, err)
			}
			lastErr = err
			if attempt < s.cfg.MaxAttempts {
				if s.metrics != nil {
					s.metrics.FetchRetries.Inc()
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(s.cfg.RetryDelay):
				}
			}
			continue
		}

		if len(bars) < sim.MinBars {
			return nil, fmt.Errorf("insufficient data for %s: %d bars", symbol, len(bars))
		}

		res, err := s.simulator.Run(bars, sigCfg)
		if err != nil {
			return nil, fmt.Errorf("simulate %s: %w", symbol, err)
		}
		res.Trades = nil // strip the trade log before aggregation

		return &StockResult{Symbol: strings.ToUpper(symbol), Result: *res}, nil
	}
	return nil, fmt.Errorf("fetch %s: giving up after %d attempts: %w", symbol, s.cfg.MaxAttempts, lastErr)
}

// retryable matches throttle-shaped upstream failures by their description.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429")
}
