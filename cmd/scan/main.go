// Command scan runs a one-shot market scan and prints the JSON result.
//
//	scan -symbols AAPL,MSFT,GOOG -buy macd -sell kdj -period 1y -top 10
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"stockscan/config"
	"stockscan/internal/fetch"
	"stockscan/internal/scan"
	"stockscan/internal/sim"
	"stockscan/internal/universe"
)

func main() {
	log.SetFlags(0)

	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		symbols    = flag.String("symbols", "", "comma-separated symbols to scan (required)")
		buy        = flag.String("buy", "macd", "buy indicator: macd or kdj")
		sell       = flag.String("sell", "macd", "sell indicator: macd or kdj")
		period     = flag.String("period", "6mo", "history period (1mo, 3mo, 6mo, 1y, 2y)")
		interval   = flag.String("interval", "1d", "bar interval (1d, 1wk)")
		minTrades  = flag.Int("min-trades", 0, "minimum completed trades to include a symbol")
		topN       = flag.Int("top", 0, "truncate to the top N results (0 = all)")
		timeout    = flag.Duration("timeout", 30*time.Minute, "overall scan deadline")
	)
	flag.Parse()

	if *symbols == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("scan: config load failed: %v", err)
	}

	var list []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	var fetcher fetch.Fetcher = fetch.NewYahoo(cfg.Proxy)
	if cfg.Redis.Addr != "" {
		if cached, err := fetch.NewCached(fetcher, fetch.CacheConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Std(),
		}); err == nil {
			fetcher = cached
			defer cached.Close()
		}
	}

	simulator := sim.New(cfg.Trading.InitialBalance, cfg.Trading.CommissionRate)
	scanner := scan.New(fetcher, universe.Static(nil), simulator, nil, scan.Config{
		Workers:     cfg.Scan.Workers,
		BatchSize:   cfg.Scan.BatchSize,
		Delay:       cfg.Scan.RequestDelay.Std(),
		BatchPause:  cfg.Scan.BatchPause.Std(),
		TaskTimeout: cfg.Scan.TaskTimeout.Std(),
		MaxAttempts: cfg.Scan.MaxAttempts,
		RetryDelay:  cfg.Scan.RetryDelay.Std(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := scanner.Scan(ctx, scan.Request{
		BuyIndicator:  *buy,
		SellIndicator: *sell,
		Period:        *period,
		Interval:      *interval,
		MinTrades:     *minTrades,
		Symbols:       list,
		TopN:          *topN,
	})
	if err != nil {
		log.Fatalf("scan: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("scan: encode result: %v", err)
	}
}
