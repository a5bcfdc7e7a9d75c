package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stockscan/internal/model"
)

// Cached decorates a Fetcher with a read-through Redis cache. Cache failures
// are logged and fall through to the upstream — the cache is best-effort and
// never turns a good fetch into an error.
type Cached struct {
	upstream Fetcher
	client   *goredis.Client
	ttl      time.Duration
}

// CacheConfig configures the Redis-backed bar cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewCached creates the caching decorator and pings Redis once.
func NewCached(upstream Fetcher, cfg CacheConfig) (*Cached, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	log.Printf("[fetch-cache] connected to %s (ttl=%s)", cfg.Addr, ttl)
	return &Cached{upstream: upstream, client: client, ttl: ttl}, nil
}

func (c *Cached) Name() string { return c.upstream.Name() + "+cache" }

func cacheKey(symbol, period, interval string) string {
	return fmt.Sprintf("bars:%s:%s:%s", symbol, period, interval)
}

// History serves from the cache when possible, otherwise fetches upstream
// and populates the cache.
func (c *Cached) History(ctx context.Context, symbol, period, interval string) ([]model.Bar, error) {
	key := cacheKey(symbol, period, interval)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var bars []model.Bar
		if err := json.Unmarshal(raw, &bars); err == nil {
			return bars, nil
		}
		log.Printf("[fetch-cache] corrupt entry %s, refetching", key)
	} else if err != goredis.Nil {
		log.Printf("[fetch-cache] get %s: %v", key, err)
	}

	bars, err := c.upstream.History(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(bars); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Printf("[fetch-cache] set %s: %v", key, err)
		}
	}
	return bars, nil
}

// Client exposes the Redis client for health checks.
func (c *Cached) Client() *goredis.Client { return c.client }

// Close releases the Redis connection.
func (c *Cached) Close() error { return c.client.Close() }
