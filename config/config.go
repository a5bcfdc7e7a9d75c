// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML strings like "250ms" or "5s" parse.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Trading struct {
		InitialBalance float64 `yaml:"initial_balance"`
		CommissionRate float64 `yaml:"commission_rate"`
	} `yaml:"trading"`
	Scan struct {
		Workers      int      `yaml:"workers"`
		BatchSize    int      `yaml:"batch_size"`
		RequestDelay Duration `yaml:"request_delay"`
		BatchPause   Duration `yaml:"batch_pause"`
		TaskTimeout  Duration `yaml:"task_timeout"`
		MaxAttempts  int      `yaml:"max_attempts"`
		RetryDelay   Duration `yaml:"retry_delay"`
	} `yaml:"scan"`
	Redis struct {
		Addr     string   `yaml:"addr"` // empty disables the bar cache
		Password string   `yaml:"password"`
		DB       int      `yaml:"db"`
		TTL      Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Schedule struct {
		UniverseRefreshCron string `yaml:"universe_refresh_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.InitialBalance = f
		}
	}
	if v := os.Getenv("COMMISSION_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.CommissionRate = f
		}
	}
	if v := os.Getenv("UNIVERSE_REFRESH_CRON"); v != "" {
		cfg.Schedule.UniverseRefreshCron = v
	}

	// Defaults
	if cfg.Trading.InitialBalance == 0 {
		cfg.Trading.InitialBalance = 10000
	}
	if cfg.Trading.CommissionRate == 0 {
		cfg.Trading.CommissionRate = 0.001 // 0.1% per trade
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 20
	}
	if cfg.Scan.BatchSize == 0 {
		cfg.Scan.BatchSize = 50
	}
	if cfg.Scan.RequestDelay == 0 {
		cfg.Scan.RequestDelay = Duration(100 * time.Millisecond)
	}
	if cfg.Scan.BatchPause == 0 {
		cfg.Scan.BatchPause = Duration(5 * time.Second)
	}
	if cfg.Scan.TaskTimeout == 0 {
		cfg.Scan.TaskTimeout = Duration(30 * time.Second)
	}
	if cfg.Scan.MaxAttempts == 0 {
		cfg.Scan.MaxAttempts = 3
	}
	if cfg.Scan.RetryDelay == 0 {
		cfg.Scan.RetryDelay = Duration(2 * time.Second)
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = Duration(15 * time.Minute)
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/universe.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Schedule.UniverseRefreshCron == "" {
		cfg.Schedule.UniverseRefreshCron = "0 0 6 * * 6" // Saturday 06:00
	}

	return cfg, nil
}

// Validate checks for nonsensical values.
func (c *Config) Validate() error {
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be positive")
	}
	if c.Trading.CommissionRate < 0 || c.Trading.CommissionRate >= 1 {
		return fmt.Errorf("trading.commission_rate must be in [0,1)")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Scan.BatchSize < 1 {
		return fmt.Errorf("scan.batch_size must be at least 1")
	}
	return nil
}
