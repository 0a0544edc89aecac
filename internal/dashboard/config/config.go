package config

import (
	"time"

	"stock-dashboard/pkg/config"
)

// Watchlist holds defaults for the in-memory watchlist state.
type Watchlist struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
}

// Eastmoney holds the configuration for the market-data endpoints.
type Eastmoney struct {
	KlineBaseURL        string        `mapstructure:"kline_base_url"`
	NewsBaseURL         string        `mapstructure:"news_base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	NewsTimeout         time.Duration `mapstructure:"news_timeout"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	KlineLimit          int           `mapstructure:"kline_limit"`
	MaxConcurrentCards  int           `mapstructure:"max_concurrent_cards"`
}

// Prefetch holds the optional favorites chart warm-up schedule.
type Prefetch struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Config holds the full configuration for the dashboard service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	API       config.API      `mapstructure:"api"`
	Watchlist Watchlist       `mapstructure:"watchlist"`
	Eastmoney Eastmoney       `mapstructure:"eastmoney"`
	Prefetch  Prefetch        `mapstructure:"prefetch"`
}

// Load reads the service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
