package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/cache"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/factor"
	"github.com/newthinker/sigma/internal/indicator"
	"github.com/newthinker/sigma/internal/marketdata"
	"github.com/newthinker/sigma/internal/position"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Engine    EngineConfig       `mapstructure:"engine"`
	Cache     CacheConfig        `mapstructure:"cache"`
	Sentiment SentimentConfig    `mapstructure:"sentiment"`
	Collector CollectorConfig    `mapstructure:"collector"`
	Breaker   BreakerConfig      `mapstructure:"breaker"`
	Watchlist WatchlistConfig    `mapstructure:"watchlist"`
	Portfolio []position.Holding `mapstructure:"portfolio"`
	History   HistoryConfig      `mapstructure:"history"`
	Metrics   MetricsConfig      `mapstructure:"metrics"`
	Log       LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// EngineConfig holds signal engine settings.
type EngineConfig struct {
	DefaultTimeframe string        `mapstructure:"default_timeframe"`
	HistoryPoints    int           `mapstructure:"history_points"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	ConditionWindow  int           `mapstructure:"condition_window"`
}

// CacheConfig selects the signal cache backend.
type CacheConfig struct {
	Type    string            `mapstructure:"type"` // "memory", "redis" or "none"
	MaxSize int               `mapstructure:"max_size"`
	Redis   cache.RedisConfig `mapstructure:"redis"`
}

// SentimentConfig selects the sentiment source.
type SentimentConfig struct {
	Provider string             `mapstructure:"provider"` // "neutral", "static" or "news"
	Default  float64            `mapstructure:"default"`
	Scores   map[string]float64 `mapstructure:"scores"`
	Days     int                `mapstructure:"days"`
	News     []NewsConfig       `mapstructure:"news"`
}

// NewsConfig is a news item scored by the "news" sentiment provider.
type NewsConfig struct {
	Title       string   `mapstructure:"title"`
	Source      string   `mapstructure:"source"`
	Symbols     []string `mapstructure:"symbols"`
	Sentiment   float64  `mapstructure:"sentiment"`   // polarity in [-1, 1]
	PublishedAt string   `mapstructure:"published_at"` // RFC3339 or 2006-01-02
}

// NewsItems converts the configured news into factor news items.
func (c SentimentConfig) NewsItems() ([]factor.NewsItem, error) {
	items := make([]factor.NewsItem, 0, len(c.News))
	for i, n := range c.News {
		published, err := parseDate(n.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("news[%d]: invalid published_at %q", i, n.PublishedAt)
		}
		if n.Sentiment < -1 || n.Sentiment > 1 {
			return nil, fmt.Errorf("news[%d]: sentiment must be between -1 and 1, got %g", i, n.Sentiment)
		}
		if len(n.Symbols) == 0 {
			return nil, fmt.Errorf("news[%d]: at least one symbol required", i)
		}
		items = append(items, factor.NewsItem{
			Title:       n.Title,
			Source:      n.Source,
			Symbols:     n.Symbols,
			Sentiment:   n.Sentiment,
			PublishedAt: published,
		})
	}
	return items, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// CollectorConfig holds market data collector settings.
type CollectorConfig struct {
	Name      string        `mapstructure:"name"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// BreakerConfig holds the market data circuit breaker settings.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// WatchlistConfig drives the periodic signal loop.
type WatchlistConfig struct {
	Symbols   []string      `mapstructure:"symbols"`
	Timeframe string        `mapstructure:"timeframe"`
	Interval  time.Duration `mapstructure:"interval"`
}

// HistoryConfig bounds the in-memory signal history.
type HistoryConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from file on top of Defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Engine: EngineConfig{
			DefaultTimeframe: "1d",
			HistoryPoints:    250,
			FetchTimeout:     10 * time.Second,
			BatchConcurrency: 8,
			CacheTTL:         5 * time.Minute,
			ConditionWindow:  20,
		},
		Cache: CacheConfig{
			Type:    "memory",
			MaxSize: 1000,
			Redis: cache.RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "sigma:",
			},
		},
		Sentiment: SentimentConfig{
			Provider: "neutral",
			Default:  5,
			Days:     3,
		},
		Collector: CollectorConfig{
			Name:      "yahoo",
			Timeout:   10 * time.Second,
			RateLimit: 2,
			Burst:     4,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Watchlist: WatchlistConfig{
			Timeframe: "1d",
			Interval:  15 * time.Minute,
		},
		History: HistoryConfig{
			MaxSize: 1000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Engine validation
	if _, ok := marketdata.BarDuration(c.Engine.DefaultTimeframe); !ok {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unsupported default_timeframe %q", c.Engine.DefaultTimeframe))
	}
	if c.Engine.HistoryPoints < indicator.MinSnapshotBars {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history_points must be at least %d, got %d", indicator.MinSnapshotBars, c.Engine.HistoryPoints))
	}
	if c.Engine.FetchTimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fetch_timeout must be positive, got %s", c.Engine.FetchTimeout))
	}
	if c.Engine.BatchConcurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("batch_concurrency must be at least 1, got %d", c.Engine.BatchConcurrency))
	}
	if c.Engine.CacheTTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache_ttl cannot be negative, got %s", c.Engine.CacheTTL))
	}

	// Cache validation
	switch c.Cache.Type {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}

	// Sentiment validation
	switch c.Sentiment.Provider {
	case "neutral", "static":
	case "news":
		if _, err := c.Sentiment.NewsItems(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown sentiment provider %q", c.Sentiment.Provider))
	}
	for symbol, score := range c.Sentiment.Scores {
		if score < 0 || score > 10 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("sentiment score for %s must be between 0 and 10, got %g", symbol, score))
		}
	}

	// Collector validation
	if c.Collector.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("collector name required"))
	}
	if c.Collector.RateLimit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_limit cannot be negative, got %g", c.Collector.RateLimit))
	}

	// Watchlist validation
	if len(c.Watchlist.Symbols) > 0 {
		if _, ok := marketdata.BarDuration(c.Watchlist.Timeframe); !ok {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unsupported watchlist timeframe %q", c.Watchlist.Timeframe))
		}
		if c.Watchlist.Interval <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("watchlist interval must be positive, got %s", c.Watchlist.Interval))
		}
	}

	// Portfolio validation
	for _, h := range c.Portfolio {
		if h.Symbol == "" || h.Quantity < 0 || (h.Quantity > 0 && h.AveragePrice <= 0) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("malformed portfolio holding %+v", h))
		}
	}

	// Log validation
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	return nil
}
