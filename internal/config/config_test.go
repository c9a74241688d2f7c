package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

engine:
  default_timeframe: 4h
  fetch_timeout: 3s
  cache_ttl: 2m

cache:
  type: redis
  redis:
    addr: "redis:6379"
    db: 2

sentiment:
  provider: static
  scores:
    AAPL: 7.5

watchlist:
  symbols: [AAPL, MSFT]
  interval: 5m

portfolio:
  - symbol: AAPL
    quantity: 10
    average_price: 150
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "4h", cfg.Engine.DefaultTimeframe)
	assert.Equal(t, 3*time.Second, cfg.Engine.FetchTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "static", cfg.Sentiment.Provider)
	assert.Equal(t, 7.5, cfg.Sentiment.Scores["aapl"])
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist.Symbols)
	assert.Equal(t, 5*time.Minute, cfg.Watchlist.Interval)
	assert.Equal(t, []position.Holding{{Symbol: "AAPL", Quantity: 10, AveragePrice: 150}}, cfg.Portfolio)

	// untouched sections keep their defaults
	assert.Equal(t, 250, cfg.Engine.HistoryPoints)
	assert.Equal(t, "sigma:", cfg.Cache.Redis.Prefix)
	assert.Equal(t, "yahoo", cfg.Collector.Name)
	assert.Equal(t, "1d", cfg.Watchlist.Timeframe)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SIGMA_TEST_API_KEY", "s3cret")
	path := writeConfig(t, `
server:
  api_key: "${SIGMA_TEST_API_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Server.APIKey)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, 20, cfg.Engine.ConditionWindow)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "neutral", cfg.Sentiment.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   *core.Error
	}{
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"unknown timeframe", func(c *Config) { c.Engine.DefaultTimeframe = "2d" }, core.ErrConfigInvalid},
		{"too few history points", func(c *Config) { c.Engine.HistoryPoints = 10 }, core.ErrConfigInvalid},
		{"zero fetch timeout", func(c *Config) { c.Engine.FetchTimeout = 0 }, core.ErrConfigInvalid},
		{"zero concurrency", func(c *Config) { c.Engine.BatchConcurrency = 0 }, core.ErrConfigInvalid},
		{"negative cache ttl", func(c *Config) { c.Engine.CacheTTL = -time.Second }, core.ErrConfigInvalid},
		{"unknown cache", func(c *Config) { c.Cache.Type = "memcached" }, core.ErrConfigInvalid},
		{"redis without addr", func(c *Config) { c.Cache.Type = "redis"; c.Cache.Redis.Addr = "" }, core.ErrConfigMissing},
		{"unknown sentiment", func(c *Config) { c.Sentiment.Provider = "llm" }, core.ErrConfigInvalid},
		{"sentiment out of range", func(c *Config) { c.Sentiment.Scores = map[string]float64{"aapl": 11} }, core.ErrConfigInvalid},
		{"news bad date", func(c *Config) {
			c.Sentiment.Provider = "news"
			c.Sentiment.News = []NewsConfig{{Symbols: []string{"AAPL"}, PublishedAt: "yesterday"}}
		}, core.ErrConfigInvalid},
		{"news polarity out of range", func(c *Config) {
			c.Sentiment.Provider = "news"
			c.Sentiment.News = []NewsConfig{{Symbols: []string{"AAPL"}, Sentiment: 2, PublishedAt: "2026-01-02"}}
		}, core.ErrConfigInvalid},
		{"missing collector", func(c *Config) { c.Collector.Name = "" }, core.ErrConfigMissing},
		{"negative rate limit", func(c *Config) { c.Collector.RateLimit = -1 }, core.ErrConfigInvalid},
		{"watchlist without interval", func(c *Config) {
			c.Watchlist.Symbols = []string{"AAPL"}
			c.Watchlist.Interval = 0
		}, core.ErrConfigInvalid},
		{"malformed holding", func(c *Config) {
			c.Portfolio = []position.Holding{{Symbol: "AAPL", Quantity: 5}}
		}, core.ErrConfigInvalid},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoad_NewsSentiment(t *testing.T) {
	path := writeConfig(t, `
sentiment:
  provider: news
  days: 7
  news:
    - title: "Record quarter"
      source: wire
      symbols: [AAPL]
      sentiment: 0.8
      published_at: "2026-01-02T15:04:05Z"
    - title: "Guidance cut"
      symbols: [MSFT, AAPL]
      sentiment: -0.4
      published_at: "2026-01-03"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "news", cfg.Sentiment.Provider)
	assert.Equal(t, 7, cfg.Sentiment.Days)

	items, err := cfg.Sentiment.NewsItems()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Record quarter", items[0].Title)
	assert.Equal(t, 0.8, items[0].Sentiment)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), items[0].PublishedAt)
	assert.Equal(t, []string{"MSFT", "AAPL"}, items[1].Symbols)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), items[1].PublishedAt)
}
