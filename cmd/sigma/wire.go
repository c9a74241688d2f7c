package main

import (
	"fmt"

	"github.com/newthinker/sigma/internal/cache"
	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/collector/binance"
	"github.com/newthinker/sigma/internal/collector/yahoo"
	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/engine"
	"github.com/newthinker/sigma/internal/factor"
	"github.com/newthinker/sigma/internal/logger"
	"github.com/newthinker/sigma/internal/marketdata"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/storage/signal"
	"go.uber.org/zap"
)

// components is everything the commands share.
type components struct {
	engine  *engine.Engine
	store   *signal.MemoryStore
	cache   cache.Cache
	metrics *metrics.Registry
}

// Close releases the cache backend.
func (c *components) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// loadConfig reads and validates the config file, or the defaults when none
// is given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logger.NewWithLevel(level, debug || cfg.Log.Development)
}

func newCache(cfg config.CacheConfig) cache.Cache {
	switch cfg.Type {
	case "redis":
		return cache.NewRedisCache(cfg.Redis)
	case "none":
		return nil
	default:
		return cache.NewMemoryCache(cfg.MaxSize)
	}
}

func newSentiment(cfg config.SentimentConfig) (factor.SentimentProvider, error) {
	switch cfg.Provider {
	case "static":
		return factor.NewStaticSentiment(cfg.Scores, cfg.Default), nil
	case "news":
		items, err := cfg.NewsItems()
		if err != nil {
			return nil, err
		}
		return factor.NewNewsSentiment(factor.NewStaticNewsProvider(items), cfg.Days), nil
	default:
		return factor.NeutralSentiment{}, nil
	}
}

func newCollectors(cfg config.CollectorConfig) *collector.Registry {
	cc := collector.Config{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		BaseURL:   cfg.BaseURL,
	}
	reg := collector.NewRegistry()
	reg.Register(yahoo.New(cc))
	reg.Register(binance.New(cc))
	return reg
}

// buildComponents wires the engine from cfg. reg may be nil.
func buildComponents(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) (*components, error) {
	collectors := newCollectors(cfg.Collector)
	source, ok := collectors.Get(cfg.Collector.Name)
	if !ok {
		return nil, fmt.Errorf("unknown collector %q (available: %v)", cfg.Collector.Name, collectors.Names())
	}

	provider := marketdata.New(source,
		marketdata.WithLogger(log),
		marketdata.WithPoints(cfg.Engine.HistoryPoints),
	)

	sentiment, err := newSentiment(cfg.Sentiment)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}
	store := signal.NewMemoryStore(cfg.History.MaxSize)
	c := newCache(cfg.Cache)

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithSentiment(sentiment),
		engine.WithRecorder(store),
		engine.WithFetchTimeout(cfg.Engine.FetchTimeout),
		engine.WithConcurrency(cfg.Engine.BatchConcurrency),
		engine.WithHistoryPoints(cfg.Engine.HistoryPoints),
		engine.WithDefaultTimeframe(cfg.Engine.DefaultTimeframe),
		engine.WithConditionWindow(cfg.Engine.ConditionWindow),
		engine.WithBreaker(engine.BreakerSettings{
			MaxFailures: cfg.Breaker.MaxFailures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		}),
	}
	if c != nil {
		opts = append(opts, engine.WithCache(c, cfg.Engine.CacheTTL))
	}
	if reg != nil {
		opts = append(opts, engine.WithMetrics(reg))
	}

	log.Debug("engine wired",
		zap.String("collector", source.Name()),
		zap.String("cache", cfg.Cache.Type),
		zap.String("sentiment", cfg.Sentiment.Provider),
	)

	return &components{
		engine:  engine.New(provider, opts...),
		store:   store,
		cache:   c,
		metrics: reg,
	}, nil
}
