package engine

import (
	"time"

	"github.com/newthinker/sigma/internal/cache"
	"github.com/newthinker/sigma/internal/factor"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/synthesizer"
	"go.uber.org/zap"
)

// Engine defaults.
const (
	DefaultTimeframe     = "1d"
	DefaultHistoryPoints = 250
	DefaultFetchTimeout  = 10 * time.Second
	DefaultConcurrency   = 8
	DefaultCacheTTL      = cache.DefaultTTL
)

// BreakerSettings configures the per-symbol circuit breakers around the data provider.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSentiment sets the sentiment source. Defaults to factor.NeutralSentiment.
func WithSentiment(p factor.SentimentProvider) Option {
	return func(e *Engine) {
		if p != nil {
			e.sentiment = p
		}
	}
}

// WithCache sets the result cache and its TTL. A nil cache disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecorder stores every freshly computed result.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithFetchTimeout bounds each symbol's data fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithConcurrency bounds the number of symbols processed at once in a batch.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithHistoryPoints sets the number of bars requested from the provider.
func WithHistoryPoints(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyPoints = n
		}
	}
}

// WithDefaultTimeframe sets the timeframe used when a request omits one.
func WithDefaultTimeframe(tf string) Option {
	return func(e *Engine) {
		if tf != "" {
			e.defaultTimeframe = tf
		}
	}
}

// WithConditionWindow sets the market condition lookback in bars.
func WithConditionWindow(n int) Option {
	return func(e *Engine) { e.conditionWindow = n }
}

// WithBreaker configures the provider circuit breaker.
func WithBreaker(s BreakerSettings) Option {
	return func(e *Engine) { e.breakerSettings = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSynthesizerOptions passes options through to the synthesizer.
func WithSynthesizerOptions(opts ...synthesizer.Option) Option {
	return func(e *Engine) { e.synthOpts = append(e.synthOpts, opts...) }
}
