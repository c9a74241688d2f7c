// Package engine generates trading signals: it fetches market data, labels
// market conditions, scores the factors, synthesizes a signal and caches it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/sigma/internal/cache"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/factor"
	"github.com/newthinker/sigma/internal/market"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/position"
	"github.com/newthinker/sigma/internal/synthesizer"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Engine is safe for concurrent use.
type Engine struct {
	provider  DataProvider
	sentiment factor.SentimentProvider
	cache     cache.Cache
	cacheTTL  time.Duration
	metrics   *metrics.Registry
	recorder  Recorder
	logger    *zap.Logger

	defaultTimeframe string
	historyPoints    int
	fetchTimeout     time.Duration
	concurrency      int
	conditionWindow  int
	breakerSettings  BreakerSettings
	synthOpts        []synthesizer.Option
	now              func() time.Time

	analyzer *market.Analyzer
	synth    *synthesizer.Synthesizer
	inflight singleflight.Group

	breakerMu sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
}

// New creates an engine on top of provider.
func New(provider DataProvider, opts ...Option) *Engine {
	e := &Engine{
		provider:         provider,
		sentiment:        factor.NeutralSentiment{},
		cacheTTL:         DefaultCacheTTL,
		logger:           zap.NewNop(),
		defaultTimeframe: DefaultTimeframe,
		historyPoints:    DefaultHistoryPoints,
		fetchTimeout:     DefaultFetchTimeout,
		concurrency:      DefaultConcurrency,
		breakerSettings:  BreakerSettings{MaxFailures: 5, OpenTimeout: 30 * time.Second},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.analyzer = market.NewAnalyzer(e.conditionWindow)
	e.synth = synthesizer.New(append([]synthesizer.Option{synthesizer.WithClock(e.now)}, e.synthOpts...)...)
	e.breakers = make(map[string]*gobreaker.CircuitBreaker)
	return e
}

// breakerFor returns the breaker guarding symbol's fetches. A symbol's
// failures only ever open its own breaker.
func (e *Engine) breakerFor(symbol string) *gobreaker.CircuitBreaker {
	e.breakerMu.Lock()
	defer e.breakerMu.Unlock()
	cb, ok := e.breakers[symbol]
	if !ok {
		cb = newBreaker("market-data:"+symbol, e.breakerSettings, e.logger)
		e.breakers[symbol] = cb
	}
	return cb
}

func newBreaker(name string, s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Client-side errors say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, core.ErrInsufficientData) ||
				errors.Is(err, core.ErrSymbolNotFound) ||
				errors.Is(err, core.ErrInvalidRequest) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// GenerateSignal returns the signal for symbol on timeframe. It returns
// (nil, nil) when the provider has too little data for the symbol. pos may be
// nil; when it carries a position its P&L is re-marked at the entry price.
func (e *Engine) GenerateSignal(ctx context.Context, symbol, timeframe string, pos *core.PositionContext) (*core.SignalResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, core.WrapError(core.ErrInvalidRequest, errors.New("symbol is required"))
	}
	if timeframe == "" {
		timeframe = e.defaultTimeframe
	}
	if pos != nil {
		if err := position.Validate(*pos); err != nil {
			return nil, err
		}
	}

	key := cache.Key(symbol, timeframe, pos)
	if r := e.cached(ctx, key); r != nil {
		return r, nil
	}

	// Concurrent misses of one key share a computation. It is detached from
	// the caller so one caller giving up never fails the others; each caller
	// still stops waiting when its own context ends.
	ch := e.inflight.DoChan(key, func() (any, error) {
		return e.compute(context.WithoutCancel(ctx), symbol, timeframe, pos, key)
	})
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, core.WrapError(core.ErrUpstreamTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.SignalResult), nil
	}
}

func (e *Engine) cached(ctx context.Context, key string) *core.SignalResult {
	if e.cache == nil {
		return nil
	}

	r, err := e.cache.Get(ctx, key)
	switch {
	case err == nil && r != nil && !r.IsExpired(e.now()):
		if e.metrics != nil {
			e.metrics.RecordCacheHit()
		}
		return r
	case err != nil && !errors.Is(err, core.ErrCacheMiss):
		e.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		if e.metrics != nil {
			e.metrics.RecordCacheError()
		}
	default:
		if e.metrics != nil {
			e.metrics.RecordCacheMiss()
		}
	}
	return nil
}

func (e *Engine) compute(ctx context.Context, symbol, timeframe string, pos *core.PositionContext, key string) (*core.SignalResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	snapshot, err := e.fetchSnapshot(fetchCtx, symbol, timeframe)
	if err != nil {
		return e.fetchFailed(symbol, timeframe, "snapshot", err)
	}
	history, err := e.fetchHistory(fetchCtx, symbol, timeframe)
	if err != nil {
		return e.fetchFailed(symbol, timeframe, "history", err)
	}
	if snapshot == nil || len(history) == 0 {
		return e.fetchFailed(symbol, timeframe, "history", core.ErrInsufficientData)
	}
	if !snapshot.IsValid() {
		return e.fetchFailed(symbol, timeframe, "snapshot",
			core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("malformed indicator snapshot for %s", symbol)))
	}

	entry := history[len(history)-1].Close
	var pc core.PositionContext
	if pos != nil {
		pc = position.WithPrice(*pos, entry)
	}

	conditions := e.analyzer.Analyze(history)
	scores := core.FactorScores{
		Technical: factor.Technical(*snapshot),
		Sentiment: e.sentimentScore(ctx, symbol),
		Volume:    factor.Volume(history),
		Trend:     factor.Trend(history, snapshot.MovingAverages),
	}

	d := e.synth.Decide(synthesizer.Input{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Snapshot:   snapshot,
		History:    history,
		Conditions: conditions,
		Position:   pc,
		Scores:     scores,
	})
	if d == nil {
		return e.fetchFailed(symbol, timeframe, "history", core.ErrInsufficientData)
	}
	result := d.Result

	e.logger.Debug("signal generated",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.String("signal", string(result.Signal)),
		zap.Float64("overall", result.FactorScores.Overall),
		zap.Float64("adjusted", d.Adjusted),
		zap.Int("adjustments", len(d.Steps)),
	)

	if e.metrics != nil {
		e.metrics.RecordSignal(string(result.Signal), timeframe)
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, key, result, e.cacheTTL); err != nil {
			e.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			if e.metrics != nil {
				e.metrics.RecordCacheError()
			}
		}
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, *result); err != nil {
			e.logger.Warn("failed to record signal", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	return result, nil
}

func (e *Engine) fetchSnapshot(ctx context.Context, symbol, timeframe string) (*core.IndicatorSnapshot, error) {
	v, err := e.breakerFor(symbol).Execute(func() (any, error) {
		return e.provider.FetchIndicatorSnapshot(ctx, symbol, timeframe)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.IndicatorSnapshot), nil
}

func (e *Engine) fetchHistory(ctx context.Context, symbol, timeframe string) ([]core.OHLCV, error) {
	v, err := e.breakerFor(symbol).Execute(func() (any, error) {
		return e.provider.FetchPriceHistory(ctx, symbol, timeframe, e.historyPoints)
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.OHLCV), nil
}

// fetchFailed turns a fetch error into the engine's result: insufficient
// data is not an error, unknown symbols and bad requests pass through, and
// everything else becomes an upstream error.
func (e *Engine) fetchFailed(symbol, timeframe, stage string, err error) (*core.SignalResult, error) {
	if errors.Is(err, core.ErrInsufficientData) {
		e.logger.Debug("insufficient data",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.String("stage", stage),
		)
		if e.metrics != nil {
			e.metrics.RecordInsufficientData()
		}
		return nil, nil
	}

	if errors.Is(err, core.ErrSymbolNotFound) || errors.Is(err, core.ErrInvalidRequest) {
		return nil, err
	}

	e.logger.Warn("market data fetch failed",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.String("stage", stage),
		zap.Error(err),
	)
	if e.metrics != nil {
		e.metrics.RecordUpstreamFailure(stage)
	}
	return nil, upstreamError(err)
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, core.ErrUpstreamFailure), errors.Is(err, core.ErrUpstreamTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return core.WrapError(core.ErrUpstreamTimeout, err)
	default:
		return core.WrapError(core.ErrUpstreamFailure, err)
	}
}

func (e *Engine) sentimentScore(ctx context.Context, symbol string) float64 {
	s, err := e.sentiment.Sentiment(ctx, symbol)
	if err != nil {
		e.logger.Warn("sentiment unavailable, using neutral",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return factor.Neutral
	}
	return factor.Clamp(s)
}

// GenerateBatchSignals runs GenerateSignal for every symbol concurrently and
// returns the successful results keyed by upper-cased symbol. Symbols that
// fail or lack data are logged and omitted; a failure never aborts the batch.
func (e *Engine) GenerateBatchSignals(ctx context.Context, symbols []string, timeframe string, positions map[string]core.PositionContext) map[string]core.SignalResult {
	start := time.Now()

	byUpper := make(map[string]core.PositionContext, len(positions))
	for sym, pc := range positions {
		byUpper[strings.ToUpper(sym)] = pc
	}

	var (
		mu      sync.Mutex
		results = make(map[string]core.SignalResult, len(symbols))
		failed  int
	)

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	seen := make(map[string]bool, len(symbols))
	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		var pos *core.PositionContext
		if pc, ok := byUpper[symbol]; ok {
			pos = &pc
		}

		g.Go(func() error {
			r, err := e.GenerateSignal(ctx, symbol, timeframe, pos)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				e.logger.Warn("batch signal failed", zap.String("symbol", symbol), zap.Error(err))
			case r == nil:
				failed++
			default:
				results[symbol] = *r
			}
			return nil
		})
	}
	_ = g.Wait()

	if e.metrics != nil {
		e.metrics.RecordBatch(len(results), failed, time.Since(start).Seconds())
	}
	e.logger.Info("batch complete",
		zap.Int("requested", len(seen)),
		zap.Int("succeeded", len(results)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

// DefaultTimeframe returns the timeframe used when a request omits one.
func (e *Engine) DefaultTimeframe() string {
	return e.defaultTimeframe
}
