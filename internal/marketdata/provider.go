// Package marketdata adapts a history collector into the engine's data
// provider, deriving indicator snapshots locally.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
	"go.uber.org/zap"
)

// DefaultPoints is the minimum number of bars requested per fetch.
const DefaultPoints = 250

// DefaultReuse is how long fetched bars are reused across calls.
const DefaultReuse = 30 * time.Second

type entry struct {
	bars      []core.OHLCV
	fetchedAt time.Time
}

// Provider fetches bars from a collector. A snapshot and the history of the
// same symbol and timeframe share a single upstream fetch.
type Provider struct {
	collector collector.Collector
	logger    *zap.Logger
	points    int
	reuse     time.Duration
	now       func() time.Time

	mu     sync.Mutex
	recent map[string]entry
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPoints sets the minimum number of bars requested per fetch.
func WithPoints(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.points = n
		}
	}
}

// WithReuse sets how long fetched bars are reused. Zero disables reuse.
func WithReuse(d time.Duration) Option {
	return func(p *Provider) { p.reuse = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates a provider on top of c.
func New(c collector.Collector, opts ...Option) *Provider {
	p := &Provider{
		collector: c,
		logger:    zap.NewNop(),
		points:    DefaultPoints,
		reuse:     DefaultReuse,
		now:       time.Now,
		recent:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchIndicatorSnapshot computes the indicator snapshot from recent bars.
func (p *Provider) FetchIndicatorSnapshot(ctx context.Context, symbol, timeframe string) (*core.IndicatorSnapshot, error) {
	bars, err := p.bars(ctx, symbol, timeframe, p.points)
	if err != nil {
		return nil, err
	}
	return indicator.Compute(bars)
}

// FetchPriceHistory returns at most the last max(minPoints, configured points)
// bars, oldest first. It may return fewer than minPoints when the symbol has
// a short history.
func (p *Provider) FetchPriceHistory(ctx context.Context, symbol, timeframe string, minPoints int) ([]core.OHLCV, error) {
	return p.bars(ctx, symbol, timeframe, max(minPoints, p.points))
}

func (p *Provider) bars(ctx context.Context, symbol, timeframe string, points int) ([]core.OHLCV, error) {
	key := strings.ToUpper(symbol) + "|" + timeframe
	now := p.now()

	p.mu.Lock()
	cached, ok := p.recent[key]
	p.mu.Unlock()
	if ok && p.reuse > 0 && now.Sub(cached.fetchedAt) < p.reuse && len(cached.bars) >= points {
		return cached.bars[len(cached.bars)-points:], nil
	}

	span, err := Lookback(timeframe, points)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidRequest, err)
	}

	bars, err := p.collector.FetchHistory(ctx, symbol, now.Add(-span), now, timeframe)
	if err != nil {
		if errors.Is(err, core.ErrNoData) {
			return nil, core.WrapError(core.ErrInsufficientData, err)
		}
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("no bars for %s %s", symbol, timeframe))
	}

	p.logger.Debug("fetched history",
		zap.String("collector", p.collector.Name()),
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("bars", len(bars)),
	)

	if p.reuse > 0 {
		p.mu.Lock()
		for k, e := range p.recent {
			if now.Sub(e.fetchedAt) >= p.reuse {
				delete(p.recent, k)
			}
		}
		p.recent[key] = entry{bars: bars, fetchedAt: now}
		p.mu.Unlock()
	}

	if len(bars) > points {
		bars = bars[len(bars)-points:]
	}
	return bars, nil
}
