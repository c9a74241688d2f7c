package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/position"
	"go.uber.org/zap"
)

// BatchGenerator is the slice of the engine the watchlist loop drives.
type BatchGenerator interface {
	GenerateBatchSignals(ctx context.Context, symbols []string, timeframe string, positions map[string]core.PositionContext) map[string]core.SignalResult
	DefaultTimeframe() string
}

// App runs the watchlist loop: every interval it generates signals for the
// watched symbols, positioned against the configured portfolio.
type App struct {
	engine  BatchGenerator
	book    *position.Book
	metrics *metrics.Registry
	logger  *zap.Logger

	watchlist []string
	timeframe string
	interval  time.Duration

	latest  map[string]core.SignalResult
	lastRun time.Time
	now     func() time.Time

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New creates the watchlist loop from the watchlist and portfolio sections of cfg.
func New(cfg *config.Config, engine BatchGenerator, m *metrics.Registry, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	timeframe := cfg.Watchlist.Timeframe
	if timeframe == "" {
		timeframe = engine.DefaultTimeframe()
	}
	interval := cfg.Watchlist.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	a := &App{
		engine:    engine,
		book:      position.NewBook(cfg.Portfolio...),
		metrics:   m,
		logger:    logger,
		timeframe: timeframe,
		interval:  interval,
		latest:    make(map[string]core.SignalResult),
		now:       time.Now,
	}
	a.SetWatchlist(cfg.Watchlist.Symbols)
	return a
}

// Book returns the portfolio the loop positions signals against.
func (a *App) Book() *position.Book {
	return a.book
}

// SetWatchlist replaces the watched symbols.
func (a *App) SetWatchlist(symbols []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchlist = a.watchlist[:0]
	for _, s := range symbols {
		s = normalize(s)
		if s == "" || slices.Contains(a.watchlist, s) {
			continue
		}
		a.watchlist = append(a.watchlist, s)
	}
	a.updateGauge()
}

// SetInterval sets the cycle interval. It takes effect on the next Start.
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// Timeframe returns the timeframe the loop generates signals on.
func (a *App) Timeframe() string {
	return a.timeframe
}

// GetWatchlist returns the watched symbols in insertion order.
func (a *App) GetWatchlist() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.watchlist)
}

// AddToWatchlist adds symbol. It reports false if the symbol was already watched.
func (a *App) AddToWatchlist(symbol string) bool {
	symbol = normalize(symbol)
	if symbol == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Contains(a.watchlist, symbol) {
		return false
	}
	a.watchlist = append(a.watchlist, symbol)
	a.updateGauge()
	return true
}

// RemoveFromWatchlist removes symbol and its last result.
func (a *App) RemoveFromWatchlist(symbol string) bool {
	symbol = normalize(symbol)
	a.mu.Lock()
	defer a.mu.Unlock()
	i := slices.Index(a.watchlist, symbol)
	if i < 0 {
		return false
	}
	a.watchlist = slices.Delete(a.watchlist, i, i+1)
	delete(a.latest, symbol)
	a.updateGauge()
	return true
}

// Latest returns the still-valid results of the most recent cycle, keyed by symbol.
func (a *App) Latest() map[string]core.SignalResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	now := a.now()
	out := make(map[string]core.SignalResult, len(a.latest))
	for k, v := range a.latest {
		if v.IsExpired(now) {
			continue
		}
		out[k] = v
	}
	return out
}

// Start runs a cycle immediately and then every interval until ctx is
// cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.interval
	count := len(a.watchlist)
	a.mu.Unlock()

	a.logger.Info("watchlist loop starting",
		zap.Int("watchlist_count", count),
		zap.String("timeframe", a.timeframe),
		zap.Duration("interval", interval),
	)

	a.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watchlist loop stopped")
			a.mu.Lock()
			a.running = false
			a.cancel = nil
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// Stop cancels a running loop.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce performs a single cycle over the watchlist and returns its results.
// Symbols that failed or lacked history are absent from the result.
func (a *App) RunOnce(ctx context.Context) map[string]core.SignalResult {
	symbols := a.GetWatchlist()
	if len(symbols) == 0 {
		a.logger.Debug("no symbols in watchlist")
		return map[string]core.SignalResult{}
	}

	positions, err := a.book.Contexts()
	if err != nil {
		a.logger.Warn("portfolio unusable, generating without positions", zap.Error(err))
		positions = nil
	}

	a.logger.Debug("starting watchlist cycle", zap.Int("symbols", len(symbols)))
	results := a.engine.GenerateBatchSignals(ctx, symbols, a.timeframe, positions)

	// Symbols that produced nothing this cycle lose their previous result.
	latest := make(map[string]core.SignalResult, len(results))
	for symbol, r := range results {
		latest[symbol] = r
	}
	a.mu.Lock()
	a.latest = latest
	a.lastRun = a.now()
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordWatchCycle()
	}

	for symbol, r := range results {
		if r.Signal != core.SignalHold {
			a.logger.Info("actionable signal",
				zap.String("symbol", symbol),
				zap.String("signal", string(r.Signal)),
				zap.Int("confidence", r.Confidence),
				zap.Float64("entry_price", r.EntryPrice),
			)
		}
	}
	return results
}

// GetStats returns loop statistics.
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":   a.running,
		"watchlist": len(a.watchlist),
		"timeframe": a.timeframe,
		"interval":  a.interval.String(),
		"signals":   len(a.latest),
	}
	if !a.lastRun.IsZero() {
		stats["last_run"] = a.lastRun
	}
	return stats
}

// updateGauge must be called with a.mu held.
func (a *App) updateGauge() {
	if a.metrics != nil {
		a.metrics.SetWatchlistSize(len(a.watchlist))
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
