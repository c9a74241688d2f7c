package collector

import (
	"context"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// Config holds collector configuration
type Config struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables pacing
	Burst     int
	BaseURL   string
}

// Quote is the latest traded price of a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
}

// Collector defines the interface for market data collectors
type Collector interface {
	Name() string

	// FetchQuote returns the latest quote of symbol.
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	// FetchHistory returns bars of the given timeframe between start and end,
	// oldest first.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]core.OHLCV, error)
}
