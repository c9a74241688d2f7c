package engine

import (
	"context"

	"github.com/newthinker/sigma/internal/core"
)

// DataProvider supplies market data for one symbol and timeframe. Either
// method may return core.ErrInsufficientData when the symbol has too little
// history; any other error is treated as an upstream failure.
type DataProvider interface {
	FetchIndicatorSnapshot(ctx context.Context, symbol, timeframe string) (*core.IndicatorSnapshot, error)
	FetchPriceHistory(ctx context.Context, symbol, timeframe string, minPoints int) ([]core.OHLCV, error)
}

// Recorder receives every freshly computed result.
type Recorder interface {
	Record(ctx context.Context, result core.SignalResult) error
}
