package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/newthinker/sigma/internal/core"
)

// Standard indicator parameters.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerDev    = 2.0
)

// MinSnapshotBars is the shortest history that yields a full snapshot
// (MACD slow period plus signal smoothing).
const MinSnapshotBars = MACDSlow + MACDSignal

// Compute derives an IndicatorSnapshot from chronological bars.
// MA50 and MA200 fall back to the mean of the available closes when the
// history is shorter than their period.
func Compute(bars []core.OHLCV) (*core.IndicatorSnapshot, error) {
	if len(bars) < MinSnapshotBars {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("need %d bars, got %d", MinSnapshotBars, len(bars)))
	}

	closes := Closes(bars)

	rsi := last(talib.Rsi(closes, RSIPeriod))
	macd, signal, hist := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
	upper, middle, lower := talib.BBands(closes, BollingerPeriod, BollingerDev, BollingerDev, talib.SMA)

	snap := &core.IndicatorSnapshot{
		RSI: clamp(rsi, 0, 100),
		MACD: core.MACD{
			MACD:      last(macd),
			Signal:    last(signal),
			Histogram: last(hist),
		},
		BollingerBands: core.BollingerBands{
			Upper:  last(upper),
			Middle: last(middle),
			Lower:  last(lower),
		},
		MovingAverages: core.MovingAverages{
			MA20:  movingAverage(closes, 20),
			MA50:  movingAverage(closes, 50),
			MA200: movingAverage(closes, 200),
		},
	}
	return snap, nil
}

func movingAverage(closes []float64, period int) float64 {
	if len(closes) < period {
		return Mean(closes)
	}
	return last(talib.Sma(closes, period))
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
