package factor

import (
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
)

// TrendWindow is the length of each closing-price window compared.
const TrendWindow = 10

// MinTrendBars is the shortest history the trend scorer will judge.
const MinTrendBars = 2 * TrendWindow

// Trend combines the recent-vs-prior close change with price/MA ordering.
func Trend(history []core.OHLCV, ma core.MovingAverages) float64 {
	if len(history) < MinTrendBars {
		return Neutral
	}

	prior, recent, _ := indicator.SplitRecent(indicator.Closes(history), TrendWindow)
	base := indicator.Mean(prior)
	if base <= 0 {
		return Neutral
	}

	change := (indicator.Mean(recent) - base) / base
	price := history[len(history)-1].Close

	switch {
	case change > 0.05 && price > ma.MA20 && ma.MA20 > ma.MA50:
		return 8
	case change < -0.05 && price < ma.MA20 && ma.MA20 < ma.MA50:
		return 2
	case change > 0.02:
		return 6
	case change < -0.02:
		return 4
	default:
		return Neutral
	}
}
