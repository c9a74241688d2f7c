// Package market derives coarse regime labels from recent price and volume history.
package market

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
)

// Regime thresholds.
const (
	HighVolatility   = 0.6
	MediumVolatility = 0.3

	TrendThreshold = 0.05

	StrongMomentum = 0.10
	WeakMomentum   = 0.03

	HighVolumeRatio = 1.3
	LowVolumeRatio  = 0.7

	// DefaultWindow is the number of most recent bars inspected.
	DefaultWindow = 20

	recentVolumeBars = 5
	tradingDays      = 252
)

// Analyzer labels market conditions over a trailing window.
type Analyzer struct {
	window int
}

// NewAnalyzer creates an analyzer over the last window bars.
// A non-positive window uses DefaultWindow.
func NewAnalyzer(window int) *Analyzer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{window: window}
}

// Analyze returns the conditions of the trailing window. It never fails:
// fewer than two bars yields core.NeutralConditions().
func (a *Analyzer) Analyze(history []core.OHLCV) core.MarketConditions {
	if len(history) < 2 {
		return core.NeutralConditions()
	}

	data := history
	if len(data) > a.window {
		data = data[len(data)-a.window:]
	}

	change := priceChange(data)

	return core.MarketConditions{
		Volatility: classifyVolatility(Volatility(data)),
		Trend:      classifyTrend(change),
		Momentum:   classifyMomentum(change),
		Volume:     classifyVolume(data),
	}
}

// Volatility calculates annualized volatility from simple per-bar returns.
func Volatility(data []core.OHLCV) float64 {
	if len(data) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		if data[i-1].Close > 0 {
			returns = append(returns, (data[i].Close-data[i-1].Close)/data[i-1].Close)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	mean := indicator.Mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(tradingDays)
}

// priceChange is the relative change from the first to the last close.
func priceChange(data []core.OHLCV) float64 {
	first := data[0].Close
	if first <= 0 {
		return 0
	}
	return (data[len(data)-1].Close - first) / first
}

func classifyVolatility(vol float64) core.Volatility {
	switch {
	case vol > HighVolatility:
		return core.VolatilityHigh
	case vol > MediumVolatility:
		return core.VolatilityMedium
	default:
		return core.VolatilityLow
	}
}

func classifyTrend(change float64) core.Trend {
	switch {
	case change > TrendThreshold:
		return core.TrendBullish
	case change < -TrendThreshold:
		return core.TrendBearish
	default:
		return core.TrendSideways
	}
}

func classifyMomentum(change float64) core.Momentum {
	abs := math.Abs(change)
	switch {
	case abs > StrongMomentum:
		return core.MomentumStrong
	case abs > WeakMomentum:
		return core.MomentumWeak
	default:
		return core.MomentumNeutral
	}
}

func classifyVolume(data []core.OHLCV) core.VolumeRegime {
	volumes := indicator.Volumes(data)
	avg := indicator.Mean(volumes)
	if avg <= 0 {
		return core.VolumeAverage
	}

	ratio := indicator.TailMean(volumes, recentVolumeBars) / avg
	switch {
	case ratio >= HighVolumeRatio:
		return core.VolumeHigh
	case ratio <= LowVolumeRatio:
		return core.VolumeLow
	default:
		return core.VolumeAverage
	}
}
