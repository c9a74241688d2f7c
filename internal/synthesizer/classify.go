package synthesizer

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
)

// Classification thresholds on the adjusted score.
const (
	StrongBuyThreshold  = 8.0
	BuyThreshold        = 6.0
	StrongSellThreshold = 2.0
	SellThreshold       = 4.0
)

// Classify maps the adjusted score to a signal class.
func Classify(score float64) core.SignalClass {
	switch {
	case score >= StrongBuyThreshold:
		return core.SignalStrongBuy
	case score >= BuyThreshold:
		return core.SignalBuy
	case score <= StrongSellThreshold:
		return core.SignalStrongSell
	case score <= SellThreshold:
		return core.SignalSell
	default:
		return core.SignalHold
	}
}

// Confidence is the distance of score from neutral scaled to [1,10],
// damped in high volatility and boosted on strong momentum.
func Confidence(score float64, c core.MarketConditions) int {
	conf := math.Abs(score-5) * 2
	if c.Volatility == core.VolatilityHigh {
		conf *= 0.8
	}
	if c.Momentum == core.MomentumStrong {
		conf *= 1.2
	}

	n := int(math.Round(conf))
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
