package factor

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
)

// Sub-factor weights of the technical score.
const (
	RSIWeight       = 0.25
	MACDWeight      = 0.25
	MAWeight        = 0.20
	BollingerWeight = 0.15
)

// Technical blends RSI, MACD, moving-average alignment and Bollinger position
// into a weighted mean over the sub-factors that apply.
func Technical(s core.IndicatorSnapshot) float64 {
	sum := RSIScore(s.RSI)*RSIWeight +
		MACDScore(s.MACD)*MACDWeight +
		MovingAverageScore(s.MovingAverages)*MAWeight
	weights := RSIWeight + MACDWeight + MAWeight

	if bb, ok := BollingerScore(s.BollingerBands, s.MovingAverages.MA20); ok {
		sum += bb * BollingerWeight
		weights += BollingerWeight
	}

	return Clamp(sum / weights)
}

// RSIScore favors oversold readings and penalizes overbought ones.
func RSIScore(rsi float64) float64 {
	switch {
	case rsi < 20:
		return 9
	case rsi < 30:
		return 7
	case rsi > 80:
		return 1
	case rsi > 70:
		return 3
	default:
		return Neutral
	}
}

// MACDScore scores the crossover state, with one extra point in the
// crossover direction when the histogram confirms momentum.
func MACDScore(m core.MACD) float64 {
	score := Neutral
	direction := 0.0

	switch {
	case m.MACD > m.Signal && m.Histogram > 0:
		score, direction = 7, 1
	case m.MACD < m.Signal && m.Histogram < 0:
		score, direction = 3, -1
	}

	if direction != 0 && math.Abs(m.Histogram) > 0.1*math.Abs(m.MACD) {
		score += direction
	}
	return Clamp(score)
}

// MovingAverageScore rewards golden alignment and penalizes death alignment.
func MovingAverageScore(ma core.MovingAverages) float64 {
	switch {
	case ma.MA20 > ma.MA50 && ma.MA50 > ma.MA200:
		return 8
	case ma.MA20 < ma.MA50 && ma.MA50 < ma.MA200:
		return 2
	case ma.MA20 > ma.MA50:
		return 6
	case ma.MA20 < ma.MA50:
		return 4
	default:
		return Neutral
	}
}

// BollingerScore positions MA20 inside the band channel. ok is false when the
// channel is degenerate or the position falls between the scored bands.
func BollingerScore(bb core.BollingerBands, price float64) (score float64, ok bool) {
	width := bb.Upper - bb.Lower
	if width <= 0 {
		return 0, false
	}

	p := (price - bb.Lower) / width
	switch {
	case p < 0.1:
		return 8, true
	case p > 0.9:
		return 2, true
	case p >= 0.4 && p <= 0.6:
		return Neutral, true
	default:
		return 0, false
	}
}
