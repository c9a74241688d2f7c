package synthesizer

import (
	"github.com/newthinker/sigma/internal/core"
	"github.com/shopspring/decimal"
)

const (
	// BaseRisk is the stop distance as a fraction of entry at medium volatility.
	BaseRisk = 0.02
	// RewardRiskRatio sets the take-profit distance relative to the stop distance.
	RewardRiskRatio = 2.5

	pricePlaces = 4
	ratioPlaces = 2
)

// Levels are the optional exit levels of a directional signal.
type Levels struct {
	StopLoss   *float64
	TakeProfit *float64
	RiskReward *float64
}

// VolatilityMultiplier scales BaseRisk by volatility tier.
func VolatilityMultiplier(v core.Volatility) float64 {
	switch v {
	case core.VolatilityHigh:
		return 1.5
	case core.VolatilityLow:
		return 0.7
	default:
		return 1.0
	}
}

// ComputeLevels derives stop-loss and take-profit around entry. HOLD and
// non-positive entries have no levels. A Bollinger band only tightens the
// stop while it stays on the loss side of entry.
func ComputeLevels(class core.SignalClass, entry float64, bb core.BollingerBands, v core.Volatility) Levels {
	if entry <= 0 {
		return Levels{}
	}
	r := BaseRisk * VolatilityMultiplier(v)

	var stop, target float64
	switch {
	case class.IsBuy():
		stop = entry * (1 - r)
		if floor := 0.95 * bb.Lower; floor > stop && floor < entry {
			stop = floor
		}
		target = entry * (1 + r*RewardRiskRatio)
	case class.IsSell():
		stop = entry * (1 + r)
		if ceiling := 1.05 * bb.Upper; ceiling < stop && ceiling > entry {
			stop = ceiling
		}
		target = entry * (1 - r*RewardRiskRatio)
	default:
		return Levels{}
	}

	stop = roundTo(stop, pricePlaces)
	target = roundTo(target, pricePlaces)
	entry = roundTo(entry, pricePlaces)

	levels := Levels{StopLoss: &stop, TakeProfit: &target}
	if risk := entry - stop; risk != 0 {
		rr := roundTo((target-entry)/risk, ratioPlaces)
		levels.RiskReward = &rr
	}
	return levels
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
