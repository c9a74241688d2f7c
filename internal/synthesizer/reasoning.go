package synthesizer

import (
	"fmt"

	"github.com/newthinker/sigma/internal/core"
)

// ReasonCode tags one statement of a signal's rationale.
type ReasonCode string

const (
	ReasonTechnicalBullish ReasonCode = "technical_bullish"
	ReasonTechnicalBearish ReasonCode = "technical_bearish"
	ReasonTechnicalMixed   ReasonCode = "technical_mixed"

	ReasonTrendBullish  ReasonCode = "trend_bullish"
	ReasonTrendBearish  ReasonCode = "trend_bearish"
	ReasonTrendSideways ReasonCode = "trend_sideways"

	ReasonVolumeHigh    ReasonCode = "volume_high"
	ReasonVolumeLow     ReasonCode = "volume_low"
	ReasonVolumeAverage ReasonCode = "volume_average"

	ReasonHighVolatility ReasonCode = "high_volatility"

	ReasonEntryOpportunity ReasonCode = "entry_opportunity"
	ReasonAwaitEntry       ReasonCode = "await_entry"
	ReasonProfitTaking     ReasonCode = "profit_taking"
	ReasonLossManagement   ReasonCode = "loss_management"
	ReasonAveragingDown    ReasonCode = "averaging_down_capped"
	ReasonHoldingPosition  ReasonCode = "holding_position"

	ReasonCloseStrongBuy  ReasonCode = "close_strong_buy"
	ReasonCloseBuy        ReasonCode = "close_buy"
	ReasonCloseHold       ReasonCode = "close_hold"
	ReasonCloseSell       ReasonCode = "close_sell"
	ReasonCloseStrongSell ReasonCode = "close_strong_sell"
)

// Reason is a reason code with its single numeric parameter.
type Reason struct {
	Code  ReasonCode `json:"code"`
	Value float64    `json:"value,omitempty"`
}

// Technical score bands used for commentary.
const (
	technicalBullishBand = 6.5
	technicalBearishBand = 3.5
)

// Explain assembles the ordered reason codes of a decision: technical band,
// trend, volume, volatility warning, position commentary, closing statement.
func Explain(scores core.FactorScores, rsi float64, c core.MarketConditions, pos core.PositionContext, class core.SignalClass) []Reason {
	reasons := make([]Reason, 0, 6)

	switch {
	case scores.Technical >= technicalBullishBand:
		reasons = append(reasons, Reason{Code: ReasonTechnicalBullish, Value: scores.Technical})
	case scores.Technical <= technicalBearishBand:
		reasons = append(reasons, Reason{Code: ReasonTechnicalBearish, Value: scores.Technical})
	default:
		reasons = append(reasons, Reason{Code: ReasonTechnicalMixed, Value: scores.Technical})
	}

	switch c.Trend {
	case core.TrendBullish:
		reasons = append(reasons, Reason{Code: ReasonTrendBullish})
	case core.TrendBearish:
		reasons = append(reasons, Reason{Code: ReasonTrendBearish})
	default:
		reasons = append(reasons, Reason{Code: ReasonTrendSideways})
	}

	switch c.Volume {
	case core.VolumeHigh:
		reasons = append(reasons, Reason{Code: ReasonVolumeHigh})
	case core.VolumeLow:
		reasons = append(reasons, Reason{Code: ReasonVolumeLow})
	default:
		reasons = append(reasons, Reason{Code: ReasonVolumeAverage})
	}

	if c.Volatility == core.VolatilityHigh {
		reasons = append(reasons, Reason{Code: ReasonHighVolatility})
	}

	reasons = append(reasons, positionReason(pos, rsi, class))
	reasons = append(reasons, closingReason(class))
	return reasons
}

func positionReason(pos core.PositionContext, rsi float64, class core.SignalClass) Reason {
	if !pos.HasPosition {
		if class.IsBuy() {
			return Reason{Code: ReasonEntryOpportunity}
		}
		return Reason{Code: ReasonAwaitEntry}
	}

	pnl := pos.CurrentPnLPercent
	switch {
	case pnl > 50:
		return Reason{Code: ReasonProfitTaking, Value: pnl}
	case rsi < 25 && pnl < -10:
		return Reason{Code: ReasonAveragingDown, Value: pnl}
	case pnl < -20:
		return Reason{Code: ReasonLossManagement, Value: pnl}
	default:
		return Reason{Code: ReasonHoldingPosition, Value: pnl}
	}
}

func closingReason(class core.SignalClass) Reason {
	switch class {
	case core.SignalStrongBuy:
		return Reason{Code: ReasonCloseStrongBuy}
	case core.SignalBuy:
		return Reason{Code: ReasonCloseBuy}
	case core.SignalSell:
		return Reason{Code: ReasonCloseSell}
	case core.SignalStrongSell:
		return Reason{Code: ReasonCloseStrongSell}
	default:
		return Reason{Code: ReasonCloseHold}
	}
}

// Render turns reason codes into display text.
func Render(reasons []Reason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, r.Text())
	}
	return out
}

// Text is the display sentence of r.
func (r Reason) Text() string {
	switch r.Code {
	case ReasonTechnicalBullish:
		return fmt.Sprintf("Technical indicators are bullish (score %.1f/10)", r.Value)
	case ReasonTechnicalBearish:
		return fmt.Sprintf("Technical indicators are bearish (score %.1f/10)", r.Value)
	case ReasonTechnicalMixed:
		return fmt.Sprintf("Technical indicators are mixed (score %.1f/10)", r.Value)
	case ReasonTrendBullish:
		return "Price is in a bullish trend"
	case ReasonTrendBearish:
		return "Price is in a bearish trend"
	case ReasonTrendSideways:
		return "Price is moving sideways"
	case ReasonVolumeHigh:
		return "Volume is elevated relative to its recent average"
	case ReasonVolumeLow:
		return "Volume is light relative to its recent average"
	case ReasonVolumeAverage:
		return "Volume is in line with its recent average"
	case ReasonHighVolatility:
		return "Warning: high volatility, stops are widened and conviction reduced"
	case ReasonEntryOpportunity:
		return "No current position: conditions favor opening one"
	case ReasonAwaitEntry:
		return "No current position: wait for a clearer entry"
	case ReasonProfitTaking:
		return fmt.Sprintf("Position is up %.1f%%: consider taking partial profits", r.Value)
	case ReasonAveragingDown:
		return fmt.Sprintf("Position is down %.1f%% while oversold: avoid adding to the loss", -r.Value)
	case ReasonLossManagement:
		return fmt.Sprintf("Position is down %.1f%%: review the stop and manage the loss", -r.Value)
	case ReasonHoldingPosition:
		return fmt.Sprintf("Holding position with %+.1f%% unrealized P&L", r.Value)
	case ReasonCloseStrongBuy:
		return "Overall: strong buy, factors align to the upside"
	case ReasonCloseBuy:
		return "Overall: buy, the balance of factors is positive"
	case ReasonCloseSell:
		return "Overall: sell, the balance of factors is negative"
	case ReasonCloseStrongSell:
		return "Overall: strong sell, factors align to the downside"
	case ReasonCloseHold:
		return "Overall: hold, no clear edge"
	default:
		return string(r.Code)
	}
}
