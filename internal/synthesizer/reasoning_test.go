package synthesizer

import (
	"testing"

	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/assert"
)

func codesOf(reasons []Reason) []ReasonCode {
	out := make([]ReasonCode, len(reasons))
	for i, r := range reasons {
		out[i] = r.Code
	}
	return out
}

func TestExplain_Order(t *testing.T) {
	cond := core.MarketConditions{Volatility: core.VolatilityHigh, Trend: core.TrendBullish, Volume: core.VolumeHigh}
	reasons := Explain(core.FactorScores{Technical: 7}, 50, cond, core.PositionContext{}, core.SignalBuy)

	assert.Equal(t, []ReasonCode{
		ReasonTechnicalBullish,
		ReasonTrendBullish,
		ReasonVolumeHigh,
		ReasonHighVolatility,
		ReasonEntryOpportunity,
		ReasonCloseBuy,
	}, codesOf(reasons))
	assert.Equal(t, 7.0, reasons[0].Value)
}

func TestExplain_TechnicalBands(t *testing.T) {
	cond := core.NeutralConditions()

	assert.Equal(t, ReasonTechnicalBullish, Explain(core.FactorScores{Technical: 6.5}, 50, cond, core.PositionContext{}, core.SignalHold)[0].Code)
	assert.Equal(t, ReasonTechnicalMixed, Explain(core.FactorScores{Technical: 5}, 50, cond, core.PositionContext{}, core.SignalHold)[0].Code)
	assert.Equal(t, ReasonTechnicalBearish, Explain(core.FactorScores{Technical: 3.5}, 50, cond, core.PositionContext{}, core.SignalHold)[0].Code)
}

func TestExplain_PositionCommentary(t *testing.T) {
	cond := core.NeutralConditions()
	held := func(pnl float64) core.PositionContext {
		return core.PositionContext{HasPosition: true, Quantity: 1, AveragePrice: 100, CurrentPnLPercent: pnl}
	}

	tests := []struct {
		name  string
		pos   core.PositionContext
		rsi   float64
		class core.SignalClass
		want  ReasonCode
	}{
		{"flat hold", core.PositionContext{}, 50, core.SignalHold, ReasonAwaitEntry},
		{"flat buy", core.PositionContext{}, 50, core.SignalStrongBuy, ReasonEntryOpportunity},
		{"big winner", held(75), 50, core.SignalSell, ReasonProfitTaking},
		{"oversold loser", held(-15), 20, core.SignalBuy, ReasonAveragingDown},
		{"deep loser", held(-30), 50, core.SignalSell, ReasonLossManagement},
		{"ordinary", held(4), 50, core.SignalHold, ReasonHoldingPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := Explain(core.FactorScores{Technical: 5}, tt.rsi, cond, tt.pos, tt.class)
			assert.Equal(t, tt.want, reasons[len(reasons)-2].Code)
		})
	}
}

func TestRender(t *testing.T) {
	lines := Render([]Reason{
		{Code: ReasonTechnicalBearish, Value: 2.34},
		{Code: ReasonProfitTaking, Value: 60},
		{Code: ReasonLossManagement, Value: -25},
		{Code: ReasonCloseHold},
		{Code: "custom"},
	})

	assert.Equal(t, []string{
		"Technical indicators are bearish (score 2.3/10)",
		"Position is up 60.0%: consider taking partial profits",
		"Position is down 25.0%: review the stop and manage the loss",
		"Overall: hold, no clear edge",
		"custom",
	}, lines)
}
