package synthesizer

import (
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/factor"
)

// Factor weights of the overall score.
const (
	TechnicalWeight = 0.4
	SentimentWeight = 0.2
	VolumeWeight    = 0.2
	TrendWeight     = 0.2
)

// Fuse combines the four factor scores into the overall score.
func Fuse(s core.FactorScores) float64 {
	return factor.Clamp(TechnicalWeight*s.Technical +
		SentimentWeight*s.Sentiment +
		VolumeWeight*s.Volume +
		TrendWeight*s.Trend)
}

// Context is the read-only state every adjustment stage sees.
type Context struct {
	// Overall is the fused score before any adjustment.
	Overall    float64
	RSI        float64
	Conditions core.MarketConditions
	Position   core.PositionContext
}

// Stage is one named, pure score adjustment.
type Stage struct {
	Name  string
	Apply func(score float64, c Context) float64
}

// Step records a stage that changed the score.
type Step struct {
	Stage  string
	Before float64
	After  float64
}

// Pipeline applies stages in order. Market stages run before position stages.
type Pipeline []Stage

// DefaultPipeline is the market adjustment followed by the position adjustment.
func DefaultPipeline() Pipeline {
	return Pipeline{
		{Name: "high_volatility_dampening", Apply: highVolatilityDampening},
		{Name: "trend_bias", Apply: trendBias},
		{Name: "entry_bias", Apply: entryBias},
		{Name: "oversold_entry", Apply: oversoldEntry},
		{Name: "no_position_floor", Apply: noPositionFloor},
		{Name: "profit_taking", Apply: profitTaking},
		{Name: "loss_cutting", Apply: lossCutting},
		{Name: "averaging_down_cap", Apply: averagingDownCap},
		{Name: "clamp", Apply: clampStage},
	}
}

// Run threads score through every stage and returns the adjusted score along
// with the stages that moved it.
func (p Pipeline) Run(score float64, c Context) (float64, []Step) {
	var steps []Step
	for _, st := range p {
		next := st.Apply(score, c)
		if next != score {
			steps = append(steps, Step{Stage: st.Name, Before: score, After: next})
		}
		score = next
	}
	return score, steps
}

func highVolatilityDampening(score float64, c Context) float64 {
	if c.Conditions.Volatility == core.VolatilityHigh {
		return score * 0.9
	}
	return score
}

// trendBias keys off the unadjusted overall score.
func trendBias(score float64, c Context) float64 {
	switch {
	case c.Conditions.Trend == core.TrendBullish && c.Overall > 5:
		return score + 0.5
	case c.Conditions.Trend == core.TrendBearish && c.Overall < 5:
		return score - 0.5
	}
	return score
}

func entryBias(score float64, c Context) float64 {
	if !c.Position.HasPosition && score >= 5.5 {
		return score + 1
	}
	return score
}

func oversoldEntry(score float64, c Context) float64 {
	if !c.Position.HasPosition && c.RSI < 35 && score > 4 {
		return score + 1.5
	}
	return score
}

// noPositionFloor keeps sell classes out of reach without a holding.
func noPositionFloor(score float64, c Context) float64 {
	if !c.Position.HasPosition && score < 5 {
		return 5
	}
	return score
}

func profitTaking(score float64, c Context) float64 {
	if c.Position.HasPosition && c.Position.CurrentPnLPercent > 50 {
		return score - 0.5
	}
	return score
}

func lossCutting(score float64, c Context) float64 {
	if c.Position.HasPosition && c.Position.CurrentPnLPercent < -20 && score < 5 {
		return score - 0.5
	}
	return score
}

func averagingDownCap(score float64, c Context) float64 {
	if c.Position.HasPosition && c.RSI < 25 && c.Position.CurrentPnLPercent < -10 && score > 6 {
		return 6
	}
	return score
}

func clampStage(score float64, _ Context) float64 {
	return factor.Clamp(score)
}
