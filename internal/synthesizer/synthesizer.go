// Package synthesizer turns factor scores, market conditions and position
// context into a discrete, explained trading signal.
package synthesizer

import (
	"time"

	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/factor"
)

// Input is everything one synthesis needs. Scores.Overall is ignored and
// recomputed by Fuse.
type Input struct {
	Symbol     string
	Timeframe  string
	Snapshot   *core.IndicatorSnapshot
	History    []core.OHLCV
	Conditions core.MarketConditions
	Position   core.PositionContext
	Scores     core.FactorScores
}

// Decision is the full outcome of a synthesis, including the intermediate
// values that do not surface in SignalResult.
type Decision struct {
	Result   *core.SignalResult
	Adjusted float64
	Steps    []Step
	Reasons  []Reason
}

// Synthesizer is the decision core. It holds no mutable state.
type Synthesizer struct {
	pipeline Pipeline
	now      func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the time source used for GeneratedAt and ValidUntil.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// WithPipeline replaces the adjustment pipeline.
func WithPipeline(p Pipeline) Option {
	return func(s *Synthesizer) { s.pipeline = p }
}

// New creates a synthesizer using DefaultPipeline.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		pipeline: DefaultPipeline(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the signal for in, or nil when the snapshot or price
// history is missing.
func (s *Synthesizer) Synthesize(in Input) *core.SignalResult {
	d := s.Decide(in)
	if d == nil {
		return nil
	}
	return d.Result
}

// Decide is Synthesize with the intermediate decision trace.
func (s *Synthesizer) Decide(in Input) *Decision {
	if in.Snapshot == nil || len(in.History) == 0 {
		return nil
	}
	entry := in.History[len(in.History)-1].Close
	if entry <= 0 {
		return nil
	}

	scores := core.FactorScores{
		Technical: factor.Clamp(in.Scores.Technical),
		Sentiment: factor.Clamp(in.Scores.Sentiment),
		Volume:    factor.Clamp(in.Scores.Volume),
		Trend:     factor.Clamp(in.Scores.Trend),
	}
	scores.Overall = Fuse(scores)

	adjusted, steps := s.pipeline.Run(scores.Overall, Context{
		Overall:    scores.Overall,
		RSI:        in.Snapshot.RSI,
		Conditions: in.Conditions,
		Position:   in.Position,
	})

	class := Classify(adjusted)
	levels := ComputeLevels(class, entry, in.Snapshot.BollingerBands, in.Conditions.Volatility)
	reasons := Explain(scores, in.Snapshot.RSI, in.Conditions, in.Position, class)

	now := s.now()
	result := &core.SignalResult{
		Symbol:       in.Symbol,
		Signal:       class,
		Confidence:   Confidence(adjusted, in.Conditions),
		EntryPrice:   roundTo(entry, pricePlaces),
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
		RiskReward:   levels.RiskReward,
		FactorScores: scores,
		Conditions:   in.Conditions,
		Reasoning:    Render(reasons),
		Timeframe:    in.Timeframe,
		GeneratedAt:  now,
		ValidUntil:   now.Add(ValidityWindow(in.Timeframe)),
	}

	return &Decision{
		Result:   result,
		Adjusted: adjusted,
		Steps:    steps,
		Reasons:  reasons,
	}
}
