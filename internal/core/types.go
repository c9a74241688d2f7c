package core

import "time"

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"` // "1m", "5m", "1d"
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Time     time.Time `json:"time"`
}

// MACD holds the MACD line, its signal line and the histogram (macd - signal).
type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands is the price channel around a moving average.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// MovingAverages holds the simple moving averages used by the scorers.
type MovingAverages struct {
	MA20  float64 `json:"ma20"`
	MA50  float64 `json:"ma50"`
	MA200 float64 `json:"ma200"`
}

// IndicatorSnapshot is the indicator state of one symbol/timeframe at fetch time.
type IndicatorSnapshot struct {
	RSI            float64        `json:"rsi"`
	MACD           MACD           `json:"macd"`
	BollingerBands BollingerBands `json:"bollinger_bands"`
	MovingAverages MovingAverages `json:"moving_averages"`
}

// IsValid reports whether the snapshot is usable for scoring.
func (s IndicatorSnapshot) IsValid() bool {
	bb := s.BollingerBands
	return s.RSI >= 0 && s.RSI <= 100 && bb.Lower <= bb.Middle && bb.Middle <= bb.Upper
}

// Volatility is the coarse volatility tier of a price window.
type Volatility string

const (
	VolatilityLow    Volatility = "LOW"
	VolatilityMedium Volatility = "MEDIUM"
	VolatilityHigh   Volatility = "HIGH"
)

// Trend is the directional regime of a price window.
type Trend string

const (
	TrendBullish  Trend = "BULLISH"
	TrendBearish  Trend = "BEARISH"
	TrendSideways Trend = "SIDEWAYS"
)

// Momentum is the strength of the move over a price window.
type Momentum string

const (
	MomentumStrong  Momentum = "STRONG"
	MomentumWeak    Momentum = "WEAK"
	MomentumNeutral Momentum = "NEUTRAL"
)

// VolumeRegime compares recent volume to the window average.
type VolumeRegime string

const (
	VolumeHigh    VolumeRegime = "HIGH"
	VolumeLow     VolumeRegime = "LOW"
	VolumeAverage VolumeRegime = "AVERAGE"
)

// MarketConditions are the regime labels derived from recent history.
type MarketConditions struct {
	Volatility Volatility   `json:"volatility"`
	Trend      Trend        `json:"trend"`
	Momentum   Momentum     `json:"momentum"`
	Volume     VolumeRegime `json:"volume"`
}

// NeutralConditions is returned when there is not enough history to judge.
func NeutralConditions() MarketConditions {
	return MarketConditions{
		Volatility: VolatilityMedium,
		Trend:      TrendSideways,
		Momentum:   MomentumNeutral,
		Volume:     VolumeAverage,
	}
}

// PositionContext describes the requesting user's holding in a symbol.
type PositionContext struct {
	HasPosition       bool    `json:"has_position"`
	Quantity          float64 `json:"quantity"`
	AveragePrice      float64 `json:"average_price"`
	CurrentPnLPercent float64 `json:"current_pnl_percent"`
}

// SignalClass is the discrete recommendation level.
type SignalClass string

const (
	SignalStrongBuy  SignalClass = "STRONG_BUY"
	SignalBuy        SignalClass = "BUY"
	SignalHold       SignalClass = "HOLD"
	SignalSell       SignalClass = "SELL"
	SignalStrongSell SignalClass = "STRONG_SELL"
)

// Rank orders signal classes from STRONG_SELL (0) to STRONG_BUY (4).
func (c SignalClass) Rank() int {
	switch c {
	case SignalStrongSell:
		return 0
	case SignalSell:
		return 1
	case SignalHold:
		return 2
	case SignalBuy:
		return 3
	case SignalStrongBuy:
		return 4
	default:
		return -1
	}
}

// IsBuy reports whether the class recommends entering or adding.
func (c SignalClass) IsBuy() bool {
	return c == SignalBuy || c == SignalStrongBuy
}

// IsSell reports whether the class recommends reducing or exiting.
func (c SignalClass) IsSell() bool {
	return c == SignalSell || c == SignalStrongSell
}

// FactorScores holds the four factor sub-scores and their fusion, all in [0,10].
type FactorScores struct {
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
	Volume    float64 `json:"volume"`
	Trend     float64 `json:"trend"`
	Overall   float64 `json:"overall"`
}

// SignalResult is the engine's output. It is never mutated after creation.
type SignalResult struct {
	Symbol       string           `json:"symbol"`
	Signal       SignalClass      `json:"signal"`
	Confidence   int              `json:"confidence"`
	EntryPrice   float64          `json:"entry_price"`
	StopLoss     *float64         `json:"stop_loss,omitempty"`
	TakeProfit   *float64         `json:"take_profit,omitempty"`
	RiskReward   *float64         `json:"risk_reward,omitempty"`
	FactorScores FactorScores     `json:"factor_scores"`
	Conditions   MarketConditions `json:"market_conditions"`
	Reasoning    []string         `json:"reasoning"`
	Timeframe    string           `json:"timeframe"`
	GeneratedAt  time.Time        `json:"generated_at"`
	ValidUntil   time.Time        `json:"valid_until"`
}

// Clone returns a deep copy of r.
func (r *SignalResult) Clone() *SignalResult {
	if r == nil {
		return nil
	}
	c := *r
	c.StopLoss = clonePtr(r.StopLoss)
	c.TakeProfit = clonePtr(r.TakeProfit)
	c.RiskReward = clonePtr(r.RiskReward)
	if r.Reasoning != nil {
		c.Reasoning = append([]string(nil), r.Reasoning...)
	}
	return &c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// IsExpired reports whether the validity window has passed at t.
func (r SignalResult) IsExpired(t time.Time) bool {
	return !t.Before(r.ValidUntil)
}
