package core

import (
	"testing"
	"time"
)

func TestSignalClass_Constants(t *testing.T) {
	classes := []SignalClass{SignalStrongBuy, SignalBuy, SignalHold, SignalSell, SignalStrongSell}
	expected := []string{"STRONG_BUY", "BUY", "HOLD", "SELL", "STRONG_SELL"}

	for i, c := range classes {
		if string(c) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], c)
		}
	}
}

func TestSignalClass_Rank(t *testing.T) {
	ordered := []SignalClass{SignalStrongSell, SignalSell, SignalHold, SignalBuy, SignalStrongBuy}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should rank above %s", ordered[i], ordered[i-1])
		}
	}
	if SignalClass("bogus").Rank() != -1 {
		t.Error("unknown class should rank -1")
	}
}

func TestSignalClass_BuySell(t *testing.T) {
	tests := []struct {
		class SignalClass
		buy   bool
		sell  bool
	}{
		{SignalStrongBuy, true, false},
		{SignalBuy, true, false},
		{SignalHold, false, false},
		{SignalSell, false, true},
		{SignalStrongSell, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if tt.class.IsBuy() != tt.buy {
				t.Errorf("IsBuy() = %v, want %v", tt.class.IsBuy(), tt.buy)
			}
			if tt.class.IsSell() != tt.sell {
				t.Errorf("IsSell() = %v, want %v", tt.class.IsSell(), tt.sell)
			}
		})
	}
}

func TestIndicatorSnapshot_IsValid(t *testing.T) {
	tests := []struct {
		name string
		s    IndicatorSnapshot
		want bool
	}{
		{"valid", IndicatorSnapshot{RSI: 50, BollingerBands: BollingerBands{Upper: 110, Middle: 100, Lower: 90}}, true},
		{"rsi above range", IndicatorSnapshot{RSI: 120}, false},
		{"inverted bands", IndicatorSnapshot{RSI: 50, BollingerBands: BollingerBands{Upper: 90, Middle: 100, Lower: 110}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeutralConditions(t *testing.T) {
	c := NeutralConditions()
	if c.Volatility != VolatilityMedium || c.Trend != TrendSideways ||
		c.Momentum != MomentumNeutral || c.Volume != VolumeAverage {
		t.Errorf("unexpected neutral conditions: %+v", c)
	}
}

func TestSignalResult_IsExpired(t *testing.T) {
	now := time.Now()
	r := SignalResult{ValidUntil: now.Add(time.Minute)}
	if r.IsExpired(now) {
		t.Error("should not be expired before ValidUntil")
	}
	if !r.IsExpired(now.Add(time.Minute)) {
		t.Error("should be expired at ValidUntil")
	}
}

func TestSignalResult_Clone(t *testing.T) {
	stop := 95.0
	r := &SignalResult{Symbol: "AAPL", StopLoss: &stop, Reasoning: []string{"a", "b"}}

	c := r.Clone()
	*c.StopLoss = 1
	c.Reasoning[0] = "changed"

	if *r.StopLoss != 95 {
		t.Errorf("StopLoss shared with clone: %v", *r.StopLoss)
	}
	if r.Reasoning[0] != "a" {
		t.Errorf("Reasoning shared with clone: %v", r.Reasoning)
	}
	if c.TakeProfit != nil {
		t.Error("nil level should stay nil")
	}

	var nilResult *SignalResult
	if nilResult.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
