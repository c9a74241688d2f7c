package synthesizer

import (
	"strings"
	"time"
)

// DefaultValidity applies to timeframes not listed in validityWindows.
const DefaultValidity = time.Hour

var validityWindows = map[string]time.Duration{
	"1m":  5 * time.Minute,
	"3m":  10 * time.Minute,
	"5m":  15 * time.Minute,
	"15m": time.Hour,
	"30m": 2 * time.Hour,
	"1h":  4 * time.Hour,
	"2h":  8 * time.Hour,
	"4h":  12 * time.Hour,
	"6h":  18 * time.Hour,
	"12h": 24 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ValidityWindow is how long a signal on timeframe stays fresh.
func ValidityWindow(timeframe string) time.Duration {
	if d, ok := validityWindows[strings.ToLower(timeframe)]; ok {
		return d
	}
	return DefaultValidity
}
