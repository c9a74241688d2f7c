package marketdata

import (
	"fmt"
	"strings"
	"time"
)

// BarDuration is the nominal length of one bar of timeframe.
func BarDuration(timeframe string) (time.Duration, bool) {
	switch strings.ToLower(timeframe) {
	case "1m":
		return time.Minute, true
	case "3m":
		return 3 * time.Minute, true
	case "5m":
		return 5 * time.Minute, true
	case "15m":
		return 15 * time.Minute, true
	case "30m":
		return 30 * time.Minute, true
	case "1h":
		return time.Hour, true
	case "2h":
		return 2 * time.Hour, true
	case "4h":
		return 4 * time.Hour, true
	case "6h":
		return 6 * time.Hour, true
	case "12h":
		return 12 * time.Hour, true
	case "1d":
		return 24 * time.Hour, true
	case "3d":
		return 3 * 24 * time.Hour, true
	case "1w":
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Intraday history depth served by the chart API.
const (
	maxMinuteLookback   = 7 * 24 * time.Hour
	maxIntradayLookback = 60 * 24 * time.Hour
	maxHourlyLookback   = 730 * 24 * time.Hour
)

// Lookback is the calendar span to request so that points bars of timeframe
// come back despite weekends and closed sessions.
func Lookback(timeframe string, points int) (time.Duration, error) {
	bar, ok := BarDuration(timeframe)
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	span := bar * time.Duration(points)

	switch {
	case bar >= 7*24*time.Hour:
		return span + 14*24*time.Hour, nil
	case bar >= 24*time.Hour:
		// 5 trading days a week plus a holiday margin
		return span*7/5 + 14*24*time.Hour, nil
	case bar < 5*time.Minute:
		return min(span*6, maxMinuteLookback), nil
	case bar < time.Hour:
		return min(span*6, maxIntradayLookback), nil
	default:
		// a 6.5 hour session on 5 days out of 7
		return min(span*6, maxHourlyLookback), nil
	}
}
