package indicator

import "github.com/newthinker/sigma/internal/core"

// Closes extracts closing prices in bar order.
func Closes(bars []core.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts traded volume in bar order.
func Volumes(bars []core.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Tail returns the last n values (all of them if n exceeds the length).
func Tail(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// TailMean is the mean of the last n values.
func TailMean(values []float64, n int) float64 {
	return Mean(Tail(values, n))
}

// SplitRecent splits values into the last n points and the n points before them.
// ok is false when fewer than 2n values are available.
func SplitRecent(values []float64, n int) (prior, recent []float64, ok bool) {
	if n <= 0 || len(values) < 2*n {
		return nil, nil, false
	}
	end := len(values)
	return values[end-2*n : end-n], values[end-n:], true
}
