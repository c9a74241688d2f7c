package factor

import (
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
)

// VolumeWindow is the length of each volume window compared.
const VolumeWindow = 10

// Volume compares the last VolumeWindow volumes to the window before them.
func Volume(history []core.OHLCV) float64 {
	prior, recent, ok := indicator.SplitRecent(indicator.Volumes(history), VolumeWindow)
	if !ok {
		return Neutral
	}

	base := indicator.Mean(prior)
	if base <= 0 {
		return Neutral
	}

	ratio := indicator.Mean(recent) / base
	switch {
	case ratio > 1.5:
		return 8
	case ratio < 0.5:
		return 3
	default:
		return Neutral
	}
}
