// Package factor implements the independent 0-10 factor scorers.
// Every scorer returns Neutral when it has nothing to say.
package factor

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
	Neutral  = 5.0
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
