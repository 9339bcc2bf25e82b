// Package confidence provides the confidence level value type and score math.
package confidence

import "math"

// Indicator is the coarse bucket derived from a score.
type Indicator string

const (
	IndicatorHigh    Indicator = "high"
	IndicatorMedium  Indicator = "medium"
	IndicatorLow     Indicator = "low"
	IndicatorUnknown Indicator = "unknown"
)

// Bucket thresholds on the 0-100 scale.
const (
	HighThreshold   = 90.0
	MediumThreshold = 70.0
	MaxScore        = 100.0
)

// Level is an immutable confidence reading. Build a new one when evidence changes.
type Level struct {
	Score         float64   `json:"score"`
	Indicator     Indicator `json:"indicator"`
	Reasons       []string  `json:"reasons,omitempty"`
	Uncertainties []string  `json:"uncertainties,omitempty"`
}

// New clamps score to [0,100] and derives the indicator.
func New(score float64, reasons, uncertainties []string) Level {
	s := Clamp(score)
	return Level{
		Score:         s,
		Indicator:     IndicatorFor(s),
		Reasons:       copyStrings(reasons),
		Uncertainties: copyStrings(uncertainties),
	}
}

// IndicatorFor maps a score to its bucket.
func IndicatorFor(score float64) Indicator {
	switch {
	case score >= HighThreshold:
		return IndicatorHigh
	case score >= MediumThreshold:
		return IndicatorMedium
	case score > 0:
		return IndicatorLow
	default:
		return IndicatorUnknown
	}
}

// HasUncertainty reports whether any uncertainty factor contains the given key.
func (l Level) HasUncertainty(key string) bool {
	for _, u := range l.Uncertainties {
		if u == key {
			return true
		}
	}
	return false
}

// Clamp ensures score is in the valid range [0, 100].
func Clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Mean returns the arithmetic mean of scores, 0 for an empty slice.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// Round rounds to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
