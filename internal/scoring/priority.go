// Package scoring computes priority scores for classified complaints.
//
// The formula is fixed:
//
//	PS = (Impact x Urgency x Frequency) / Controllability
//
// with thresholds P1 >= 60, P2 >= 40, P3 >= 20, P4 otherwise. Boundary
// values land in the higher band.
package scoring

import (
	"math"
)

// Level is the banded priority category derived from the score.
type Level string

const (
	LevelCritical Level = "P1 - Critical" // immediate action, within 4 hours
	LevelHigh     Level = "P2 - High"     // action within 24 hours
	LevelMedium   Level = "P3 - Medium"   // action within 3 days
	LevelLow      Level = "P4 - Low"      // routine handling, within 7 days
)

// Priority computes the priority score and level for the four clamped
// sub-scores. Controllability >= 1 is a precondition guaranteed by the
// classifier adapter's clamp; it is not re-checked here.
func Priority(impact, urgency, frequency, controllability int) (float64, Level) {
	score := float64(impact*urgency*frequency) / float64(controllability)
	score = math.Round(score*100) / 100

	switch {
	case score >= 60:
		return score, LevelCritical
	case score >= 40:
		return score, LevelHigh
	case score >= 20:
		return score, LevelMedium
	default:
		return score, LevelLow
	}
}
