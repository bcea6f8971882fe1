// Package bets sizes wagers from the true count, bankroll, and session risk
// model.
package bets

import (
	"fmt"

	"tabletrack/server/engine"
)

// Suggestion is one bet recommendation. Rationale names the decisive factor.
type Suggestion struct {
	HandCount int     `json:"handCount"`
	UnitSize  float64 `json:"unitSize"`
	Rationale string  `json:"rationale"`
}

// edgePerTC is the assumed player edge gained per true count above the entry
// threshold, as a fraction of the wager.
const edgePerTC = 0.005

// Suggest derives the bet for the next round. tableLimit caps the unit when
// positive; zero means the table imposes no limit below maxUnit.
func Suggest(trueCount, bankroll float64, rm engine.RiskModel, tableLimit float64) Suggestion {
	if trueCount < rm.MinEnterTC {
		return Suggestion{
			HandCount: 1,
			UnitSize:  rm.UnitBase,
			Rationale: "below entry threshold",
		}
	}

	handCount := 1
	if trueCount >= rm.TwoHandThresholdTC {
		handCount = 2
	}

	// Edge grows linearly above the entry threshold; the Kelly fraction
	// scales the full-Kelly stake down to the configured risk tolerance.
	edge := (trueCount - rm.MinEnterTC + 1) * edgePerTC
	unit := rm.KellyFraction * edge * bankroll
	rationale := fmt.Sprintf("kelly stake at TC %+.1f", trueCount)

	if unit < rm.UnitBase {
		unit = rm.UnitBase
		rationale = "floored at base unit"
	}
	if unit > rm.MaxUnit {
		unit = rm.MaxUnit
		rationale = "cap applied"
	}
	if tableLimit > 0 && unit > tableLimit {
		unit = tableLimit
		rationale = "table limit applied"
	}

	return Suggestion{HandCount: handCount, UnitSize: unit, Rationale: rationale}
}
