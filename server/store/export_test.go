package store

import (
	"math"
	"testing"

	"tabletrack/server/engine"
)

func TestSummarizeEmpty(t *testing.T) {
	ex := Summarize(nil, 10)
	if ex.Hands != 0 || ex.Net != 0 || ex.Stdev != 0 {
		t.Fatalf("empty summary = %+v", ex)
	}
}

func TestSummarize(t *testing.T) {
	recs := []engine.HandOutcomeRecord{
		{Result: engine.OutcomeWin, Units: 1, Net: 1, Penetration: 0.10},
		{Result: engine.OutcomeLoss, Units: 2, Net: -2, Penetration: 0.20},
		{Result: engine.OutcomeBlackjack, Units: 1, Net: 1.5, Blackjack: true, Penetration: 0.30},
		{Result: engine.OutcomePush, Units: 1, Net: 0, Penetration: 0.40},
		{Result: engine.OutcomeSurrender, Units: 1, Net: -0.5, Penetration: 0.35},
	}
	ex := Summarize(recs, 10)

	if ex.Hands != 5 {
		t.Fatalf("hands = %d, want 5", ex.Hands)
	}
	// A blackjack counts as a win; a surrender counts as a loss.
	if ex.Wins != 2 || ex.Losses != 2 || ex.Pushes != 1 || ex.Blackjacks != 1 {
		t.Fatalf("tallies = %+v", ex)
	}
	// 6 units wagered over 5 hands at unit size 10.
	if ex.AvgBet != 12 {
		t.Fatalf("avgBet = %g, want 12", ex.AvgBet)
	}
	if ex.Net != 0 {
		t.Fatalf("net = %g, want 0", ex.Net)
	}
	if ex.PenDepth != 0.40 {
		t.Fatalf("penDepth = %g, want deepest 0.40", ex.PenDepth)
	}

	// Population stdev of the per-hand nets 10, -20, 15, 0, -5 around mean 0.
	want := math.Sqrt((100.0 + 400 + 225 + 0 + 25) / 5)
	if math.Abs(ex.Stdev-want) > 1e-9 {
		t.Fatalf("stdev = %g, want %g", ex.Stdev, want)
	}
}
