package bets

import (
	"testing"

	"tabletrack/server/engine"
)

func testRisk() engine.RiskModel {
	return engine.RiskModel{
		UnitBase:           10,
		MaxUnit:            100,
		TwoHandThresholdTC: 2,
		KellyFraction:      0.5,
		MinEnterTC:         1,
	}
}

func TestSuggestBelowEntryThreshold(t *testing.T) {
	got := Suggest(0.5, 10000, testRisk(), 0)
	if got.HandCount != 1 || got.UnitSize != 10 {
		t.Fatalf("below entry = %+v, want 1 hand at base unit", got)
	}
	if got.Rationale != "below entry threshold" {
		t.Fatalf("rationale = %q", got.Rationale)
	}
}

func TestSuggestKellyStake(t *testing.T) {
	// Edge at TC 1 is 0.5%; half Kelly on 10k is 25.
	got := Suggest(1, 10000, testRisk(), 0)
	if got.HandCount != 1 || got.UnitSize != 25 {
		t.Fatalf("TC 1 = %+v, want 1 hand of 25", got)
	}
	if got.Rationale != "kelly stake at TC +1.0" {
		t.Fatalf("rationale = %q", got.Rationale)
	}
}

func TestSuggestTwoHandsAtThreshold(t *testing.T) {
	got := Suggest(2, 10000, testRisk(), 0)
	if got.HandCount != 2 || got.UnitSize != 50 {
		t.Fatalf("TC 2 = %+v, want 2 hands of 50", got)
	}
}

func TestSuggestCap(t *testing.T) {
	got := Suggest(5, 10000, testRisk(), 0)
	if got.UnitSize != 100 || got.Rationale != "cap applied" {
		t.Fatalf("TC 5 = %+v, want cap of 100", got)
	}
}

func TestSuggestTableLimit(t *testing.T) {
	got := Suggest(2, 10000, testRisk(), 40)
	if got.UnitSize != 40 || got.Rationale != "table limit applied" {
		t.Fatalf("TC 2 limited = %+v, want table limit 40", got)
	}
	// A limit above the computed unit changes nothing.
	got = Suggest(2, 10000, testRisk(), 60)
	if got.UnitSize != 50 {
		t.Fatalf("slack table limit = %+v, want 50", got)
	}
}

func TestSuggestFloorsAtBaseUnit(t *testing.T) {
	// Half Kelly on a 1k bankroll at TC 1 is 2.50, below the base unit.
	got := Suggest(1, 1000, testRisk(), 0)
	if got.UnitSize != 10 || got.Rationale != "floored at base unit" {
		t.Fatalf("small bankroll = %+v, want base unit floor", got)
	}
}
