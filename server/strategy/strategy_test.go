package strategy

import (
	"errors"
	"testing"

	"tabletrack/server/engine"
)

func s17Rules() engine.RulesConfig {
	return engine.RulesConfig{
		Decks:            6,
		BlackjackPays:    1.5,
		DoubleAfterSplit: true,
		SplitAcesOnce:    true,
	}
}

func loadAdvisor(t *testing.T, rules engine.RulesConfig) *Advisor {
	t.Helper()
	a, err := Load(rules)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return a
}

func hand(cards ...engine.Rank) engine.HandView {
	return engine.HandView{SeatID: "seat_1", Cards: cards}
}

func mustAdvise(t *testing.T, a *Advisor, hv engine.HandView, up engine.Rank, tc float64) Advice {
	t.Helper()
	advice, err := a.Advise(hv, up, tc)
	if err != nil {
		t.Fatalf("Advise %v vs %s @ TC %g: %v", hv.Cards, up, tc, err)
	}
	return advice
}

func TestSixteenVsTenFlipsAtTrueCountZero(t *testing.T) {
	a := loadAdvisor(t, s17Rules()) // no surrender offered
	hv := hand(engine.Ten, engine.Six)

	got := mustAdvise(t, a, hv, engine.Ten, -1)
	if got.Action != Hit || got.DeviationTag != "" {
		t.Fatalf("16 vs 10 at TC -1 = %+v, want plain Hit", got)
	}

	got = mustAdvise(t, a, hv, engine.Ten, 0)
	if got.Action != Stand {
		t.Fatalf("16 vs 10 at TC 0 = %s, want Stand", got.Action)
	}
	if got.DeviationTag != "I18-2" || got.Tooltip == "" {
		t.Fatalf("deviation annotation missing: %+v", got)
	}
}

func TestSurrenderResolution(t *testing.T) {
	rules := s17Rules()
	rules.Surrender = true
	a := loadAdvisor(t, rules)

	got := mustAdvise(t, a, hand(engine.Ten, engine.Six), engine.Ten, -1)
	if got.Action != Surrender {
		t.Fatalf("16 vs 10 with surrender = %s, want Surrender", got.Action)
	}
	// Three cards: the surrender window has passed, the code falls back.
	got = mustAdvise(t, a, hand(engine.Ten, engine.Four, engine.Two), engine.Ten, -1)
	if got.Action != Hit {
		t.Fatalf("three-card 16 vs 10 = %s, want Hit", got.Action)
	}
	// The deviation still outranks surrender at the threshold.
	got = mustAdvise(t, a, hand(engine.Ten, engine.Six), engine.Ten, 0)
	if got.Action != Stand || got.DeviationTag != "I18-2" {
		t.Fatalf("16 vs 10 at TC 0 with surrender = %+v, want deviation Stand", got)
	}
}

func TestDoubleResolvesToHitOnThreeCards(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	got := mustAdvise(t, a, hand(engine.Five, engine.Six), engine.Three, 0)
	if got.Action != Double {
		t.Fatalf("two-card 11 vs 3 = %s, want Double", got.Action)
	}
	got = mustAdvise(t, a, hand(engine.Two, engine.Four, engine.Five), engine.Three, 0)
	if got.Action != Hit {
		t.Fatalf("three-card 11 vs 3 = %s, want Hit", got.Action)
	}
}

func TestPairs(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	if got := mustAdvise(t, a, hand(engine.Eight, engine.Eight), engine.Ten, 0); got.Action != Split {
		t.Fatalf("8,8 vs 10 = %s, want Split", got.Action)
	}
	// K/10 is a ten pair and stands everywhere.
	if got := mustAdvise(t, a, hand(engine.King, engine.Ten), engine.Six, 0); got.Action != Stand {
		t.Fatalf("K,10 vs 6 = %s, want Stand", got.Action)
	}
	// 4,4 vs 5 splits only when doubling after split is allowed.
	if got := mustAdvise(t, a, hand(engine.Four, engine.Four), engine.Five, 0); got.Action != Split {
		t.Fatalf("4,4 vs 5 with DAS = %s, want Split", got.Action)
	}
	noDAS := s17Rules()
	noDAS.DoubleAfterSplit = false
	a2 := loadAdvisor(t, noDAS)
	if got := mustAdvise(t, a2, hand(engine.Four, engine.Four), engine.Five, 0); got.Action != Hit {
		t.Fatalf("4,4 vs 5 without DAS = %s, want Hit", got.Action)
	}
}

func TestSoftEighteen(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	if got := mustAdvise(t, a, hand(engine.Ace, engine.Seven), engine.Three, 0); got.Action != Double {
		t.Fatalf("soft 18 vs 3 = %s, want Double", got.Action)
	}
	if got := mustAdvise(t, a, hand(engine.Ace, engine.Seven), engine.Nine, 0); got.Action != Hit {
		t.Fatalf("soft 18 vs 9 = %s, want Hit", got.Action)
	}
	// Ds on a three-card soft 18 falls back to Stand.
	if got := mustAdvise(t, a, hand(engine.Ace, engine.Three, engine.Four), engine.Three, 0); got.Action != Stand {
		t.Fatalf("three-card soft 18 vs 3 = %s, want Stand", got.Action)
	}
	if got := mustAdvise(t, a, hand(engine.Ace, engine.Seven), engine.Two, 0); got.Action != Stand {
		t.Fatalf("soft 18 vs 2 under S17 = %s, want Stand", got.Action)
	}
}

func TestHitSoftSeventeenOverlay(t *testing.T) {
	h17 := s17Rules()
	h17.DealerHitsSoft17 = true
	a := loadAdvisor(t, h17)

	// Soft 18 vs 2 flips from Stand to Double under H17.
	if got := mustAdvise(t, a, hand(engine.Ace, engine.Seven), engine.Two, 0); got.Action != Double {
		t.Fatalf("soft 18 vs 2 under H17 = %s, want Double", got.Action)
	}
	// Hard 11 vs ace flips from Hit to Double. TC 0 keeps the hard 11 vs A
	// deviation (threshold 1) out of the way.
	if got := mustAdvise(t, a, hand(engine.Six, engine.Five), engine.Ace, 0); got.Action != Double {
		t.Fatalf("11 vs A under H17 = %s, want Double", got.Action)
	}
	s17 := loadAdvisor(t, s17Rules())
	if got := mustAdvise(t, s17, hand(engine.Six, engine.Five), engine.Ace, 0); got.Action != Hit {
		t.Fatalf("11 vs A under S17 = %s, want Hit", got.Action)
	}
}

func TestDoublingDeviation(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	hv := hand(engine.Six, engine.Four)
	if got := mustAdvise(t, a, hv, engine.Ten, 4); got.Action != Double || got.DeviationTag != "I18-6" {
		t.Fatalf("10 vs 10 at TC 4 = %+v, want deviation Double", got)
	}
	if got := mustAdvise(t, a, hv, engine.Ten, 3.9); got.Action != Hit || got.DeviationTag != "" {
		t.Fatalf("10 vs 10 at TC 3.9 = %+v, want plain Hit", got)
	}
}

func TestTakeInsurance(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	take, tag := a.TakeInsurance(engine.Ace, 3)
	if !take || tag != "I18-1" {
		t.Fatalf("insurance at TC 3 vs A = %v %q, want true I18-1", take, tag)
	}
	if take, _ := a.TakeInsurance(engine.Ace, 2.9); take {
		t.Fatal("insurance should not fire below TC 3")
	}
	if take, _ := a.TakeInsurance(engine.Ten, 5); take {
		t.Fatal("insurance only applies against an ace")
	}
}

func TestAdviseLookupErrors(t *testing.T) {
	a := loadAdvisor(t, s17Rules())
	if _, err := a.Advise(hand(engine.Ten), engine.Six, 0); !errors.Is(err, engine.ErrLookup) {
		t.Fatalf("one-card hand: got %v, want LookupError", err)
	}
	if _, err := a.Advise(hand(engine.Ten, engine.Nine, engine.Five), engine.Six, 0); !errors.Is(err, engine.ErrLookup) {
		t.Fatalf("busted hand: got %v, want LookupError", err)
	}
	if _, err := a.Advise(hand(engine.Ten, engine.Six), engine.Rank("X"), 0); !errors.Is(err, engine.ErrLookup) {
		t.Fatalf("unknown upcard: got %v, want LookupError", err)
	}
}
