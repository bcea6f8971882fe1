package engine

import "testing"

// drainTags is the reference profile used by the deck-drain scenario: one
// full rank cycle must sum to exactly zero.
func drainTags() map[Rank]float64 {
	return map[Rank]float64{
		Two: 0.5, Three: 1, Four: 1, Five: 1.5, Six: 1, Seven: 0.5,
		Eight: 0, Nine: -0.5,
		Ten: -1, Jack: -1, Queen: -1, King: -1, Ace: -1,
	}
}

func TestDeckDrainRunningCount(t *testing.T) {
	shoe, err := NewShoe(1, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	c := NewCounter(shoe, CountProfile{Name: "drain", Tags: drainTags()})

	seq := []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
	for _, r := range seq {
		shoe.RegisterCard(r)
	}
	if got := c.RunningCount(); got != 0 {
		t.Fatalf("running count after full rank cycle = %g, want exactly 0", got)
	}
	if got := shoe.CardsSeen(); got != 13 {
		t.Fatalf("cards seen = %d, want 13", got)
	}
}

func TestRunningCountIsOrderIndependent(t *testing.T) {
	forward, err := NewShoe(6, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	backward, err := NewShoe(6, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	seq := []Rank{Five, Five, King, Two, Nine, Ace, Seven}
	for i, r := range seq {
		forward.RegisterCard(r)
		backward.RegisterCard(seq[len(seq)-1-i])
	}
	if forward.TagSum() != backward.TagSum() {
		t.Fatalf("running count depends on order: %g vs %g", forward.TagSum(), backward.TagSum())
	}
}

func TestTrueCountUnrounded(t *testing.T) {
	shoe, err := NewShoe(2, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	c := NewCounter(shoe, CountProfile{Name: "drain", Tags: drainTags()})
	shoe.RegisterCard(Five) // running 1.5
	if err := shoe.SetDecksRemaining(1); err != nil {
		t.Fatal(err)
	}
	if got := c.TrueCount(); got != 1.5 {
		t.Fatalf("unrounded true count = %g, want 1.5", got)
	}
}

func TestTrueCountRoundDownTruncatesTowardZero(t *testing.T) {
	profile := CountProfile{Name: "drain", Tags: drainTags(), RoundDownTrueCount: true}

	shoe, err := NewShoe(1, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	c := NewCounter(shoe, profile)
	// Running 2.5 against a manual 0.8-deck estimate: raw 3.125 floors to 3.
	shoe.RegisterCard(Five)
	shoe.RegisterCard(Five)
	shoe.RegisterCard(Nine)
	if got := c.RunningCount(); got != 2.5 {
		t.Fatalf("running count = %g, want 2.5", got)
	}
	if err := shoe.SetDecksRemaining(0.8); err != nil {
		t.Fatal(err)
	}
	if got := c.TrueCount(); got != 3 {
		t.Fatalf("rounded true count = %g, want 3", got)
	}

	// Negative raw values truncate toward zero, not down.
	shoe2, err := NewShoe(1, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	c2 := NewCounter(shoe2, profile)
	shoe2.RegisterCard(King)
	shoe2.RegisterCard(Ten)
	shoe2.RegisterCard(Nine) // running -2.5
	if err := shoe2.SetDecksRemaining(1); err != nil {
		t.Fatal(err)
	}
	if got := c2.TrueCount(); got != -2 {
		t.Fatalf("negative rounded true count = %g, want -2", got)
	}
}

func TestCountSnapshot(t *testing.T) {
	shoe, err := NewShoe(6, drainTags())
	if err != nil {
		t.Fatal(err)
	}
	c := NewCounter(shoe, CountProfile{Name: "drain", Tags: drainTags()})
	shoe.RegisterCard(Five)
	snap := c.Snapshot()
	if snap.Running != 1.5 {
		t.Fatalf("snapshot running = %g, want 1.5", snap.Running)
	}
	if snap.DecksRemaining >= 6 || snap.DecksRemaining <= 5.9 {
		t.Fatalf("snapshot decksRemaining = %g, want just under 6", snap.DecksRemaining)
	}
	if snap.True != snap.Running/snap.DecksRemaining {
		t.Fatalf("snapshot true = %g, want running/decksRemaining", snap.True)
	}
}

func TestCountProfileValidate(t *testing.T) {
	if err := (CountProfile{Tags: drainTags()}).Validate(); err == nil {
		t.Fatal("expected error for unnamed profile")
	}
	if err := (CountProfile{Name: "x"}).Validate(); err == nil {
		t.Fatal("expected error for empty tags")
	}
	bad := CountProfile{Name: "x", Tags: map[Rank]float64{Rank("Z"): 1}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown rank tag")
	}
	good := CountProfile{Name: "x", Tags: drainTags()}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
}
