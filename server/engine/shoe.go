package engine

import "fmt"

// minDecksRemaining is the floor applied to decks-remaining estimates so the
// true count divisor never collapses near the cut card. Pinned reference
// constant; changing it changes every true count the engine reports.
const minDecksRemaining = 0.25

const cardsPerDeck = 52

// Shoe tracks the physical shoe between shuffles: cards seen, cumulative
// count tag weight, and the decks-remaining estimate.
type Shoe struct {
	totalDecks int
	cardsSeen  int
	tagSum     float64
	tags       map[Rank]float64
	// manualDecks is an operator-supplied decks-remaining estimate that
	// overrides the cards-seen inference. Zero means unset.
	manualDecks float64
}

// NewShoe builds a shoe for totalDecks decks counted with the given tag
// weights.
func NewShoe(totalDecks int, tags map[Rank]float64) (*Shoe, error) {
	if totalDecks <= 0 {
		return nil, fmt.Errorf("%w: deck count must be positive, got %d", ErrConfig, totalDecks)
	}
	s := &Shoe{totalDecks: totalDecks, tags: make(map[Rank]float64, len(tags))}
	for r, w := range tags {
		s.tags[r] = w
	}
	return s, nil
}

// RegisterCard accounts one dealt card: cards seen and the running tag sum.
func (s *Shoe) RegisterCard(r Rank) {
	s.cardsSeen++
	s.tagSum += s.tags[r]
	recordPenetration(s.Penetration())
}

// SwapCard retroactively replaces one already-registered card. Cards seen is
// unchanged; only the tag delta is applied, so a correction is O(1).
func (s *Shoe) SwapCard(old, new Rank) {
	s.tagSum += s.tags[new] - s.tags[old]
}

// Reset clears the shoe for a fresh shuffle of totalDecks decks.
func (s *Shoe) Reset(totalDecks int) error {
	if totalDecks <= 0 {
		return fmt.Errorf("%w: deck count must be positive, got %d", ErrConfig, totalDecks)
	}
	s.totalDecks = totalDecks
	s.cardsSeen = 0
	s.tagSum = 0
	s.manualDecks = 0
	recordPenetration(0)
	return nil
}

// SetDecksRemaining installs an operator estimate of decks remaining.
// Passing 0 clears the estimate and returns to cards-seen inference.
func (s *Shoe) SetDecksRemaining(decks float64) error {
	if decks < 0 {
		return fmt.Errorf("%w: decks remaining must be positive, got %g", ErrConfig, decks)
	}
	s.manualDecks = decks
	return nil
}

// DecksRemaining estimates the decks left in the shoe: the manual override
// when set, otherwise totalDecks minus cardsSeen/52, floored at 0.25.
func (s *Shoe) DecksRemaining() float64 {
	if s.manualDecks > 0 {
		return max(s.manualDecks, minDecksRemaining)
	}
	remaining := float64(s.totalDecks) - float64(s.cardsSeen)/cardsPerDeck
	return max(remaining, minDecksRemaining)
}

// Penetration is the fraction of the shoe already dealt.
func (s *Shoe) Penetration() float64 {
	return float64(s.cardsSeen) / float64(s.totalDecks*cardsPerDeck)
}

func (s *Shoe) CardsSeen() int  { return s.cardsSeen }
func (s *Shoe) TagSum() float64 { return s.tagSum }
func (s *Shoe) TotalDecks() int { return s.totalDecks }
