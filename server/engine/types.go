package engine

type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists every card rank in canonical order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// Value returns the blackjack value of the rank, counting aces as 11.
func (r Rank) Value() int {
	switch r {
	case Ace:
		return 11
	case Ten, Jack, Queen, King:
		return 10
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	}
	return 0
}

// Valid reports whether r is one of the thirteen card ranks.
func (r Rank) Valid() bool { return r.Value() != 0 }

type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

// CardObservation is a single card sighting reported by the vision
// collaborator. Observations are immutable; a correction creates a new
// observation referencing the one it supersedes.
type CardObservation struct {
	Seq        int64   `json:"seq"` // assigned by the session at commit
	Timestamp  float64 `json:"timestamp"`
	ZoneID     string  `json:"zoneId"`
	Rank       Rank    `json:"rank"`
	Suit       Suit    `json:"suit,omitempty"`
	Confidence float64 `json:"confidence"`
	Supersedes int64   `json:"supersedes,omitempty"`
}

type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomePush      Outcome = "push"
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeSurrender Outcome = "surrender"
)

// Valid reports whether o is a recognized hand result.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomePush, OutcomeBlackjack, OutcomeSurrender:
		return true
	}
	return false
}

// Hand is one blackjack hand at a seat. A seat starts with hand 0 and gains
// further hands only through splits.
type Hand struct {
	SeatID  string
	Index   int
	Cards   []Rank
	obsSeqs []int64 // observation seq per card, parallel to Cards
	Doubled bool
	// SplitFrom is the index of the hand this one was split off, -1 for an
	// original hand.
	SplitFrom int
	// Locked marks a split-ace hand that may not resplit and takes at most
	// one more card.
	Locked  bool
	Outcome Outcome // empty until finalizeRound
}

func newHand(seatID string, index int) *Hand {
	return &Hand{SeatID: seatID, Index: index, SplitFrom: -1}
}

// Total returns the best blackjack total of the hand and whether it is soft
// (an ace still counted as 11).
func (h *Hand) Total() (int, bool) {
	total, aces := 0, 0
	for _, c := range h.Cards {
		total += c.Value()
		if c == Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// IsPair reports whether the hand is exactly two cards of equal value.
// Ten-valued cards (10/J/Q/K) pair with each other.
func (h *Hand) IsPair() bool {
	return len(h.Cards) == 2 && h.Cards[0].Value() == h.Cards[1].Value()
}

// IsBlackjack reports a natural: two cards totalling 21 on an unsplit hand.
func (h *Hand) IsBlackjack() bool {
	if len(h.Cards) != 2 || h.SplitFrom >= 0 {
		return false
	}
	total, _ := h.Total()
	return total == 21
}

// WagerUnits is the hand's unit multiplier for accounting: 1, or 2 after a
// double.
func (h *Hand) WagerUnits() float64 {
	if h.Doubled {
		return 2
	}
	return 1
}

// Seat owns the ordered hands for one table position.
type Seat struct {
	ID    string
	Hands []*Hand
}

func newSeat(id string) *Seat {
	return &Seat{ID: id, Hands: []*Hand{newHand(id, 0)}}
}

// nextHandForCard picks the hand the next dealt card belongs to: fewest
// cards first, lowest index on ties. Locked split-ace hands that already
// drew their one card are skipped.
func (s *Seat) nextHandForCard() *Hand {
	var best *Hand
	for _, h := range s.Hands {
		if h.Locked && len(h.Cards) >= 2 {
			continue
		}
		if best == nil || len(h.Cards) < len(best.Cards) {
			best = h
		}
	}
	return best
}

// Round is one dealt round. Hands are closed at finalize; afterwards only
// card overrides inside the correction window may touch them.
type Round struct {
	ID     int
	Dealer *Hand
	Seats  map[string]*Seat
	Final  bool
}

func newRound(id int) *Round {
	return &Round{
		ID:     id,
		Dealer: newHand("dealer", 0),
		Seats:  make(map[string]*Seat),
	}
}

func (r *Round) seat(id string) *Seat {
	s, ok := r.Seats[id]
	if !ok {
		s = newSeat(id)
		r.Seats[id] = s
	}
	return s
}

// Upcard returns the dealer's first visible card, or "" before any dealer
// card is observed.
func (r *Round) Upcard() Rank {
	if len(r.Dealer.Cards) == 0 {
		return ""
	}
	return r.Dealer.Cards[0]
}

// HandView is a read-only copy of a hand handed to the strategy and bet
// engines.
type HandView struct {
	SeatID    string
	HandIndex int
	Cards     []Rank
	Doubled   bool
	FromSplit bool
}

func (h *Hand) view() HandView {
	return HandView{
		SeatID:    h.SeatID,
		HandIndex: h.Index,
		Cards:     append([]Rank(nil), h.Cards...),
		Doubled:   h.Doubled,
		FromSplit: h.SplitFrom >= 0,
	}
}
