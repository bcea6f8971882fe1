package engine

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultCorrectionWindow bounds how far back (in event-time seconds) an
// operator override may reach.
const DefaultCorrectionWindow = 5.0

// DefaultConfidenceFloor is the observation confidence below which a
// non-blocking warning is raised for operator confirmation.
const DefaultConfidenceFloor = 0.60

// SessionConfig is everything a session needs up front. All of it is
// immutable once NewSession returns.
type SessionConfig struct {
	Rules            RulesConfig
	Profile          CountProfile
	Zones            ZoneMap
	CorrectionWindow float64 // seconds of event time; 0 means default
	ConfidenceFloor  float64 // 0 means default
}

// Session is the single serialization point for one table. Every mutation
// (observation, command, override) runs under one lock, commits fully or not
// at all, and lands in the audit log either way.
type Session struct {
	mu      sync.Mutex
	rules   RulesConfig
	profile CountProfile
	zones   ZoneMap
	window  float64
	confMin float64

	shoe    *Shoe
	counter *Counter
	audit   *AuditLog

	round     *Round // nil while idle
	lastRound *Round // most recently finalized round, still override-reachable
	roundSeq  int
	obsSeq    int64
	lastTime  float64

	// obsIndex maps observation identity to its current card location so a
	// correction is O(1), not O(history).
	obsIndex map[int64]*obsRecord
}

type obsRecord struct {
	obs     CardObservation
	hand    *Hand
	cardIdx int
}

// NewSession validates the configuration and builds an idle session. Any
// validation failure is a ConfigError and prevents beginRound entirely.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if cfg.Zones.SeatPrefix == "" && cfg.Zones.DealerZone == "" && len(cfg.Zones.Seats) == 0 {
		cfg.Zones = DefaultZoneMap()
	}
	if err := cfg.Zones.Validate(); err != nil {
		return nil, err
	}
	if cfg.CorrectionWindow < 0 {
		return nil, fmt.Errorf("%w: correction window must not be negative, got %g", ErrConfig, cfg.CorrectionWindow)
	}
	if cfg.CorrectionWindow == 0 {
		cfg.CorrectionWindow = DefaultCorrectionWindow
	}
	if cfg.ConfidenceFloor == 0 {
		cfg.ConfidenceFloor = DefaultConfidenceFloor
	}
	shoe, err := NewShoe(cfg.Rules.Decks, cfg.Profile.Tags)
	if err != nil {
		return nil, err
	}
	return &Session{
		rules:    cfg.Rules,
		profile:  cfg.Profile,
		zones:    cfg.Zones,
		window:   cfg.CorrectionWindow,
		confMin:  cfg.ConfidenceFloor,
		shoe:     shoe,
		counter:  NewCounter(shoe, cfg.Profile),
		audit:    NewAuditLog(),
		obsIndex: make(map[int64]*obsRecord),
	}, nil
}

// Audit exposes the append-only trail for subscribers (persistence, UI).
func (s *Session) Audit() *AuditLog { return s.audit }

func (s *Session) Rules() RulesConfig { return s.rules }

// reject records a denied mutation and returns the error. State is untouched.
func (s *Session) reject(ts float64, event string, err error) error {
	countRejection()
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditRejected,
		Event:     event,
		Reason:    err.Error(),
	})
	return err
}

// checkOrder rejects events that arrive later than the correction window
// allows. Mild reordering inside the window is tolerated.
func (s *Session) checkOrder(ts float64, event string) error {
	if ts < s.lastTime-s.window {
		return s.reject(ts, event, fmt.Errorf("%w: event at t=%g is older than the correction window (last t=%g)",
			ErrInvalidTransition, ts, s.lastTime))
	}
	if ts > s.lastTime {
		s.lastTime = ts
	}
	return nil
}

// BeginRound starts a new round. Legal only while idle.
func (s *Session) BeginRound(ts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "beginRound"); err != nil {
		return err
	}
	return s.beginRoundLocked(ts)
}

func (s *Session) beginRoundLocked(ts float64) error {
	if s.round != nil {
		return s.reject(ts, "beginRound", fmt.Errorf("%w: round %d is still active", ErrInvalidTransition, s.round.ID))
	}
	s.roundSeq++
	s.round = newRound(s.roundSeq)
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "roundStarted",
		After:     RoundRef{Round: s.roundSeq},
	})
	return nil
}

// RoundRef names a round in audit payloads.
type RoundRef struct {
	Round int `json:"round"`
}

// CardAdded is the audit payload for a committed observation.
type CardAdded struct {
	Round     int           `json:"round"`
	SeatID    string        `json:"seatId"`
	HandIndex int           `json:"handIndex"`
	Rank      Rank          `json:"rank"`
	Seq       int64         `json:"seq"`
	Dealer    bool          `json:"dealer,omitempty"`
	Count     CountSnapshot `json:"count"`
}

// CommitObservation appends the observed card to the addressed hand,
// registers it with the shoe, and audits the mutation. An observation that
// arrives while idle begins a round implicitly, matching live capture
// streams that open with the first dealt card.
func (s *Session) CommitObservation(obs CardObservation) (CardAdded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(obs.Timestamp, "commitObservation"); err != nil {
		return CardAdded{}, err
	}
	if !obs.Rank.Valid() {
		return CardAdded{}, s.reject(obs.Timestamp, "commitObservation",
			fmt.Errorf("%w: unknown rank %q", ErrInvalidTransition, obs.Rank))
	}
	if s.round == nil {
		if err := s.beginRoundLocked(obs.Timestamp); err != nil {
			return CardAdded{}, err
		}
	}

	seatID, dealer := s.zones.Resolve(obs.ZoneID)
	var hand *Hand
	if dealer {
		hand = s.round.Dealer
	} else {
		hand = s.round.seat(seatID).nextHandForCard()
		if hand == nil {
			return CardAdded{}, s.reject(obs.Timestamp, "commitObservation",
				fmt.Errorf("%w: all hands at %s are locked split aces", ErrInvalidTransition, seatID))
		}
	}

	s.obsSeq++
	obs.Seq = s.obsSeq
	hand.Cards = append(hand.Cards, obs.Rank)
	hand.obsSeqs = append(hand.obsSeqs, obs.Seq)
	s.shoe.RegisterCard(obs.Rank)
	s.obsIndex[obs.Seq] = &obsRecord{obs: obs, hand: hand, cardIdx: len(hand.Cards) - 1}
	countCommit()

	added := CardAdded{
		Round:     s.round.ID,
		SeatID:    hand.SeatID,
		HandIndex: hand.Index,
		Rank:      obs.Rank,
		Seq:       obs.Seq,
		Dealer:    dealer,
		Count:     s.counter.Snapshot(),
	}
	s.audit.Append(AuditEntry{
		Timestamp: obs.Timestamp,
		Kind:      AuditObservation,
		Event:     "cardAdded",
		After:     added,
	})
	if obs.Confidence < s.confMin {
		s.audit.Append(AuditEntry{
			Timestamp: obs.Timestamp,
			Kind:      AuditWarning,
			Event:     "lowConfidence",
			After:     obs,
			Reason:    fmt.Sprintf("confidence %.2f below floor %.2f", obs.Confidence, s.confMin),
		})
	}
	return added, nil
}

// Split turns a two-card pair at the seat into two hands. Under the
// split-aces-once rule, split aces are locked: no resplit, one card each.
func (s *Session) Split(ts float64, seatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "split"); err != nil {
		return err
	}
	if s.round == nil {
		return s.reject(ts, "split", fmt.Errorf("%w: no active round", ErrInvalidTransition))
	}
	seat, ok := s.round.Seats[seatID]
	if !ok {
		return s.reject(ts, "split", fmt.Errorf("%w: seat %s has no cards this round", ErrInvalidTransition, seatID))
	}
	if len(seat.Hands) != 1 {
		return s.reject(ts, "split", fmt.Errorf("%w: seat %s already split", ErrInvalidTransition, seatID))
	}
	first := seat.Hands[0]
	if first.Locked {
		return s.reject(ts, "split", fmt.Errorf("%w: split aces may not be resplit", ErrInvalidTransition))
	}
	if len(first.Cards) != 2 || !first.IsPair() {
		return s.reject(ts, "split", fmt.Errorf("%w: seat %s does not hold a two-card pair", ErrInvalidTransition, seatID))
	}

	second := newHand(seatID, 1)
	second.SplitFrom = 0
	second.Cards = []Rank{first.Cards[1]}
	second.obsSeqs = []int64{first.obsSeqs[1]}
	first.Cards = first.Cards[:1]
	first.obsSeqs = first.obsSeqs[:1]
	first.SplitFrom = 0
	if rec, ok := s.obsIndex[second.obsSeqs[0]]; ok {
		rec.hand = second
		rec.cardIdx = 0
	}
	if first.Cards[0] == Ace && s.rules.SplitAcesOnce {
		first.Locked = true
		second.Locked = true
	}
	seat.Hands = append(seat.Hands, second)

	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "handSplit",
		After: SplitPayload{
			Round:  s.round.ID,
			SeatID: seatID,
			Hands:  []HandView{first.view(), second.view()},
			Locked: first.Locked,
		},
	})
	return nil
}

// SplitPayload is the audit payload for a split.
type SplitPayload struct {
	Round  int        `json:"round"`
	SeatID string     `json:"seatId"`
	Hands  []HandView `json:"hands"`
	Locked bool       `json:"locked"`
}

// Double marks the hand doubled. Legal only as the hand's first action on an
// unmodified two-card hand, and only when the rules allow doubling a split
// hand.
func (s *Session) Double(ts float64, seatID string, handIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "double"); err != nil {
		return err
	}
	if s.round == nil {
		return s.reject(ts, "double", fmt.Errorf("%w: no active round", ErrInvalidTransition))
	}
	seat, ok := s.round.Seats[seatID]
	if !ok {
		return s.reject(ts, "double", fmt.Errorf("%w: seat %s has no cards this round", ErrInvalidTransition, seatID))
	}
	if handIndex < 0 || handIndex >= len(seat.Hands) {
		return s.reject(ts, "double", fmt.Errorf("%w: seat %s has no hand %d", ErrInvalidTransition, seatID, handIndex))
	}
	hand := seat.Hands[handIndex]
	switch {
	case hand.Doubled:
		return s.reject(ts, "double", fmt.Errorf("%w: hand already doubled", ErrInvalidTransition))
	case hand.Locked:
		return s.reject(ts, "double", fmt.Errorf("%w: split aces may not double", ErrInvalidTransition))
	case len(hand.Cards) != 2:
		return s.reject(ts, "double", fmt.Errorf("%w: double requires an unmodified two-card hand, have %d cards", ErrInvalidTransition, len(hand.Cards)))
	case hand.SplitFrom >= 0 && !s.rules.DoubleAfterSplit:
		return s.reject(ts, "double", fmt.Errorf("%w: rules forbid double after split", ErrInvalidTransition))
	}
	hand.Doubled = true
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "handDoubled",
		After: DoublePayload{
			Round:     s.round.ID,
			SeatID:    seatID,
			HandIndex: handIndex,
		},
	})
	return nil
}

// DoublePayload is the audit payload for a double.
type DoublePayload struct {
	Round     int    `json:"round"`
	SeatID    string `json:"seatId"`
	HandIndex int    `json:"handIndex"`
}

// OverrideCard corrects a committed observation. Legal inside the correction
// window even after the owning round finalized; the shoe takes the tag delta
// and the hand swaps the card in place, so the correction is O(1).
func (s *Session) OverrideCard(ts float64, obsSeq int64, newRank Rank) (CardObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "overrideCard"); err != nil {
		return CardObservation{}, err
	}
	if !newRank.Valid() {
		return CardObservation{}, s.reject(ts, "overrideCard",
			fmt.Errorf("%w: unknown rank %q", ErrInvalidTransition, newRank))
	}
	rec, ok := s.obsIndex[obsSeq]
	if !ok {
		return CardObservation{}, s.reject(ts, "overrideCard",
			fmt.Errorf("%w: no observation with seq %d", ErrInvalidTransition, obsSeq))
	}
	if ts-rec.obs.Timestamp > s.window {
		return CardObservation{}, s.reject(ts, "overrideCard",
			fmt.Errorf("%w: observation %d is %.1fs old, window is %.1fs",
				ErrStaleOverride, obsSeq, ts-rec.obs.Timestamp, s.window))
	}

	before := rec.obs
	s.obsSeq++
	corrected := before
	corrected.Seq = s.obsSeq
	corrected.Timestamp = ts
	corrected.Rank = newRank
	corrected.Supersedes = before.Seq

	rec.hand.Cards[rec.cardIdx] = newRank
	rec.hand.obsSeqs[rec.cardIdx] = corrected.Seq
	s.shoe.SwapCard(before.Rank, newRank)
	delete(s.obsIndex, before.Seq)
	rec.obs = corrected
	s.obsIndex[corrected.Seq] = rec

	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditOverride,
		Event:     "cardOverridden",
		Before:    before,
		After:     corrected,
	})
	return corrected, nil
}

// HandResult assigns an outcome to one hand at finalize.
type HandResult struct {
	SeatID    string  `json:"seatId"`
	HandIndex int     `json:"handIndex"`
	Result    Outcome `json:"result"`
}

// HandOutcomeRecord is the per-hand settlement emitted at finalize. It
// carries enough (units wagered, signed net) for external aggregation
// without re-deriving engine state.
type HandOutcomeRecord struct {
	Round       int     `json:"round"`
	SeatID      string  `json:"seatId"`
	HandIndex   int     `json:"handIndex"`
	Result      Outcome `json:"result"`
	Units       float64 `json:"units"`
	Net         float64 `json:"net"` // signed payout in units
	Blackjack   bool    `json:"blackjack"`
	Penetration float64 `json:"penetration"`
}

// FinalizeRound settles every hand and returns the session to idle. Either
// every hand gets a valid outcome and the round closes, or nothing changes.
func (s *Session) FinalizeRound(ts float64, results []HandResult) ([]HandOutcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "finalizeRound"); err != nil {
		return nil, err
	}
	if s.round == nil {
		return nil, s.reject(ts, "finalizeRound", fmt.Errorf("%w: no active round", ErrInvalidTransition))
	}

	// Validate the full result set before mutating anything.
	assigned := make(map[*Hand]Outcome)
	for _, r := range results {
		if !r.Result.Valid() {
			return nil, s.reject(ts, "finalizeRound", fmt.Errorf("%w: unknown outcome %q", ErrInvalidTransition, r.Result))
		}
		seat, ok := s.round.Seats[r.SeatID]
		if !ok {
			return nil, s.reject(ts, "finalizeRound", fmt.Errorf("%w: seat %s has no cards this round", ErrInvalidTransition, r.SeatID))
		}
		if r.HandIndex < 0 || r.HandIndex >= len(seat.Hands) {
			return nil, s.reject(ts, "finalizeRound", fmt.Errorf("%w: seat %s has no hand %d", ErrInvalidTransition, r.SeatID, r.HandIndex))
		}
		h := seat.Hands[r.HandIndex]
		if _, dup := assigned[h]; dup {
			return nil, s.reject(ts, "finalizeRound", fmt.Errorf("%w: duplicate outcome for %s hand %d", ErrInvalidTransition, r.SeatID, r.HandIndex))
		}
		assigned[h] = r.Result
	}
	for _, seat := range s.round.Seats {
		for _, h := range seat.Hands {
			if _, ok := assigned[h]; !ok {
				return nil, s.reject(ts, "finalizeRound",
					fmt.Errorf("%w: missing outcome for %s hand %d", ErrInvalidTransition, seat.ID, h.Index))
			}
		}
	}

	pen := s.shoe.Penetration()
	records := make([]HandOutcomeRecord, 0, len(assigned))
	for _, r := range results {
		h := s.round.Seats[r.SeatID].Hands[r.HandIndex]
		h.Outcome = r.Result
		units := h.WagerUnits()
		var net float64
		switch r.Result {
		case OutcomeWin:
			net = units
		case OutcomeLoss:
			net = -units
		case OutcomeBlackjack:
			net = units * s.rules.BlackjackPays
		case OutcomeSurrender:
			net = -units / 2
		}
		rec := HandOutcomeRecord{
			Round:       s.round.ID,
			SeatID:      r.SeatID,
			HandIndex:   r.HandIndex,
			Result:      r.Result,
			Units:       units,
			Net:         net,
			Blackjack:   r.Result == OutcomeBlackjack,
			Penetration: pen,
		}
		records = append(records, rec)
		s.audit.Append(AuditEntry{
			Timestamp: ts,
			Kind:      AuditOutcome,
			Event:     "handSettled",
			After:     rec,
		})
	}

	s.round.Final = true
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "roundFinalized",
		After:     RoundRef{Round: s.round.ID},
	})
	s.lastRound = s.round
	s.round = nil
	return records, nil
}

// ResetShoe clears shoe state for a new physical shoe. Legal only while
// idle. decks 0 keeps the configured deck count.
func (s *Session) ResetShoe(ts float64, decks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "resetShoe"); err != nil {
		return err
	}
	if s.round != nil {
		return s.reject(ts, "resetShoe", fmt.Errorf("%w: round %d is still active", ErrInvalidTransition, s.round.ID))
	}
	if decks == 0 {
		decks = s.rules.Decks
	}
	if err := s.shoe.Reset(decks); err != nil {
		return s.reject(ts, "resetShoe", err)
	}
	// Corrections cannot cross a shuffle.
	s.obsIndex = make(map[int64]*obsRecord)
	s.lastRound = nil
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "shoeReset",
		After:     map[string]int{"decks": decks},
	})
	return nil
}

// SetDecksRemaining installs or clears (value 0) the operator's deck
// estimate used for true count normalization.
func (s *Session) SetDecksRemaining(ts float64, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOrder(ts, "setDecksRemaining"); err != nil {
		return err
	}
	before := s.shoe.DecksRemaining()
	if err := s.shoe.SetDecksRemaining(value); err != nil {
		return s.reject(ts, "setDecksRemaining", err)
	}
	s.audit.Append(AuditEntry{
		Timestamp: ts,
		Kind:      AuditCommand,
		Event:     "decksRemainingSet",
		Before:    before,
		After:     s.shoe.DecksRemaining(),
	})
	return nil
}

// -- Queries --------------------------------------------------------------

func (s *Session) RunningCount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.RunningCount()
}

func (s *Session) TrueCount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.TrueCount()
}

func (s *Session) CountSnapshot() CountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.Snapshot()
}

func (s *Session) Penetration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shoe.Penetration()
}

// Active reports whether a round is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round != nil
}

// Upcard returns the dealer's visible card of the active round.
func (s *Session) Upcard() Rank {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return ""
	}
	return s.round.Upcard()
}

// Hands returns read-only views of every player hand in the active round,
// ordered by seat id then hand index.
func (s *Session) Hands() []HandView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return nil
	}
	seatIDs := make([]string, 0, len(s.round.Seats))
	for id := range s.round.Seats {
		seatIDs = append(seatIDs, id)
	}
	sort.Strings(seatIDs)
	var out []HandView
	for _, id := range seatIDs {
		for _, h := range s.round.Seats[id].Hands {
			out = append(out, h.view())
		}
	}
	return out
}

// HandView returns a copy of one hand in the active round.
func (s *Session) HandView(seatID string, handIndex int) (HandView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return HandView{}, fmt.Errorf("%w: no active round", ErrInvalidTransition)
	}
	seat, ok := s.round.Seats[seatID]
	if !ok {
		return HandView{}, fmt.Errorf("%w: seat %s has no cards this round", ErrInvalidTransition, seatID)
	}
	if handIndex < 0 || handIndex >= len(seat.Hands) {
		return HandView{}, fmt.Errorf("%w: seat %s has no hand %d", ErrInvalidTransition, seatID, handIndex)
	}
	return seat.Hands[handIndex].view(), nil
}
