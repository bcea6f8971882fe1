package engine

import (
	"fmt"
	"strings"
)

// RulesConfig is the immutable table rule set for a session. It governs
// legality checks and selects strategy table variants.
type RulesConfig struct {
	Decks            int     `json:"decks"`
	BlackjackPays    float64 `json:"blackjackPays"`
	DealerHitsSoft17 bool    `json:"dealerHitsSoft17"`
	DoubleAfterSplit bool    `json:"doubleAfterSplit"`
	SplitAcesOnce    bool    `json:"splitAcesOnce"`
	Surrender        bool    `json:"surrender"`
}

func (rc RulesConfig) Validate() error {
	if rc.Decks <= 0 {
		return fmt.Errorf("%w: rules need a positive deck count, got %d", ErrConfig, rc.Decks)
	}
	if rc.BlackjackPays <= 1 {
		return fmt.Errorf("%w: blackjackPays must exceed even money, got %g", ErrConfig, rc.BlackjackPays)
	}
	return nil
}

// RiskModel is the immutable bet-sizing input for a session.
type RiskModel struct {
	UnitBase           float64 `json:"unitBase"`
	MaxUnit            float64 `json:"maxUnit"`
	TwoHandThresholdTC float64 `json:"twoHandThresholdTC"`
	KellyFraction      float64 `json:"kellyFraction"`
	MinEnterTC         float64 `json:"minEnterTC"`
}

func (rm RiskModel) Validate() error {
	if rm.UnitBase <= 0 {
		return fmt.Errorf("%w: unitBase must be positive, got %g", ErrConfig, rm.UnitBase)
	}
	if rm.MaxUnit < rm.UnitBase {
		return fmt.Errorf("%w: maxUnit %g below unitBase %g", ErrConfig, rm.MaxUnit, rm.UnitBase)
	}
	if rm.KellyFraction <= 0 || rm.KellyFraction > 1 {
		return fmt.Errorf("%w: kellyFraction must be in (0,1], got %g", ErrConfig, rm.KellyFraction)
	}
	return nil
}

// ZoneMap resolves vision zone ids to table positions. Explicit entries win;
// otherwise ids with the seat prefix are seats and the dealer zone (or any
// other id) is the dealer.
type ZoneMap struct {
	Seats      map[string]string `json:"seats,omitempty"`
	SeatPrefix string            `json:"seatPrefix"`
	DealerZone string            `json:"dealerZone"`
}

// DefaultZoneMap matches the calibration layout: seat_1..seat_N plus a
// dealer zone.
func DefaultZoneMap() ZoneMap {
	return ZoneMap{SeatPrefix: "seat_", DealerZone: "dealer"}
}

func (z ZoneMap) Validate() error {
	if z.SeatPrefix == "" && len(z.Seats) == 0 {
		return fmt.Errorf("%w: zone map needs a seat prefix or explicit seat entries", ErrConfig)
	}
	for zone, seat := range z.Seats {
		if zone == "" || seat == "" {
			return fmt.Errorf("%w: zone map has an empty zone or seat id", ErrConfig)
		}
	}
	return nil
}

// Resolve maps a zone id to a seat id, or reports the dealer position.
func (z ZoneMap) Resolve(zoneID string) (seatID string, dealer bool) {
	if seat, ok := z.Seats[zoneID]; ok {
		return seat, false
	}
	if z.SeatPrefix != "" && strings.HasPrefix(zoneID, z.SeatPrefix) {
		return zoneID, false
	}
	return "", true
}
