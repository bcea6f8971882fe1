package engine

import (
	"fmt"
	"math"
)

// CountProfile is an immutable counting system definition: per-rank tag
// weights plus the true-count rounding policy.
type CountProfile struct {
	Name               string           `json:"name"`
	Tags               map[Rank]float64 `json:"tags"`
	RoundDownTrueCount bool             `json:"roundDownTrueCount"`
}

// Validate checks the profile before a session may begin.
func (p CountProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: count profile needs a name", ErrConfig)
	}
	if len(p.Tags) == 0 {
		return fmt.Errorf("%w: count profile %q has no tags", ErrConfig, p.Name)
	}
	for r := range p.Tags {
		if !r.Valid() {
			return fmt.Errorf("%w: count profile %q tags unknown rank %q", ErrConfig, p.Name, r)
		}
	}
	return nil
}

// CountSnapshot is the counting state at one instant.
type CountSnapshot struct {
	Running        float64 `json:"running"`
	True           float64 `json:"true"`
	DecksRemaining float64 `json:"decksRemaining"`
}

// Counter derives running and true counts from a shoe and a profile.
// Recomputation is O(1) per query; the shoe carries the cumulative tag sum.
type Counter struct {
	shoe    *Shoe
	profile CountProfile
}

func NewCounter(shoe *Shoe, profile CountProfile) *Counter {
	return &Counter{shoe: shoe, profile: profile}
}

// RunningCount is the cumulative tag sum of every card seen since the last
// shoe reset.
func (c *Counter) RunningCount() float64 { return c.shoe.TagSum() }

// TrueCount is the running count normalized by decks remaining. When the
// profile asks for rounding, the final quotient is truncated toward zero;
// the decks-remaining divisor is never rounded.
func (c *Counter) TrueCount() float64 {
	raw := c.RunningCount() / c.shoe.DecksRemaining()
	if !c.profile.RoundDownTrueCount {
		return raw
	}
	if raw >= 0 {
		return math.Floor(raw)
	}
	return math.Ceil(raw)
}

// Snapshot captures running, true, and decks remaining together.
func (c *Counter) Snapshot() CountSnapshot {
	return CountSnapshot{
		Running:        c.RunningCount(),
		True:           c.TrueCount(),
		DecksRemaining: c.shoe.DecksRemaining(),
	}
}
