// Package feed defines the narrow contracts between the decision engine and
// its external collaborators: capture/vision producers upstream and
// persistence consumers downstream. The engine never assumes a concrete
// adapter implementation.
package feed

import (
	"context"
	"fmt"

	"tabletrack/server/engine"
)

// Observation is the wire shape of a card sighting from the vision
// collaborator.
type Observation struct {
	ZoneID     string    `json:"zoneId"`
	Rank       string    `json:"rank"`
	Suit       string    `json:"suit,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// Event is one timestamped pipeline event: an observation or an operator
// command with its payload.
type Event struct {
	T       float64
	Obs     *Observation
	Command string
	Payload map[string]any
}

// Capture produces an ordered event stream, either live or replayed from a
// fixture.
type Capture interface {
	Stream() ([]Event, error)
}

// Recorder consumes engine egress: audit entries and per-hand settlements.
type Recorder interface {
	RecordAudit(ctx context.Context, e engine.AuditEntry) error
	RecordOutcome(ctx context.Context, rec engine.HandOutcomeRecord) error
}

// ToCardObservation converts a wire observation into the engine type. A
// missing confidence means the producer did not score the sighting and is
// treated as fully confident rather than as zero.
func (o Observation) ToCardObservation(t float64) (engine.CardObservation, error) {
	rank := engine.Rank(o.Rank)
	if !rank.Valid() {
		return engine.CardObservation{}, fmt.Errorf("observation at t=%g has unknown rank %q", t, o.Rank)
	}
	conf := 1.0
	if o.Confidence != nil {
		conf = *o.Confidence
	}
	return engine.CardObservation{
		Timestamp:  t,
		ZoneID:     o.ZoneID,
		Rank:       rank,
		Suit:       engine.Suit(o.Suit),
		Confidence: conf,
	}, nil
}
