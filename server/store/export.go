package store

import (
	"math"

	"tabletrack/server/engine"
)

// Export is the session summary consumed by downstream reporting. Money
// fields are in table currency (units scaled by the unit size in play).
type Export struct {
	Hands      int     `json:"hands"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Pushes     int     `json:"pushes"`
	Blackjacks int     `json:"blackjacks"`
	AvgBet     float64 `json:"avgBet"`
	Net        float64 `json:"net"`
	Stdev      float64 `json:"stdev"`
	PenDepth   float64 `json:"penDepth"`
}

// Summarize aggregates per-hand settlements into the export summary. The
// engine emits everything needed here; no round state is re-derived.
func Summarize(recs []engine.HandOutcomeRecord, unitSize float64) Export {
	var ex Export
	if len(recs) == 0 {
		return ex
	}

	var wagered, sumNet float64
	nets := make([]float64, 0, len(recs))
	for _, rec := range recs {
		ex.Hands++
		switch rec.Result {
		case engine.OutcomeWin:
			ex.Wins++
		case engine.OutcomeBlackjack:
			ex.Wins++
			ex.Blackjacks++
		case engine.OutcomeLoss, engine.OutcomeSurrender:
			ex.Losses++
		case engine.OutcomePush:
			ex.Pushes++
		}
		wagered += rec.Units * unitSize
		net := rec.Net * unitSize
		sumNet += net
		nets = append(nets, net)
		if rec.Penetration > ex.PenDepth {
			ex.PenDepth = rec.Penetration
		}
	}

	ex.AvgBet = wagered / float64(ex.Hands)
	ex.Net = sumNet

	mean := sumNet / float64(len(nets))
	var variance float64
	for _, n := range nets {
		variance += (n - mean) * (n - mean)
	}
	ex.Stdev = math.Sqrt(variance / float64(len(nets)))
	return ex
}
