package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter            = otel.Meter("tabletrack/engine")
	penetrationGauge metric.Float64Gauge
	cardsCommitted   metric.Int64Counter
	mutationsDenied  metric.Int64Counter
)

func init() {
	var err error
	penetrationGauge, err = meter.Float64Gauge("shoe.penetration",
		metric.WithDescription("Fraction of the shoe already dealt"))
	if err != nil {
		otel.Handle(err)
	}
	cardsCommitted, err = meter.Int64Counter("session.cards_committed",
		metric.WithDescription("Card observations committed to the round state"))
	if err != nil {
		otel.Handle(err)
	}
	mutationsDenied, err = meter.Int64Counter("session.mutations_rejected",
		metric.WithDescription("Commands and observations rejected by legality checks"))
	if err != nil {
		otel.Handle(err)
	}
}

func recordPenetration(p float64) {
	if penetrationGauge != nil {
		penetrationGauge.Record(context.Background(), p)
	}
}

func countCommit() {
	if cardsCommitted != nil {
		cardsCommitted.Add(context.Background(), 1)
	}
}

func countRejection() {
	if mutationsDenied != nil {
		mutationsDenied.Add(context.Background(), 1)
	}
}
