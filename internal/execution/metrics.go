package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// LegsPlacedTotal counts trade legs by venue and resulting status.
	LegsPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_legs_placed_total",
		Help: "Total number of trade legs produced, by venue and status",
	}, []string{"venue", "status"})
)
