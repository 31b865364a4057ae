package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BreakerState is 1 when a venue breaker is open, 0 otherwise.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prediction_arb_breaker_open",
		Help: "Whether the venue circuit breaker is open (1) or closed (0)",
	}, []string{"venue"})

	// BreakerTransitionsTotal counts state transitions by venue and new state.
	BreakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_arb_breaker_transitions_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"venue", "state"})
)
