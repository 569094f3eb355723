package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker metrics live under the shared service namespace so they land next
// to the HTTP and domain series on the default registry.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "parts",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Breaker state per target: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Breaker state transitions, labelled by from/to state.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parts",
		Subsystem: "breaker",
		Name:      "opened_total",
		Help:      "Times a breaker tripped open.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
