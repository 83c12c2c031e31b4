package reactor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics instruments one Reactor's pool and dispatch activity. The
// embedding process owns exposing these through its own /metrics endpoint
// (a CLI server is out of this module's scope); this package only
// registers and updates the collectors.
//
// Unlike a process-wide singleton, each Reactor gets a private
// prometheus.Registry by default: a module that can host many independent
// Reactors in one process (as this package's own tests do) would otherwise
// collide registering the same collector names against
// prometheus.DefaultRegisterer. Callers that want cross-Reactor
// aggregation pass a shared Registerer explicitly via Config.
type metrics struct {
	poolSize      prometheus.Gauge
	acceptsTotal  prometheus.Counter
	dispatchTotal *prometheus.CounterVec
	resetsTotal   prometheus.Counter
	removalsTotal prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)

	return &metrics{
		poolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentcore",
			Name:      "pool_size",
			Help:      "Current number of pooled Connections, LISTENING and CONNECTED.",
		}),
		acceptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "accepts_total",
			Help:      "Total number of peers accepted across this Reactor's lifetime.",
		}),
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "dispatch_total",
			Help:      "Total readiness events dispatched, labeled by outcome.",
		}, []string{"outcome"}),
		resetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "resets_total",
			Help:      "Total times a Connection was reset back to LISTENING after an error.",
		}),
		removalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agentcore",
			Name:      "removals_total",
			Help:      "Total times a Connection above the minimum pool size was removed after an error.",
		}),
	}
}
