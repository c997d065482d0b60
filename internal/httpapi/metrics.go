package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/metamindiq/quantum-sync/internal/registry"
)

// #region metrics

// Metrics holds the engine counters exposed at /metrics. Each Server owns
// its own prometheus registry so handlers can be constructed repeatedly in
// one process.
type Metrics struct {
	registry *prometheus.Registry

	StatesCreated prometheus.Counter
	Updates       prometheus.Counter
	Merges        prometheus.Counter
	Entanglements prometheus.Counter
	Observations  prometheus.Counter
}

func newMetrics(reg *registry.Registry) *Metrics {
	promReg := prometheus.NewRegistry()
	factory := promauto.With(promReg)

	m := &Metrics{
		registry: promReg,
		StatesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantum_sync_states_created_total",
			Help: "State vectors created through the API.",
		}),
		Updates: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantum_sync_updates_total",
			Help: "Accepted state updates.",
		}),
		Merges: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantum_sync_merges_total",
			Help: "Accepted state merges.",
		}),
		Entanglements: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantum_sync_entanglements_total",
			Help: "Entangle requests, including idempotent repeats and no-ops.",
		}),
		Observations: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantum_sync_observations_total",
			Help: "Observe reads served.",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "quantum_sync_retained_versions",
		Help: "State versions currently retained by the registry.",
	}, func() float64 {
		return float64(reg.Len())
	})

	return m
}

// #endregion metrics
