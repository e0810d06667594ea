package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the engine's Prometheus collectors.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Dispatches  *prometheus.CounterVec
	Retries     prometheus.Counter
	InFlight    prometheus.Gauge
	VaultOps    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them against reg.
// A nil registerer leaves them unregistered, which tests and embedders that
// bring their own registry use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guichet_task_transitions_total",
				Help: "Total number of task state transitions",
			},
			[]string{"from", "to"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guichet_dispatches_total",
				Help: "Total number of completed dispatch runs by result",
			},
			[]string{"result"},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guichet_submission_retries_total",
				Help: "Total number of retried external calls",
			},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guichet_dispatches_in_flight",
				Help: "Number of dispatches currently holding a worker slot",
			},
		),
		VaultOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guichet_vault_operations_total",
				Help: "Total number of vault operations by op and result",
			},
			[]string{"op", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Transitions, m.Dispatches, m.Retries, m.InFlight, m.VaultOps)
	}
	return m
}
