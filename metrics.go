package servreg

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Setup and disposal outcomes recorded by Metrics.
const (
	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeDispatched = "dispatched"
	outcomeSkipped    = "skipped"
)

// Metrics is the Prometheus instrumentation of an Orchestrator.
// A nil *Metrics records nothing.
type Metrics struct {
	setups        *prometheus.CounterVec
	setupDuration *prometheus.HistogramVec
	disposals     *prometheus.CounterVec
	state         prometheus.Gauge
}

// NewMetrics registers the orchestrator metrics with reg.
// Passing nil registers with prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		setups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "servreg_setups_total",
				Help: "Total number of component setups by role and outcome",
			},
			[]string{"role", "outcome"}, // outcome: ok, error, dispatched, skipped
		),
		setupDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "servreg_setup_duration_seconds",
				Help:    "Duration of awaited component setups by role",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role"},
		),
		disposals: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "servreg_disposals_total",
				Help: "Total number of component disposals by kind and outcome",
			},
			[]string{"kind", "outcome"}, // kind: sync, async
		),
		state: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "servreg_orchestrator_state",
				Help: "Orchestrator state (0 constructed, 1 started, 2 stopped)",
			},
		),
	}
}

func (m *Metrics) recordSetup(role Role, outcome string) {
	if m == nil {
		return
	}
	m.setups.WithLabelValues(role.String(), outcome).Inc()
}

func (m *Metrics) observeSetup(role Role, d time.Duration) {
	if m == nil {
		return
	}
	m.setupDuration.WithLabelValues(role.String()).Observe(d.Seconds())
}

func (m *Metrics) recordDisposal(async bool, outcome string) {
	if m == nil {
		return
	}
	kind := "sync"
	if async {
		kind = "async"
	}
	m.disposals.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
