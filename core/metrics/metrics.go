package metrics

import (
	"time"

	"license-agent/core/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records reconcile cycle events. It satisfies reconcile.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	queryFailures *prometheus.CounterVec
	retired       *prometheus.CounterVec
}

// New creates the agent metrics on a dedicated registry, including the
// per-feature gauges read from ledger.
func New(ledger LedgerSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_agent_reconcile_cycles_total",
			Help: "The number of reconcile cycles by status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "license_agent_reconcile_duration_seconds",
			Help:    "The duration of reconcile cycles.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		queryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_agent_query_failures_total",
			Help: "The number of configurations whose license servers could not be queried.",
		}, []string{"server_type"}),
		retired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_agent_bookings_retired_total",
			Help: "The number of bookings retired by reconcile cycles, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.queryFailures,
		m.retired,
		&FeatureCollector{Ledger: ledger},
	)
	return m
}

// Registry returns the registry holding every agent metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) CycleFinished(status string, duration time.Duration) {
	m.cycles.WithLabelValues(status).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) QueryFailed(serverType models.ServerType) {
	m.queryFailures.WithLabelValues(string(serverType)).Inc()
}

func (m *Metrics) BookingsRetired(reason string, count int) {
	if count <= 0 {
		return
	}
	m.retired.WithLabelValues(reason).Add(float64(count))
}
