package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics counts the outcomes of core state-machine operations.
type CoreMetrics struct {
	operations      *prometheus.CounterVec
	failures        *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	eventsEmitted   *prometheus.CounterVec
	productsPending prometheus.Gauge
}

var (
	coreOnce     sync.Once
	coreRegistry *CoreMetrics
)

// Core returns the process-wide core metrics, registering them on first use.
func Core() *CoreMetrics {
	coreOnce.Do(func() {
		coreRegistry = &CoreMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "agrichain_core_operations_total",
				Help: "Count of core operations by module and operation name.",
			}, []string{"module", "op"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "agrichain_core_operation_failures_total",
				Help: "Count of rejected core operations by module and operation name.",
			}, []string{"module", "op"}),
			rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "agrichain_core_rate_limited_total",
				Help: "Count of calls rejected by the rolling-window rate limiter, by action kind.",
			}, []string{"kind"}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "agrichain_core_events_emitted_total",
				Help: "Count of structured events emitted by type.",
			}, []string{"type"}),
			productsPending: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "agrichain_registry_products_pending",
				Help: "Products currently awaiting approval.",
			}),
		}
		prometheus.MustRegister(
			coreRegistry.operations,
			coreRegistry.failures,
			coreRegistry.rateLimited,
			coreRegistry.eventsEmitted,
			coreRegistry.productsPending,
		)
	})
	return coreRegistry
}

// ObserveOperation records one attempted operation and its outcome.
func (m *CoreMetrics) ObserveOperation(module, op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(module, op).Inc()
	if err != nil {
		m.failures.WithLabelValues(module, op).Inc()
	}
}

// ObserveRateLimited records a quota rejection for the action kind.
func (m *CoreMetrics) ObserveRateLimited(kind string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(kind).Inc()
}

// ObserveEvent records one emitted event by type.
func (m *CoreMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

// ProductsPendingAdd moves the pending-approval gauge by delta. The gauge
// tracks this process's view since startup, not a durable count.
func (m *CoreMetrics) ProductsPendingAdd(delta float64) {
	if m == nil {
		return
	}
	m.productsPending.Add(delta)
}
