// Package metrics maintains the prometheus collectors for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for the service. A nil Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Web metrics
	requests prometheus.Counter
	errors   prometheus.Counter
	panics   prometheus.Counter

	// Sync metrics
	refreshes    *prometheus.CounterVec
	actions      *prometheus.CounterVec
	registration prometheus.Gauge
	contentItems prometheus.Gauge
	version      prometheus.Gauge
}

// New constructs the collectors under the namespace and registers them on a
// private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := Metrics{
		registry: registry,

		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of web requests handled",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of web requests that returned an error",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of recovered panics",
		}),

		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Profile refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Contract actions by name and outcome",
			},
			[]string{"action", "outcome"},
		),
		registration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registration_state",
			Help:      "Registration state of the connected account (0 unregistered, 1 pending, 2 registered)",
		}),
		contentItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_items",
			Help:      "Number of content items in the cache",
		}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_version",
			Help:      "Version of the latest committed snapshot",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.errors,
		m.panics,
		m.refreshes,
		m.actions,
		m.registration,
		m.contentItems,
		m.version,
	)

	return &m
}

// Handler returns the http handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Request counts a handled web request.
func (m *Metrics) Request() {
	if m == nil {
		return
	}
	m.requests.Inc()
}

// Error counts a web request that failed.
func (m *Metrics) Error() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

// Panic counts a recovered panic.
func (m *Metrics) Panic() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

// Refresh counts a refresh cycle. Partial means at least one fetch fell
// back to its default value.
func (m *Metrics) Refresh(partial bool) {
	if m == nil {
		return
	}

	outcome := "complete"
	if partial {
		outcome = "partial"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// Action counts the outcome of a contract action.
func (m *Metrics) Action(name string, ok bool) {
	if m == nil {
		return
	}

	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.actions.WithLabelValues(name, outcome).Inc()
}

// Snapshot records the gauges derived from a committed snapshot.
func (m *Metrics) Snapshot(version uint64, registration int, contentItems int) {
	if m == nil {
		return
	}
	m.version.Set(float64(version))
	m.registration.Set(float64(registration))
	m.contentItems.Set(float64(contentItems))
}
