package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aci"

// Registry holds the application metrics and the Prometheus registry they
// are registered with.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SessionsActive        prometheus.Gauge
	SessionsAuthenticated *prometheus.CounterVec

	EventsDelivered prometheus.Counter
	EventsDropped   prometheus.Counter

	PersistOps *prometheus.CounterVec
}

// NewRegistry creates a registry with the application metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Commands handled, by command and result.",
		}, []string{"command", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Command handling latency.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"command"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open client connections.",
		}),
		SessionsAuthenticated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_authenticated_total",
			Help:      "Successful authentications, by identity kind.",
		}, []string{"kind"}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events written to a destination session.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events that failed to reach a destination session.",
		}),
		PersistOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_operations_total",
			Help:      "Disk operations, by operation and result.",
		}, []string{"op", "result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.SessionsActive,
		r.SessionsAuthenticated,
		r.EventsDelivered,
		r.EventsDropped,
		r.PersistOps,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the /metrics handler of the process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Register adds a collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// RecordRequest counts one handled command and its latency.
func (r *Registry) RecordRequest(command, result string, seconds float64) {
	r.RequestsTotal.WithLabelValues(command, result).Inc()
	r.RequestDuration.WithLabelValues(command).Observe(seconds)
}

// SessionOpened and SessionClosed track open connections.
func (r *Registry) SessionOpened() { r.SessionsActive.Inc() }
func (r *Registry) SessionClosed() { r.SessionsActive.Dec() }

// RecordAuthentication counts a successful authentication.
func (r *Registry) RecordAuthentication(kind string) {
	r.SessionsAuthenticated.WithLabelValues(kind).Inc()
}

// RecordEvent counts one event delivery attempt.
func (r *Registry) RecordEvent(delivered bool) {
	if delivered {
		r.EventsDelivered.Inc()
	} else {
		r.EventsDropped.Inc()
	}
}

// ObservePersist counts a disk operation. It satisfies storage.Observer.
func (r *Registry) ObservePersist(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.PersistOps.WithLabelValues(op, result).Inc()
}
