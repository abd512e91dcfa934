package integration

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/snaketasks/internal/integration/task"
	"github.com/dshills/snaketasks/internal/project/watcher"
)

const metricsNamespace = "snaketasks"

// Metrics records discovery activity on its own Prometheus registry.
type Metrics struct {
	registry      *prometheus.Registry
	passes        *prometheus.CounterVec
	invalidations prometheus.Counter
	watchEvents   *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewMetrics creates and registers the discovery metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "discovery_passes_total",
			Help:      "Completed task discovery passes.",
		}, []string{"err"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalidations_total",
			Help:      "Task cache invalidations.",
		}),
		watchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "watch_events_total",
			Help:      "File watch events on the definition file.",
		}, []string{"op"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "discovery_duration_seconds",
			Help:      "Duration of task discovery passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.passes, m.invalidations, m.watchEvents, m.duration)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PassCompleted implements task.DiscoveryObserver.
func (m *Metrics) PassCompleted(d time.Duration, tasks int, err error) {
	label := "false"
	if err != nil {
		label = "true"
	}
	m.passes.WithLabelValues(label).Inc()
	m.duration.Observe(d.Seconds())
}

// Invalidated implements task.DiscoveryObserver.
func (m *Metrics) Invalidated() {
	m.invalidations.Inc()
}

// WatchEvent counts a file watch event.
func (m *Metrics) WatchEvent(op watcher.Op) {
	m.watchEvents.WithLabelValues(op.String()).Inc()
}

var _ task.DiscoveryObserver = (*Metrics)(nil)
