// Package metrics exposes glance counters in Prometheus format.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render results.
const (
	ResultRendered = "rendered"
	ResultNoOp     = "noop"
)

// Deep-link events.
const (
	LinkDelivered = "delivered"
	LinkDuplicate = "duplicate"
	LinkDropped   = "dropped"
	LinkPulled    = "pulled"
	LinkPullEmpty = "pull_empty"
)

// Boot-sync outcomes.
const (
	BootCompleted = "completed"
	BootFailed    = "failed"
	BootTimeout   = "timeout"
	BootSkipped   = "skipped"
	BootBusy      = "busy"
)

// Metrics holds every glance collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	renders     *prometheus.CounterVec
	deepLinks   *prometheus.CounterVec
	bootRuns    *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	wakeLock    prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glance",
			Name:      "renders_total",
			Help:      "Surface render requests by surface kind and result.",
		}, []string{"kind", "result"}),
		deepLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glance",
			Name:      "deeplinks_total",
			Help:      "Deep-link router events.",
		}, []string{"event"}),
		bootRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glance",
			Name:      "boot_runs_total",
			Help:      "Boot sync job outcomes.",
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glance",
			Name:      "store_errors_total",
			Help:      "Snapshot store failures swallowed on the preview path.",
		}, []string{"op"}),
		wakeLock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "glance",
			Name:      "wakelock_held",
			Help:      "1 while the boot sync wake lock is held.",
		}),
	}
	m.registry.MustRegister(m.renders, m.deepLinks, m.bootRuns, m.storeErrors, m.wakeLock)
	return m
}

// Handler serves the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Render(kind, result string) {
	if m != nil {
		m.renders.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) DeepLink(event string) {
	if m != nil {
		m.deepLinks.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) BootRun(outcome string) {
	if m != nil {
		m.bootRuns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) StoreError(op string) {
	if m != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) WakeLockHeld(held bool) {
	if m == nil {
		return
	}
	if held {
		m.wakeLock.Set(1)
	} else {
		m.wakeLock.Set(0)
	}
}
