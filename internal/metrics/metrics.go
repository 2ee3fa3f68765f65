// Package metrics exposes Prometheus collectors for the energy tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "energy_tracker"

// Metrics holds every collector on a dedicated registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	entriesRecorded prometheus.Counter
	energyRecorded  prometheus.Counter
	rateUpdates     prometheus.Counter
	currentRate     prometheus.Gauge
	publishErrors   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		entriesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_recorded_total",
			Help:      "Energy entries stored.",
		}),
		energyRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "energy_recorded_kwh_total",
			Help:      "Total kWh across stored entries.",
		}),
		rateUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_updates_total",
			Help:      "Billing rate changes.",
		}),
		currentRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_rate_per_kwh",
			Help:      "Billing rate most recently read or written.",
		}),
		publishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Events that could not be delivered, by event.",
		}, []string{"event"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// ObserveEntry counts one stored entry. Appliance names are free text and
// never become labels.
func (m *Metrics) ObserveEntry(kwh float64) {
	if m == nil {
		return
	}
	m.entriesRecorded.Inc()
	m.energyRecorded.Add(kwh)
}

func (m *Metrics) ObserveRateUpdate(rate float64) {
	if m == nil {
		return
	}
	m.rateUpdates.Inc()
	m.currentRate.Set(rate)
}

func (m *Metrics) SetCurrentRate(rate float64) {
	if m == nil {
		return
	}
	m.currentRate.Set(rate)
}

func (m *Metrics) ObservePublishError(event string) {
	if m == nil {
		return
	}
	m.publishErrors.With(prometheus.Labels{"event": event}).Inc()
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}).Inc()
	m.httpDuration.With(prometheus.Labels{"path": path}).Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
