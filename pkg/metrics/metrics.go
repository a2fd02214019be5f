// Package metrics exposes Prometheus collectors for the dispatch core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the dispatch collectors.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RegistryBuilds    *prometheus.CounterVec
	SessionRejections prometheus.Counter
	SessionWrites     prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restx_requests_total",
				Help: "Requests handled by the main router",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restx_request_duration_seconds",
				Help:    "Time spent routing and handling requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RegistryBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restx_registry_builds_total",
				Help: "Component registry builds by load mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		SessionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restx_session_rejections_total",
			Help: "Requests rejected because of an invalid session cookie",
		}),
		SessionWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restx_session_writes_total",
			Help: "Responses that carried a re-signed session",
		}),
	}

	for _, c := range []prometheus.Collector{m.Requests, m.RequestDuration, m.RegistryBuilds, m.SessionRejections, m.SessionWrites} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveBuild records a registry build.
func (m *Metrics) ObserveBuild(mode string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RegistryBuilds.WithLabelValues(mode, outcome).Inc()
}

// SessionRejected records a rejected session cookie.
func (m *Metrics) SessionRejected() {
	if m == nil {
		return
	}
	m.SessionRejections.Inc()
}

// SessionWritten records a re-signed session.
func (m *Metrics) SessionWritten() {
	if m == nil {
		return
	}
	m.SessionWrites.Inc()
}
