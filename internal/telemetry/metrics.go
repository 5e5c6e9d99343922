// Package telemetry exposes prometheus metrics for the API access layer.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfo"

// Metrics groups the collectors recorded by the API client and the
// connectivity prober. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Attempts         *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ConnectivityUp   prometheus.Gauge
	ConnectivityFlap prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_attempts_total",
				Help:      "Transport attempts by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_fallbacks_total",
				Help:      "Responses served from a fallback tier, by endpoint and source.",
			},
			[]string{"endpoint", "source"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Wall time from call to resolved result, including retries.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"endpoint"},
		),
		ConnectivityUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectivity_online",
			Help:      "1 when the backend is considered reachable.",
		}),
		ConnectivityFlap: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_changes_total",
			Help:      "Number of online/offline transitions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Attempts, m.Fallbacks, m.RequestDuration, m.ConnectivityUp, m.ConnectivityFlap)
	}
	return m
}

func (m *Metrics) RecordAttempt(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) RecordFallback(endpoint, source string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(endpoint, source).Inc()
}

func (m *Metrics) ObserveRequest(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// SetOnline records the current connectivity state; changed marks a transition.
func (m *Metrics) SetOnline(online, changed bool) {
	if m == nil {
		return
	}
	if online {
		m.ConnectivityUp.Set(1)
	} else {
		m.ConnectivityUp.Set(0)
	}
	if changed {
		m.ConnectivityFlap.Inc()
	}
}

// Handler exposes /metrics for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
