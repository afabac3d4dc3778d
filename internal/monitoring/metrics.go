// Package monitoring holds the process-wide Prometheus collectors.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors so callers can pass them around instead of
// touching package globals.
type Metrics struct {
	ScansTotal      *prometheus.CounterVec
	TokensIssued    *prometheus.CounterVec
	TimeFetches     *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	DisplaySessions prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrinout",
			Name:      "scans_total",
			Help:      "Scan attempts by action and outcome reason.",
		}, []string{"action", "reason"}),
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrinout",
			Name:      "tokens_issued_total",
			Help:      "Tokens minted for display, by mode.",
		}, []string{"mode"}),
		TimeFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrinout",
			Name:      "time_fetches_total",
			Help:      "External time lookups by provider and result.",
		}, []string{"provider", "result"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qrinout",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		DisplaySessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qrinout",
			Name:      "display_logins_total",
			Help:      "Successful display device logins.",
		}),
	}
}

// ScanOutcome records one scan decision. reason is "accepted" for successes.
func (m *Metrics) ScanOutcome(action, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "accepted"
	}
	m.ScansTotal.WithLabelValues(action, reason).Inc()
}

// TimeFetch records one external time lookup attempt.
func (m *Metrics) TimeFetch(provider, result string) {
	if m == nil {
		return
	}
	m.TimeFetches.WithLabelValues(provider, result).Inc()
}
