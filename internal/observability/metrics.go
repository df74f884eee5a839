// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pitchside/pitchside/internal/auth"
)

// Metrics contains custom Prometheus metrics for Pitchside.
type Metrics struct {
	SessionsActive       prometheus.Gauge
	SessionsCreatedTotal prometheus.Counter
	SessionsRemovedTotal *prometheus.CounterVec
	LoginsTotal          *prometheus.CounterVec
	AuthDecisionsTotal   *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers custom Pitchside metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pitchside_sessions_active",
			Help: "Number of sessions currently held in memory",
		}),
		SessionsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchside_sessions_created_total",
			Help: "Total number of sessions issued",
		}),
		SessionsRemovedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchside_sessions_removed_total",
				Help: "Total number of sessions removed by reason",
			},
			[]string{"reason"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchside_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		AuthDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchside_auth_decisions_total",
				Help: "Total number of authorization decisions by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchside_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchside_http_request_duration_seconds",
				Help:    "API request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.SessionsActive,
		m.SessionsCreatedTotal,
		m.SessionsRemovedTotal,
		m.LoginsTotal,
		m.AuthDecisionsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// SessionCreated implements auth.SessionMetrics.
func (m *Metrics) SessionCreated() {
	m.SessionsCreatedTotal.Inc()
}

// SessionsRemoved implements auth.SessionMetrics.
func (m *Metrics) SessionsRemoved(reason string, n int) {
	m.SessionsRemovedTotal.WithLabelValues(reason).Add(float64(n))
}

// SetActiveSessions implements auth.SessionMetrics.
func (m *Metrics) SetActiveSessions(n int) {
	m.SessionsActive.Set(float64(n))
}

// LoginAttempt implements auth.AuthMetrics.
func (m *Metrics) LoginAttempt(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// AuthDecision implements auth.AuthMetrics.
func (m *Metrics) AuthDecision(outcome string) {
	m.AuthDecisionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one completed API request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

var (
	_ auth.SessionMetrics = (*Metrics)(nil)
	_ auth.AuthMetrics    = (*Metrics)(nil)
)
