package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	otpRequests     *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easybiz_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easybiz_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		guardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easybiz_guard_decisions_total",
				Help: "Route guard decisions by session state and action.",
			},
			[]string{"state", "action"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easybiz_profile_resolutions_total",
				Help: "Profile resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		otpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easybiz_otp_requests_total",
				Help: "OTP sends and verifications by outcome.",
			},
			[]string{"stage", "outcome"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "easybiz_active_sessions",
				Help: "Session states currently held in memory.",
			},
		),
	}
}

// Resolution outcomes.
const (
	ResolvedByUID   = "by_uid"
	ResolvedByPhone = "by_phone"
	ResolvedNone    = "not_found"
	ResolvedFailed  = "lookup_failed"
	ResolvedStale   = "stale_discarded"
)

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrDecision counts a guard decision.
func (m *Metrics) IncrDecision(state, action string) {
	m.guardDecisions.WithLabelValues(state, action).Inc()
}

// IncrResolution counts a profile resolution outcome.
func (m *Metrics) IncrResolution(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

// IncrOTP counts an OTP send or verify outcome.
func (m *Metrics) IncrOTP(stage, outcome string) {
	m.otpRequests.WithLabelValues(stage, outcome).Inc()
}

// SetActiveSessions records the number of in-memory sessions.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// ResolutionSnapshot returns the resolution counters keyed by outcome.
func (m *Metrics) ResolutionSnapshot() map[string]int {
	out := make(map[string]int)
	for _, o := range []string{ResolvedByUID, ResolvedByPhone, ResolvedNone, ResolvedFailed, ResolvedStale} {
		out[o] = int(getCounterValue(m.resolutions, o))
	}
	return out
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// CounterValue exposes a counter reading for tests and admin views.
func (m *Metrics) CounterValue(name string, labels ...string) float64 {
	switch name {
	case "resolutions":
		return getCounterValue(m.resolutions, labels...)
	case "decisions":
		return getCounterValue(m.guardDecisions, labels...)
	case "otp":
		return getCounterValue(m.otpRequests, labels...)
	case "external_errors":
		return getCounterValue(m.externalErrors, labels...)
	default:
		return 0
	}
}
