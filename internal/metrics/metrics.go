// Package metrics holds the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	LoginSuccess    = "success"
	LoginInvalid    = "invalid_credentials"
	LoginUnverified = "email_not_verified"
	LoginLocked     = "locked"
	LoginError      = "error"
)

// Metrics is the set of portal collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	LoginAttempts      *prometheus.CounterVec
	Lockouts           prometheus.Counter
	GuardStoreErrors   *prometheus.CounterVec
	Signups            *prometheus.CounterVec
	PasswordResets     *prometheus.CounterVec
	BadgeApplications  *prometheus.CounterVec
	RateLimited        *prometheus.CounterVec
	PanicsRecovered    prometheus.Counter
	AuthServiceLatency *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "farmgate_login_lockouts_total",
			Help: "Times the login attempt guard imposed a lock.",
		}),
		GuardStoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_guard_store_errors_total",
			Help: "Guard storage failures that were answered fail-open.",
		}, []string{"op"}),
		Signups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_signups_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		PasswordResets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_password_resets_total",
			Help: "Password reset requests and completions by step and result.",
		}, []string{"step", "result"}),
		BadgeApplications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_badge_applications_total",
			Help: "Driver badge applications by result.",
		}, []string{"result"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "farmgate_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}, []string{"group"}),
		PanicsRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "farmgate_http_panics_recovered_total",
			Help: "HTTP requests recovered from a handler panic.",
		}),
		AuthServiceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmgate_auth_service_request_seconds",
			Help:    "Latency of calls to the external auth service.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveLogin counts a login outcome. Safe on a nil receiver.
func (m *Metrics) ObserveLogin(outcome string, lockedNow bool) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
	if lockedNow {
		m.Lockouts.Inc()
	}
}

// GuardStoreError counts a guard storage failure. Safe on a nil receiver.
func (m *Metrics) GuardStoreError(op string, _ error) {
	if m == nil {
		return
	}
	m.GuardStoreErrors.WithLabelValues(op).Inc()
}

// ObserveSignup counts a registration result. Safe on a nil receiver.
func (m *Metrics) ObserveSignup(result string) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(result).Inc()
}

// ObservePasswordReset counts a reset step ("request" or "update"). Safe on a nil receiver.
func (m *Metrics) ObservePasswordReset(step, result string) {
	if m == nil {
		return
	}
	m.PasswordResets.WithLabelValues(step, result).Inc()
}

// ObserveBadge counts a badge application result. Safe on a nil receiver.
func (m *Metrics) ObserveBadge(result string) {
	if m == nil {
		return
	}
	m.BadgeApplications.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a rejected request. Safe on a nil receiver.
func (m *Metrics) ObserveRateLimited(group string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(group).Inc()
}

// ObservePanic counts a recovered handler panic. Safe on a nil receiver.
func (m *Metrics) ObservePanic() {
	if m == nil {
		return
	}
	m.PanicsRecovered.Inc()
}

// ObserveAuthCall records the latency of one auth service call. Safe on a nil receiver.
func (m *Metrics) ObserveAuthCall(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.AuthServiceLatency.WithLabelValues(operation).Observe(d.Seconds())
}
