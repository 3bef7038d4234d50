package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the access gateway.
type Metrics struct {
	// Decisions by effect and reason code
	Decisions *prometheus.CounterVec

	// Overall access latency including audit append
	AccessLatency prometheus.Histogram

	// Audit append failures (each one failed an access)
	AuditFailures prometheus.Counter

	// High-risk accesses that triggered the alert channel
	HighRiskAlerts prometheus.Counter

	// Emergency overrides taken (policy rule outcome)
	EmergencyOverrides prometheus.Counter
}

// New creates a Metrics instance with all gateway metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentra_access_decisions_total",
			Help: "Access decisions by effect and reason code",
		}, []string{"effect", "reason"}),

		AccessLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentra_access_duration_seconds",
			Help:    "Duration of full access handling including audit append",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentra_audit_append_failures_total",
			Help: "Audit append failures, each of which failed its access",
		}),

		HighRiskAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentra_high_risk_alerts_total",
			Help: "High-risk accesses fanned out to the alert channel",
		}),

		EmergencyOverrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentra_emergency_overrides_total",
			Help: "Accesses granted through the emergency override rule",
		}),
	}
}

// IncrementDecision records a decision outcome.
func (m *Metrics) IncrementDecision(effect, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(effect, reason).Inc()
	}
}

// ObserveAccessLatency records the total access duration.
func (m *Metrics) ObserveAccessLatency(d time.Duration) {
	if m != nil {
		m.AccessLatency.Observe(d.Seconds())
	}
}

// IncrementAuditFailure records a failed audit append.
func (m *Metrics) IncrementAuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

// IncrementHighRiskAlert records a high-risk alert fan-out.
func (m *Metrics) IncrementHighRiskAlert() {
	if m != nil {
		m.HighRiskAlerts.Inc()
	}
}

// IncrementEmergencyOverride records an emergency-override grant.
func (m *Metrics) IncrementEmergencyOverride() {
	if m != nil {
		m.EmergencyOverrides.Inc()
	}
}
