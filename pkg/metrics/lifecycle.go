package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records application status changes and their side effects.
type LifecycleMetrics struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cascade       *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_transitions_total",
		Help: "Application status transition attempts by source, target and result.",
	}, []string{"from", "to", "result"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_notifications_total",
		Help: "Lifecycle emails by kind and outcome.",
	}, []string{"kind", "outcome"})
	cascade := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "product_cascade_duration_seconds",
		Help:    "Duration of product availability cascades in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(transitions, notifications, cascade)
	return &LifecycleMetrics{
		transitions:   transitions,
		notifications: notifications,
		cascade:       cascade,
	}
}

// IncTransition counts a transition attempt.
func (m *LifecycleMetrics) IncTransition(from, to, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// IncNotification counts a dispatched (or failed) lifecycle email.
func (m *LifecycleMetrics) IncNotification(kind string, sent bool) {
	if m == nil || m.notifications == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), outcome).Inc()
}

// ObserveCascade records how long a cascade took and whether every application succeeded.
func (m *LifecycleMetrics) ObserveCascade(duration time.Duration, failed int) {
	if m == nil || m.cascade == nil {
		return
	}
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	m.cascade.WithLabelValues(outcome).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
