package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notifier"

const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Metrics groups the collectors for the action, notification and push paths.
// A nil *Metrics, or one built with a nil registerer, records nothing.
type Metrics struct {
	liveConnections prometheus.Gauge
	deliveries      *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	actions         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Currently registered real-time connections.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_deliveries_total",
			Help:      "Per-connection push attempts by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Committed notification rows by type.",
		}, []string{"type"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Applied user actions by kind and outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(m.liveConnections, m.deliveries, m.notifications, m.actions)
	return m
}

func (m *Metrics) SetLiveConnections(n int) {
	if m == nil || m.liveConnections == nil {
		return
	}
	m.liveConnections.Set(float64(n))
}

func (m *Metrics) IncDelivery(result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) IncNotification(notificationType string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

func (m *Metrics) IncAction(action, outcome string) {
	if m == nil || m.actions == nil {
		return
	}
	m.actions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
