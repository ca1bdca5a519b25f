package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetLiveConnections(3)
	m.IncDelivery(DeliveryDelivered)
	m.IncDelivery(DeliveryDelivered)
	m.IncDelivery(DeliveryFailed)
	m.IncNotification("LIKE")
	m.IncAction("like", "created")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 3.0, gaugeValue(t, mfs, "notifier_live_connections"))
	assert.Equal(t, 2.0, counterValue(t, mfs, "notifier_push_deliveries_total", "result", DeliveryDelivered))
	assert.Equal(t, 1.0, counterValue(t, mfs, "notifier_push_deliveries_total", "result", DeliveryFailed))
	assert.Equal(t, 1.0, counterValue(t, mfs, "notifier_notifications_created_total", "type", "LIKE"))
	assert.Equal(t, 1.0, counterValue(t, mfs, "notifier_actions_total", "outcome", "created"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetLiveConnections(1)
		m.IncDelivery(DeliveryFailed)
		m.IncNotification("FOLLOW")
		m.IncAction("follow", "removed")
	})
	assert.NotPanics(t, func() {
		New(nil).IncDelivery(DeliveryDelivered)
	})
}

func findFamily(t *testing.T, mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %q not found", name)
	return nil
}

func gaugeValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	mf := findFamily(t, mfs, name)
	require.Len(t, mf.GetMetric(), 1)
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	mf := findFamily(t, mfs, name)
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %q with %s=%s not found", name, label, value)
	return 0
}
