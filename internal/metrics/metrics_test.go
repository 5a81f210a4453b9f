package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ReadingProcessed()
	m.ReadingProcessed()
	m.ReadingRejected()
	m.Prediction("Bad", []string{"Good", "Moderate", "Bad"}, []float64{0.1, 0.2, 0.7})
	m.Alert("mq2_high", OutcomeDelivered)
	m.Alert("mq2_high", OutcomeSuppressed)
	m.Alert("mq2_high", OutcomeSuppressed)
	m.StoreError()

	if got := testutil.ToFloat64(m.readingsTotal); got != 2 {
		t.Errorf("readings: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejectedTotal); got != 1 {
		t.Errorf("rejected: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.predictionsTotal.WithLabelValues("Bad")); got != 1 {
		t.Errorf("predictions: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastProbability.WithLabelValues("Bad")); got != 0.7 {
		t.Errorf("last probability: got %v, want 0.7", got)
	}
	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues("mq2_high", OutcomeSuppressed)); got != 2 {
		t.Errorf("suppressed alerts: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.storeErrors); got != 1 {
		t.Errorf("store errors: got %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ReadingProcessed()
	m.ReadingRejected()
	m.Prediction("Good", nil, nil)
	m.Alert("ai_bad", OutcomeFailed)
	m.StoreError()
}
