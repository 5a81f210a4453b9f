// Package metrics exposes Prometheus counters for the monitoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Alert outcomes
const (
	OutcomeDelivered  = "delivered"
	OutcomeFailed     = "failed"
	OutcomeSuppressed = "suppressed"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	readingsTotal    prometheus.Counter
	rejectedTotal    prometheus.Counter
	predictionsTotal *prometheus.CounterVec
	alertsTotal      *prometheus.CounterVec
	storeErrors      prometheus.Counter
	lastProbability  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_readings_total",
			Help: "Total readings processed.",
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_readings_rejected_total",
			Help: "Total incoming readings rejected by schema validation.",
		}),
		predictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aq_predictions_total",
			Help: "Total classifier predictions by predicted label.",
		}, []string{"label"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aq_alerts_total",
			Help: "Alert conditions by condition and outcome (delivered, failed, suppressed).",
		}, []string{"condition", "outcome"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aq_store_errors_total",
			Help: "Total failed writes to the time-series store.",
		}),
		lastProbability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aq_last_probability",
			Help: "Class probabilities of the latest prediction.",
		}, []string{"label"}),
	}

	reg.MustRegister(
		m.readingsTotal,
		m.rejectedTotal,
		m.predictionsTotal,
		m.alertsTotal,
		m.storeErrors,
		m.lastProbability,
	)
	return m
}

func (m *Metrics) ReadingProcessed() {
	if m == nil {
		return
	}
	m.readingsTotal.Inc()
}

func (m *Metrics) ReadingRejected() {
	if m == nil {
		return
	}
	m.rejectedTotal.Inc()
}

// Prediction records a prediction and its probability vector
func (m *Metrics) Prediction(label string, classNames []string, proba []float64) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(label).Inc()
	for i, p := range proba {
		if i < len(classNames) {
			m.lastProbability.WithLabelValues(classNames[i]).Set(p)
		}
	}
}

func (m *Metrics) Alert(condition, outcome string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(condition, outcome).Inc()
}

func (m *Metrics) StoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
