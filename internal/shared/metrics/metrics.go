package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Payment metrics
	PaymentAttemptsTotal  *prometheus.CounterVec
	GatewaySendDuration   *prometheus.HistogramVec
	NotificationsTotal    *prometheus.CounterVec
	TransactionStatusRows *prometheus.CounterVec
}

// New creates a new Metrics instance registered with the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance registered with reg. Tests pass a
// fresh registry so repeated construction does not collide.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "commerce"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		PaymentAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "attempts_total",
				Help:      "Payment operations by gateway, action and outcome",
			},
			[]string{"gateway", "action", "outcome"},
		),
		GatewaySendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "gateway_send_duration_seconds",
				Help:      "Gateway round-trip duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"gateway", "action"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "notifications_total",
				Help:      "Asynchronous gateway notifications by gateway and result",
			},
			[]string{"gateway", "result"},
		),
		TransactionStatusRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "transactions_total",
				Help:      "Transactions persisted by type and status",
			},
			[]string{"type", "status"},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPaymentAttempt records the outcome of a payment operation.
func (m *Metrics) RecordPaymentAttempt(gateway, action, outcome string) {
	m.PaymentAttemptsTotal.WithLabelValues(gateway, action, outcome).Inc()
}

// RecordGatewaySend records the duration of a gateway round trip.
func (m *Metrics) RecordGatewaySend(gateway, action string, duration time.Duration) {
	m.GatewaySendDuration.WithLabelValues(gateway, action).Observe(duration.Seconds())
}

// RecordNotification records an asynchronous notification result.
func (m *Metrics) RecordNotification(gateway, result string) {
	m.NotificationsTotal.WithLabelValues(gateway, result).Inc()
}

// RecordTransaction records a persisted transaction row.
func (m *Metrics) RecordTransaction(txType, status string) {
	m.TransactionStatusRows.WithLabelValues(txType, status).Inc()
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
