package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BotMetrics aggregates Prometheus collectors for order and payment flows.
type BotMetrics struct {
	OrdersCreatedTotal   prometheus.CounterVec
	OrdersCompletedTotal prometheus.CounterVec

	PaymentsConfirmedTotal prometheus.CounterVec
	PaymentReplaysTotal    prometheus.Counter
	PaymentIncidentsTotal  prometheus.Counter

	GatewayRequestDuration prometheus.HistogramVec
	AgentRequestDuration   prometheus.Histogram

	ReportsSentTotal prometheus.Counter
}

// New registers and returns the collector set used across the application.
func New() *BotMetrics {
	return &BotMetrics{
		OrdersCreatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cash_healer_orders_created_total",
				Help: "Total number of created orders",
			},
			[]string{"service_type"},
		),
		OrdersCompletedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cash_healer_orders_completed_total",
				Help: "Total number of orders that reached a terminal completed status",
			},
			[]string{"service_type"},
		),
		PaymentsConfirmedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cash_healer_payments_confirmed_total",
				Help: "Total number of confirmed payments",
			},
			[]string{"service_type"},
		),
		PaymentReplaysTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cash_healer_payment_replays_total",
				Help: "Total number of duplicate confirmation attempts absorbed idempotently",
			},
		),
		PaymentIncidentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cash_healer_payment_incidents_total",
				Help: "Total number of failed compensating rollbacks requiring manual intervention",
			},
		),
		GatewayRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cash_healer_gateway_request_duration_seconds",
				Help:    "Duration of payment gateway API calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"operation", "outcome"},
		),
		AgentRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cash_healer_agent_request_duration_seconds",
				Help:    "Duration of conversational agent calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		ReportsSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cash_healer_reports_sent_total",
				Help: "Total number of reports dispatched by the admin",
			},
		),
	}
}

// RecordOrderCreated counts a newly created order.
func (m *BotMetrics) RecordOrderCreated(serviceType string) {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.WithLabelValues(serviceType).Inc()
}

// RecordOrderCompleted counts an order reaching its terminal status.
func (m *BotMetrics) RecordOrderCompleted(serviceType string) {
	if m == nil {
		return
	}
	m.OrdersCompletedTotal.WithLabelValues(serviceType).Inc()
}

// RecordPaymentConfirmed counts a first-time payment confirmation.
func (m *BotMetrics) RecordPaymentConfirmed(serviceType string) {
	if m == nil {
		return
	}
	m.PaymentsConfirmedTotal.WithLabelValues(serviceType).Inc()
}

// RecordPaymentReplay counts a duplicate confirmation absorbed without side effects.
func (m *BotMetrics) RecordPaymentReplay() {
	if m == nil {
		return
	}
	m.PaymentReplaysTotal.Inc()
}

// RecordPaymentIncident counts a rollback failure left for manual resolution.
func (m *BotMetrics) RecordPaymentIncident() {
	if m == nil {
		return
	}
	m.PaymentIncidentsTotal.Inc()
}

// RecordGatewayRequest observes a single gateway call.
func (m *BotMetrics) RecordGatewayRequest(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(seconds)
}

// RecordAgentRequest observes a single agent call.
func (m *BotMetrics) RecordAgentRequest(seconds float64) {
	if m == nil {
		return
	}
	m.AgentRequestDuration.Observe(seconds)
}

// RecordReportSent counts a report delivered to a customer.
func (m *BotMetrics) RecordReportSent() {
	if m == nil {
		return
	}
	m.ReportsSentTotal.Inc()
}
