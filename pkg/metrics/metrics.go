package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records per-provider payment flow outcomes.
type PaymentMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	emails   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_duration_seconds",
		Help:    "Duration of payment flows in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_success",
		Help: "Successful payment confirmations.",
	}, []string{"provider"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failure",
		Help: "Failed or declined payment attempts.",
	}, []string{"provider"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_email_dispatch",
		Help: "Order notification email dispatch attempts.",
	}, []string{"outcome"})
	reg.MustRegister(duration, success, failure, emails)
	return &PaymentMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		emails:   emails,
	}
}

// ObserveDuration records the wall-clock time of a payment flow.
func (p *PaymentMetrics) ObserveDuration(provider string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the provider.
func (p *PaymentMetrics) IncSuccess(provider string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncFailure increments the failure counter for the provider.
func (p *PaymentMetrics) IncFailure(provider string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncEmail counts an order email dispatch attempt by outcome (sent/failed).
func (p *PaymentMetrics) IncEmail(outcome string) {
	if p == nil || p.emails == nil {
		return
	}
	p.emails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
