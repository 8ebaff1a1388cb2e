// Package observability exposes Prometheus metrics for the payment gateway
// core. The host process serves them from its own /metrics endpoint.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsInitiatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_payments_initiated_total",
		Help: "Total number of payment sessions initiated",
	}, []string{
		"mode", // mock, production
	})

	checkoutResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_checkout_resolutions_total",
		Help: "Total number of checkout submissions resolved to a terminal status",
	}, []string{
		"status",     // success, failed
		"error_code", // insufficient_funds, card_expired, ... ("" on success)
	})

	checkoutProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "gateway_checkout_processing_duration_seconds",
		Help: "Time from checkout submission to terminal resolution, including simulated latency",
		// Simulated card latencies run 500ms to 10s
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"status",
	})

	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_deliveries_total",
		Help: "Total webhook delivery attempts",
	}, []string{
		"event",  // payment.completed, payment.failed, payment.timeout
		"status", // delivered, failed
	})

	webhookDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_webhook_delivery_duration_seconds",
		Help:    "Time to deliver a webhook once its delay elapses",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{
		"event",
	})
)

// RecordPaymentInitiated increments the initiation counter.
func RecordPaymentInitiated(mode string) {
	paymentsInitiatedTotal.WithLabelValues(mode).Inc()
}

// RecordCheckoutResolution records a terminal checkout resolution.
func RecordCheckoutResolution(status, errorCode string, duration time.Duration) {
	checkoutResolutionsTotal.WithLabelValues(status, errorCode).Inc()
	checkoutProcessingDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(event string, delivered bool, duration time.Duration) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	webhookDeliveriesTotal.WithLabelValues(event, status).Inc()
	webhookDeliveryDuration.WithLabelValues(event).Observe(duration.Seconds())
}
