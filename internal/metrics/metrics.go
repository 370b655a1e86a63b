// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tinkus"

// ParticipantsRegisteredTotal counts participants created, by initial status.
var ParticipantsRegisteredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participants_registered_total",
		Help:      "Total number of participants registered.",
	},
	[]string{"estado"},
)

// PaymentsTotal counts payment mutations.
// Label:
//   - op: "create", "update" or "delete"
var PaymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Total number of payment mutations, by operation.",
	},
	[]string{"op"},
)

// PaymentAmountTotal accumulates the amount of every registered payment.
var PaymentAmountTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_amount_total",
		Help:      "Sum of all registered payment amounts.",
	},
)

// TeamServiceErrorsTotal counts failed calls to the external equipment service.
var TeamServiceErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "team_service_errors_total",
		Help:      "Total number of failed requests to the equipment service.",
	},
)

// HTTPRequestDuration measures request latency by route template and status.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
