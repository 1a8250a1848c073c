package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_payments_recorded_total",
			Help: "Payments applied to rent logs by method",
		},
		[]string{"method"},
	)

	RentLogsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_rent_logs_generated_total",
		Help: "Rent logs inserted by the monthly generation job",
	})

	RentLogsMarkedOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rental_rent_logs_overdue_total",
		Help: "Rent logs moved to overdue by the sweep",
	})

	TenancyEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_tenancy_events_total",
			Help: "Tenant assignments and move-outs",
		},
		[]string{"event"},
	)
)
