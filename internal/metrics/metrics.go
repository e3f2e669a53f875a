package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wireline_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wireline_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	AccountsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wireline_accounts_created_total",
			Help: "Total accounts created",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wireline_messages_sent_total",
			Help: "Total messages stored via send",
		},
	)

	MessagesImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wireline_messages_imported_total",
			Help: "Total messages inserted by payload import",
		},
	)

	StatusUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wireline_status_updates_total",
			Help: "Total message status updates",
		},
	)
)
