package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Auth flow
	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Sign-up requests by outcome",
		},
		[]string{"outcome"}, // created|reissued|rejected
	)
	ConfirmationEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_emails_total",
			Help: "Confirmation emails by delivery outcome",
		},
		[]string{"outcome"}, // sent|failed
	)
	TokenExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_exchanges_total",
			Help: "Confirmation code exchanges by outcome",
		},
		[]string{"outcome"}, // issued|invalid_code|unknown_user
	)

	// Reviews
	ReviewsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_created_total",
			Help: "Reviews successfully created",
		},
	)
	ReviewConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "review_conflicts_total",
			Help: "Review creations rejected as duplicates",
		},
	)

	registerOnce sync.Once
)

// Handler serves the default registry.
var Handler = promhttp.Handler

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			SignupsTotal,
			ConfirmationEmailsTotal,
			TokenExchangesTotal,
			ReviewsCreated,
			ReviewConflicts,
		)
	})
}
