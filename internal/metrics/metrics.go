// Package metrics registers and records the service's Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwise_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status_code"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockwise_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockwise_auth_tokens_issued_total",
		Help: "Access/refresh token pairs issued, including rotations.",
	})

	sessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockwise_auth_sessions_revoked_total",
		Help: "Sessions revoked by logout operations.",
	})

	loyaltyTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwise_loyalty_transactions_total",
		Help: "Loyalty ledger entries recorded, by transaction type.",
	}, []string{"type"})

	outboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockwise_outbox_published_total",
		Help: "Outbox events successfully delivered to the broker.",
	})
)

func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordTokenIssued() {
	tokensIssued.Inc()
}

func RecordSessionsRevoked(count int64) {
	sessionsRevoked.Add(float64(count))
}

func RecordLoyaltyTransaction(txType string) {
	loyaltyTransactions.WithLabelValues(txType).Inc()
}

func RecordOutboxPublished() {
	outboxPublished.Inc()
}
