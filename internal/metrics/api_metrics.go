package metrics

import "github.com/prometheus/client_golang/prometheus"

// Exchange API metrics, registered alongside the core set in InitRegistry.
var (
	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "api_requests_total",
		Help:      "Total number of exchange API requests by method",
	}, []string{"method"})
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dutch_trader",
		Name:      "api_request_duration_seconds",
		Help:      "Duration of exchange API requests by method",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	APIErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "api_errors_total",
		Help:      "Total number of exchange API errors by code",
	}, []string{"code"})
	StreamReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "stream_reconnects_total",
		Help:      "Total number of stream reconnection attempts",
	})
)

// RecordAPIRequest records an exchange API call.
func RecordAPIRequest(method string, durationSeconds float64) {
	APIRequestsTotal.WithLabelValues(method).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordAPIError records an exchange API error by code.
func RecordAPIError(code string) {
	APIErrorsTotal.WithLabelValues(code).Inc()
}

// RecordStreamReconnect records a stream reconnection attempt.
func RecordStreamReconnect() {
	StreamReconnectsTotal.Inc()
}
