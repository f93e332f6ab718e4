package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for outbound API traffic.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
}

// NewMetrics registers the client collectors on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_api_requests_total",
				Help: "Total number of backend API requests by method and status class",
			},
			[]string{"method", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_api_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_token_refreshes_total",
				Help: "Access token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// statusClass buckets a status code as "2xx", "4xx" and so on. Requests that
// never got a response are "error".
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "error"
	}
}
