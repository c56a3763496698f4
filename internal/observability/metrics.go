package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calculations_created_total",
		Help: "Calculations created, by operation type.",
	}, []string{"type"})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calculation_validation_failures_total",
		Help: "Rejected calculation payloads, by violated rule.",
	}, []string{"kind"})
)

func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
