package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricsRegistry = prometheus.NewRegistry()

var (
	httpRequestsTotal = promauto.With(metricsRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "ictserve_http_requests_total",
		Help: "Total number of HTTP requests by method, path and status class",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.With(metricsRegistry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ictserve_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	evaluationsTotal = promauto.With(metricsRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "ictserve_evaluations_total",
		Help: "Total number of rule evaluations by module",
	}, []string{"module"})

	rulesFiredTotal = promauto.With(metricsRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "ictserve_rules_fired_total",
		Help: "Total number of rules that matched during evaluation",
	}, []string{"module"})

	actionOutcomesTotal = promauto.With(metricsRegistry).NewCounterVec(prometheus.CounterOpts{
		Name: "ictserve_action_outcomes_total",
		Help: "Dispatched action outcomes by module and status",
	}, []string{"module", "status"})

	evaluationDuration = promauto.With(metricsRegistry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ictserve_evaluation_duration_seconds",
		Help:    "Time taken to evaluate and dispatch one target",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})
)

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})
}
