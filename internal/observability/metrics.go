package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	dueDateExceptionsOps  *prometheus.CounterVec
	tokenOverdraftsTotal  prometheus.Counter
	labResolutionsTotal   *prometheus.CounterVec
	summaryCacheTotal     *prometheus.CounterVec
	dueDateComputeSeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classops_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classops_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classops_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		dueDateExceptionsOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classops_due_date_exceptions_total",
			Help: "Due date exceptions created or deleted.",
		}, []string{"action"})

		tokenOverdraftsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classops_late_token_overdrafts_total",
			Help: "Exceptions granted while a student's late token balance was negative.",
		})

		labResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classops_lab_resolutions_total",
			Help: "Lab meeting lookups by the source that answered them.",
		}, []string{"source"})

		summaryCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classops_summary_cache_total",
			Help: "Student due date summary cache lookups.",
		}, []string{"result"})

		dueDateComputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "classops_effective_due_date_seconds",
			Help:    "Time spent resolving one effective due date, lookups included.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			dueDateExceptionsOps,
			tokenOverdraftsTotal,
			labResolutionsTotal,
			summaryCacheTotal,
			dueDateComputeSeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// DueDateExceptions counts exception writes by action.
func DueDateExceptions() *prometheus.CounterVec {
	RegisterMetrics()
	return dueDateExceptionsOps
}

// TokenOverdrafts counts grants that left a balance below zero.
func TokenOverdrafts() prometheus.Counter {
	RegisterMetrics()
	return tokenOverdraftsTotal
}

// LabResolutions counts lab lookups by source: meeting, recurrence or none.
func LabResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return labResolutionsTotal
}

// SummaryCache counts summary cache hits and misses.
func SummaryCache() *prometheus.CounterVec {
	RegisterMetrics()
	return summaryCacheTotal
}

// DueDateCompute observes effective due date resolution time.
func DueDateCompute() prometheus.Histogram {
	RegisterMetrics()
	return dueDateComputeSeconds
}

// MetricsHandler serves the default registry, OpenMetrics included, as a Fiber handler.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
