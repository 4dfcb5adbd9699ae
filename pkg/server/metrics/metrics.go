// Package metrics exposes prometheus instrumentation for the HTTP facade and
// the conversion pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "text2sql_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_conversions_total",
			Help: "Total number of text-to-SQL conversions",
		},
		[]string{"status"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_conversion_duration_seconds",
			Help:    "End-to-end duration of a conversion in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ConversionRetries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_conversion_retries",
			Help:    "SQL regeneration retries consumed per conversion",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)
)

// RecordConversion records the outcome of one pipeline run.
func RecordConversion(duration time.Duration, retries int, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ConversionsTotal.WithLabelValues(status).Inc()
	ConversionDuration.Observe(duration.Seconds())
	ConversionRetries.Observe(float64(retries))
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
