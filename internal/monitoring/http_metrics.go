package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics covers the operational HTTP listener.
type HTTPMetrics struct {
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	inFlightRequests *prometheus.GaugeVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_scanner_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "path", "status"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_scanner_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		inFlightRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chain_scanner_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
			[]string{"method", "path"},
		),
	}
}

func (m *HTTPMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.inFlightRequests,
	)
}

// HTTPMetricsMiddleware creates a Gin middleware for HTTP metrics collection
func HTTPMetricsMiddleware(metrics *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		method := c.Request.Method

		// unmatched routes
		if path == "" {
			path = "unmatched"
		}

		metrics.inFlightRequests.WithLabelValues(method, path).Inc()
		defer metrics.inFlightRequests.WithLabelValues(method, path).Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.requestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.requestsTotal.WithLabelValues(method, path, status).Inc()
	}
}
