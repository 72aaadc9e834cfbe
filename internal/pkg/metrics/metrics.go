package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "specklegeo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "specklegeo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "specklegeo",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
	}, []string{"method", "path"})

	// Pipeline metrics
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "specklegeo",
		Subsystem: "pipeline",
		Name:      "conversions_total",
		Help:      "Total conversion requests by outcome",
	}, []string{"status"})

	ConversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "specklegeo",
		Subsystem: "pipeline",
		Name:      "conversion_duration_seconds",
		Help:      "End-to-end conversion duration",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	FeaturesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "specklegeo",
		Subsystem: "pipeline",
		Name:      "features_emitted_total",
		Help:      "Total features emitted across all conversions",
	})

	// Store metrics
	ObjectsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "specklegeo",
		Subsystem: "store",
		Name:      "objects_fetched_total",
		Help:      "Total objects requested from the remote store",
	})

	ObjectFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "specklegeo",
		Subsystem: "store",
		Name:      "object_fetch_errors_total",
		Help:      "Total failed object fetches",
	})

	// WebSocket relay
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "specklegeo",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
