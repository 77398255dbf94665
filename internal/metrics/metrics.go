// Package metrics exposes Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// actionsTotal counts mutations by outcome.
	// Labels: action (like, repost, follow, ...), outcome (success or a lowercase error code)
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blogsocial",
		Name:      "actions_total",
		Help:      "Total mutating actions by outcome",
	}, []string{"action", "outcome"})

	// actionDuration measures how long an action took end to end.
	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blogsocial",
		Name:      "action_duration_seconds",
		Help:      "Mutating action latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"action"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blogsocial",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blogsocial",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Recorder records action outcomes into the package metrics.
type Recorder struct{}

func (Recorder) RecordAction(action, outcome string, elapsed time.Duration) {
	actionsTotal.WithLabelValues(action, outcome).Inc()
	actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Middleware instruments every request by its route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
