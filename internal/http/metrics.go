package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestDuration mide la latencia de cada ruta.
// Use RegisterMetrics to register this with a Prometheus registry.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route and status",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestDuration)
}

// metricsMiddleware usa la ruta registrada y no el path, para no abrir una serie por id.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
