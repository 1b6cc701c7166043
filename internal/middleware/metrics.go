package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triplink/triplink-backend/internal/observability"
)

// Metrics records request counts and latency by route template so that path
// parameters do not explode label cardinality
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		observability.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
