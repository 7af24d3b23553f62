package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailfoxes/backend/internal/monitoring"
)

// MetricsCollector HTTP 指标采集中间件
func MetricsCollector(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)

		if c.Writer.Status() >= 400 {
			metrics.RecordError("http_error", "http")
		}
	}
}
