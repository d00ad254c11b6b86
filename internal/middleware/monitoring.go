package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"floodwatch/backend/internal/monitoring"
)

// HTTPMetrics HTTP 指标中间件
//
// endpoint 维度使用路由模板（FullPath）而非原始路径，避免基数爆炸。
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}
