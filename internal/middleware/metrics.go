package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agape-api/internal/service"
)

// Metrics observes every request on the HTTP histogram, labelled by route template.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
