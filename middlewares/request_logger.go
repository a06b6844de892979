package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablelink/restaurant-ops/utils"
)

// RequestLogger logs one line per request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.InfoLogger.Printf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
