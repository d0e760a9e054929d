package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/sync_backend/utils"
)

// ReadinessMiddleware answers /healthz itself and 503 for everything else
// until ready reports true.
func ReadinessMiddleware(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !ready() {
			utils.AbortWithError(c, http.StatusServiceUnavailable, "Service is starting, try again shortly.")
			return
		}
		c.Next()
	}
}
