package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bharatconnect/pkg/logger"
)

// DefaultTimeout bounds a request including all backend calls
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. Handlers pass the context
// down, so directory and database calls stop when it expires. If nothing was
// written by then the client gets 504.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			logger.Warn("Request timed out",
				zap.Duration("timeout", timeout),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()))

			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"success": false,
				"error":   gin.H{"code": "REQUEST_TIMEOUT", "message": "Request timeout"},
			})
		}
	}
}
