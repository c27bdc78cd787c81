package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
)

// Gin adapts a net/http middleware to Gin. If the middleware answers the
// request itself the Gin chain stops there.
func Gin(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !called {
			c.Abort()
		}
	}
}

// AccessLog logs one line per request once the handler has finished.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  RequestIDFromContext(c.Request.Context()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields)
			return
		}
		logger.Info("request", fields)
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", map[string]any{
			"error":      recovered,
			"path":       c.Request.URL.Path,
			"request_id": RequestIDFromContext(c.Request.Context()),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
