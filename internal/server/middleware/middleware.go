package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vibhanet-auth/backend/internal/logging"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ClientIP resolves the client address with gin's Context.ClientIP and stores it in the
// request context for audit and rate limiting. X-Forwarded-For is honored only when the
// socket peer is one of the engine's trusted proxies; otherwise the socket peer is used,
// so clients cannot pick their own rate-limit key by setting the header.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// BodyLimit rejects bodies larger than n bytes once they are read.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// Recovery turns panics into a generic 500 JSON response and logs them.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error(c.Request.Context(), "http: panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// AccessLog logs one line per request. Query strings are dropped so tokens never reach logs.
func AccessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
