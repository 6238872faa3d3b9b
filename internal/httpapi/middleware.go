package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID adds a unique request id to each request, mirroring the
// teacher's internal/middleware/request_id.go.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs each request's method, path, status and latency, mirroring
// the teacher's internal/middleware/logger.go.
func Logger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}
		logger.Printf("[%s] %s %s %d %v %s",
			c.GetString("request_id"),
			c.ClientIP(),
			c.Request.Method,
			c.Writer.Status(),
			latency,
			path,
		)
	}
}

// tenantID reads the tenant id recognised by every tenant-scoped command
// and pull endpoint, accepting either a query parameter (for displays,
// which carry no auth) or a header (for the operator console).
func tenantID(c *gin.Context) (int64, bool) {
	raw := c.Query("tenant")
	if raw == "" {
		raw = c.GetHeader("X-Tenant-ID")
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// requireTenant aborts with 400 if the request carries no resolvable
// tenant id, and stashes it in the context for handlers.
func requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := tenantID(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id is required"})
			c.Abort()
			return
		}
		c.Set("tenant_id", id)
		c.Next()
	}
}

// actor identifies who issued a command, for journaling. There is no
// authenticated user model in this engine (it sits behind the operator
// console's own auth); the caller-supplied header is trusted the same
// way the teacher's RequireAuth middleware trusts a validated token's
// subject claim.
func actor(c *gin.Context) string {
	if a := c.GetHeader("X-Actor-ID"); a != "" {
		return a
	}
	return "unknown"
}
