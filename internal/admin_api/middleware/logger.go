package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger emits one structured line per admin API request, tagged with the
// request's correlation ID so a payout triggered over HTTP can be traced
// through the rest of the pipeline. Server errors are logged at error level
// to stand out in aggregated logs; everything else, including 4xx responses
// the caller earned, is informational.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if correlationID := GetCorrelationID(c); correlationID != "" {
			attrs = append(attrs, "correlation_id", correlationID)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Admin API request failed", attrs...)
			return
		}
		logger.Info("Admin API request handled", attrs...)
	}
}
