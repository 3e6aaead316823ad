package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the caller-supplied request identifier
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the identifier is stored under
	CorrelationIDKey = "correlation_id"
)

// CorrelationID assigns every request the identifier that rides through the
// payout pipeline into logs, failure records and published events. A caller
// supplied X-Correlation-ID is honored so a client retry can be tied to its
// earlier attempts; without one a fresh UUID is generated. The ID is echoed
// back on the response header either way.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or an empty string
// when the middleware is not installed
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
