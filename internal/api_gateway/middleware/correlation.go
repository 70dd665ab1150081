package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the caller-supplied trace identifier
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey stores the identifier on the request context
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with a trace identifier, minting one when
// the caller did not send the header. The identifier is echoed back on the
// response and picked up by request logging and the JSON envelopes.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware did not run for this context.
func GetCorrelationID(c *gin.Context) string {
	id, ok := c.Get(CorrelationIDKey)
	if !ok {
		return ""
	}
	s, _ := id.(string)
	return s
}
