package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID attaches a correlation id to the request. The id rides the
// X-Request-ID header and every log line, so one booking can be traced
// through the conflict check, the local commit and the remote leg. A
// caller-supplied id is kept only when it parses as a UUID; anything else
// is replaced, not trusted.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}

// RequestIDFromContext returns the correlation id RequestID stored, or ""
// outside the middleware chain.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
