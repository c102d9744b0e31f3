// Package middleware provides the gin middleware chain shared by all HTTP
// routes: request IDs, panic recovery, CORS, authentication and role gates.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// HeaderXRequestID is the request ID header name.
const HeaderXRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "request_id"

// RequestID attaches a unique request ID to each request. An incoming
// X-Request-ID header is honored so IDs survive proxy hops; otherwise a new
// ULID is generated. The ID is echoed in the response header and available
// to handlers via GetRequestID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = ulid.Make().String()
		}

		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(HeaderXRequestID, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID for the current request, or "" when
// the RequestID middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
