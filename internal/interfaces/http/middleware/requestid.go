// Package middleware provides HTTP middleware for the crmsync server.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header carrying the request id in both directions
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key the request id is stored under
	RequestIDKey = "request_id"
	// MaxRequestIDLength is the maximum length for request IDs to prevent DoS via large headers.
	MaxRequestIDLength = 128
)

// RequestID assigns every request an id, reusing a caller-supplied X-Request-ID.
// The id is echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if len(id) > MaxRequestIDLength {
			id = id[:MaxRequestIDLength]
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "" when the middleware did not run
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
