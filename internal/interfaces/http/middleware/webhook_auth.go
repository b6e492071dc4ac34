package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/erp/crmsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// WebhookTokenHeader carries the shared secret of inbound webhooks
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookAuth rejects requests whose X-Webhook-Token does not match token.
// An empty token disables the check.
func WebhookAuth(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	expected := []byte(token)

	return func(c *gin.Context) {
		got := []byte(c.GetHeader(WebhookTokenHeader))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized,
				"Missing or invalid webhook token",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
