package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/crmsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookAuth(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{name: "disabled without token", token: "", header: "", wantStatus: http.StatusOK},
		{name: "disabled ignores header", token: "", header: "anything", wantStatus: http.StatusOK},
		{name: "matching token", token: "s3cret", header: "s3cret", wantStatus: http.StatusOK},
		{name: "missing header", token: "s3cret", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "s3cre", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(WebhookAuth(tt.token))
			r.POST("/hook", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/hook", nil)
			if tt.header != "" {
				req.Header.Set(WebhookTokenHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var resp dto.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
			}
		})
	}
}
