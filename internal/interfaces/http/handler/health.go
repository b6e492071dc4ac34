package handler

import (
	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness probes
type HealthHandler struct {
	BaseHandler
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports that the process is serving
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{Status: "ok"})
}
