package handler

import (
	"runtime"
	"time"

	"github.com/erp/crmsync/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// TriggerStatusProvider exposes the currency trigger state
type TriggerStatusProvider interface {
	Status() scheduler.TriggerStatus
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	trigger   TriggerStatusProvider
}

// NewSystemHandler creates a new SystemHandler. trigger may be nil.
func NewSystemHandler(name, version string, trigger TriggerStatusProvider) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		trigger:   trigger,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string                   `json:"name"`
	Version   string                   `json:"version"`
	GoVersion string                   `json:"go_version"`
	Uptime    string                   `json:"uptime"`
	Currency  *scheduler.TriggerStatus `json:"currency_trigger,omitempty"`
}

// GetSystemInfo returns name, version, uptime and the currency trigger state
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.trigger != nil {
		st := h.trigger.Status()
		info.Currency = &st
	}
	h.Success(c, info)
}
