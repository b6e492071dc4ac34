package handler

import (
	"context"
	"errors"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// CurrencyRunner runs a currency pass on demand
type CurrencyRunner interface {
	RunOnce(ctx context.Context) (*integration.CurrencySyncResult, error)
}

// CurrencyHandler exposes the manual currency trigger
type CurrencyHandler struct {
	BaseHandler
	runner CurrencyRunner
}

// NewCurrencyHandler creates a new CurrencyHandler
func NewCurrencyHandler(runner CurrencyRunner) *CurrencyHandler {
	return &CurrencyHandler{runner: runner}
}

// SyncNow runs one currency pass immediately, bypassing the daily marker
func (h *CurrencyHandler) SyncNow(c *gin.Context) {
	result, err := h.runner.RunOnce(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		h.Conflict(c, "A currency pass is already running")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
