package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/erp/crmsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderReconciler brings the CRM in line with one order
type OrderReconciler interface {
	Reconcile(ctx context.Context, order *integration.Order) (*integration.DealSyncResult, error)
}

// OrderHandler accepts pushed orders and reconciles them with the CRM
type OrderHandler struct {
	BaseHandler
	reconciler OrderReconciler
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(reconciler OrderReconciler) *OrderHandler {
	return &OrderHandler{reconciler: reconciler}
}

// ReconcileOrder decodes the request body as an order and reconciles it.
// Invalid orders are rejected with 422 before any CRM call.
func (h *OrderHandler) ReconcileOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	order, err := integration.DecodeOrder(body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	log := logger.GetGinLogger(c).With(zap.String("delivery_code", order.DeliveryCode))
	result, err := h.reconciler.Reconcile(c.Request.Context(), order)
	if err != nil {
		log.Error("Order reconciliation failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	log.Info("Order reconciled",
		zap.String("contact_id", result.ContactID),
		zap.String("deal_id", result.DealID),
		zap.Int("writes", result.WriteCount()),
	)
	h.Success(c, result)
}
