// Package handler contains the gin handlers of the crmsync server.
package handler

import (
	"net/http"

	"github.com/erp/crmsync/internal/interfaces/http/dto"
	"github.com/erp/crmsync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// ValidationError sends a 422 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details []dto.FieldDetail) {
	c.JSON(http.StatusUnprocessableEntity, dto.NewValidationErrorResponse(
		message,
		middleware.GetRequestID(c),
		details,
	))
}

// HandleError maps a sync error onto an error response.
// Internal errors never leak their message to the caller.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code := dto.ErrorCodeFor(err)
	switch code {
	case dto.ErrCodeValidation:
		h.ValidationError(c, err.Error(), dto.FieldDetailsFor(err))
	case dto.ErrCodeInternal:
		h.ErrorWithCode(c, code, "An unexpected error occurred")
	default:
		h.ErrorWithCode(c, code, err.Error())
	}
}
