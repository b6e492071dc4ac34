package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const orderBody = `{
	"title": "Order #42",
	"description": "Leave at the door",
	"client": {"name": "Ivan", "surname": "Petrov", "phone": "+79001234567", "address": "Moscow"},
	"products": ["Chair", "Table"],
	"delivery_address": "Moscow, Arbat 10",
	"delivery_date": "2024-03-01:09:00",
	"delivery_code": "D-1001"
}`

func postOrder(t *testing.T, h *OrderHandler, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))

	h.ReconcileOrder(c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestOrderHandler_ReconcileOrder_Success(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything, mock.MatchedBy(func(o *integration.Order) bool {
		return o.DeliveryCode == "D-1001" && o.Client.Phone == "+79001234567"
	})).Return(&integration.DealSyncResult{
		DeliveryCode: "D-1001",
		ContactID:    "7",
		DealID:       "11",
		DealCreated:  true,
	}, nil)

	w, resp := postOrder(t, NewOrderHandler(rec), orderBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "11", data["deal_id"])
	assert.Equal(t, true, data["deal_created"])
	rec.AssertExpectations(t)
}

func TestOrderHandler_ReconcileOrder_ValidationError(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "not an object", body: `[1,2]`, wantField: "order"},
		{name: "missing delivery code", body: strings.Replace(orderBody, `"delivery_code": "D-1001"`, `"delivery_code": null`, 1), wantField: "delivery_code"},
		{name: "products not a list", body: strings.Replace(orderBody, `["Chair", "Table"]`, `"Chair"`, 1), wantField: "products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockReconciler)

			w, resp := postOrder(t, NewOrderHandler(rec), tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

			fields := make([]string, 0, len(resp.Error.Details))
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			rec.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderHandler_ReconcileOrder_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "crm unavailable",
			err:        fmt.Errorf("find contact: %w", integration.ErrCRMUnavailable),
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeUpstream,
		},
		{
			name:       "crm rejected credentials",
			err:        &integration.CRMError{Method: "crm.contact.list", StatusCode: 401, Code: "expired_token"},
			wantStatus: http.StatusBadGateway,
			wantCode:   dto.ErrCodeUpstreamAuth,
		},
		{
			name:       "unexpected",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockReconciler)
			rec.On("Reconcile", mock.Anything, mock.Anything).Return(nil, tt.err)

			w, resp := postOrder(t, NewOrderHandler(rec), orderBody)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestOrderHandler_ReconcileOrder_InternalMessageHidden(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("secret detail"))

	_, resp := postOrder(t, NewOrderHandler(rec), orderBody)

	assert.NotContains(t, resp.Error.Message, "secret detail")
}
