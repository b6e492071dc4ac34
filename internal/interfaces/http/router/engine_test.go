package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/interfaces/http/handler"
	"github.com/erp/crmsync/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type stubReconciler struct{ calls int }

func (s *stubReconciler) Reconcile(_ context.Context, order *integration.Order) (*integration.DealSyncResult, error) {
	s.calls++
	return &integration.DealSyncResult{DeliveryCode: order.DeliveryCode}, nil
}

type stubRunner struct{}

func (stubRunner) RunOnce(context.Context) (*integration.CurrencySyncResult, error) {
	return &integration.CurrencySyncResult{}, nil
}

const engineOrder = `{"title":"t","description":"d","client":{"name":"n","surname":"s","phone":"+79001234567","address":"a"},` +
	`"products":["A"],"delivery_address":"x","delivery_date":"2024-03-01:09:00","delivery_code":"D-1"}`

func newTestEngine(t *testing.T, token string, rec *stubReconciler) http.Handler {
	t.Helper()
	return NewEngine(EngineConfig{
		ServiceName:  "crmsync-test",
		WebhookToken: token,
		MaxBodySize:  1 << 10,
		Logger:       zaptest.NewLogger(t),
	}, Handlers{
		Health:   handler.NewHealthHandler(),
		System:   handler.NewSystemHandler("crmsync", "test", nil),
		Order:    handler.NewOrderHandler(rec),
		Currency: handler.NewCurrencyHandler(stubRunner{}),
	})
}

func TestNewEngine_Routes(t *testing.T) {
	rec := &stubReconciler{}
	engine := newTestEngine(t, "", rec)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/system/info", "", http.StatusOK},
		{http.MethodPost, "/api/v1/orders", engineOrder, http.StatusOK},
		{http.MethodPost, "/api/v1/currencies/sync", "", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
	assert.Equal(t, 1, rec.calls)
}

func TestNewEngine_WebhookToken(t *testing.T) {
	rec := &stubReconciler{}
	engine := newTestEngine(t, "s3cret", rec)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(engineOrder)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, rec.calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(engineOrder))
	req.Header.Set(middleware.WebhookTokenHeader, "s3cret")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rec.calls)

	// Read endpoints stay open
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, "", &stubReconciler{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(strings.Repeat("x", 2048))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
