package handler

import (
	"context"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, order *integration.Order) (*integration.DealSyncResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.DealSyncResult), args.Error(1)
}

type MockCurrencyRunner struct {
	mock.Mock
}

func (m *MockCurrencyRunner) RunOnce(ctx context.Context) (*integration.CurrencySyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CurrencySyncResult), args.Error(1)
}

type stubTriggerStatus scheduler.TriggerStatus

func (s stubTriggerStatus) Status() scheduler.TriggerStatus {
	return scheduler.TriggerStatus(s)
}
