package integration

import (
	"context"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/stretchr/testify/mock"
)

// MockCRM is a mock implementation of the CRM ports
type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) ListContacts(ctx context.Context) ([]integration.Contact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Contact), args.Error(1)
}

func (m *MockCRM) CreateContact(ctx context.Context, contact *integration.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockCRM) FindDealsByDeliveryCode(ctx context.Context, code string) ([]integration.Deal, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Deal), args.Error(1)
}

func (m *MockCRM) CreateDeal(ctx context.Context, deal *integration.Deal) error {
	args := m.Called(ctx, deal)
	return args.Error(0)
}

func (m *MockCRM) UpdateDealField(ctx context.Context, dealID string, field integration.DealField, value string) error {
	args := m.Called(ctx, dealID, field, value)
	return args.Error(0)
}

func (m *MockCRM) GetProductRows(ctx context.Context, dealID string) ([]string, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCRM) SetProductRows(ctx context.Context, dealID string, products []string) error {
	args := m.Called(ctx, dealID, products)
	return args.Error(0)
}

func (m *MockCRM) ListDealFieldNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCRM) AddDealUserField(ctx context.Context, field integration.UserField) error {
	args := m.Called(ctx, field)
	return args.Error(0)
}

func (m *MockCRM) ListCurrencyCodes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCRM) UpdateCurrency(ctx context.Context, rate integration.CurrencyRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockCRM) AddCurrency(ctx context.Context, rate integration.CurrencyRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// MockOrderSource is a mock implementation of integration.OrderSource
type MockOrderSource struct {
	mock.Mock
}

func (m *MockOrderSource) FetchOrder(ctx context.Context) (*integration.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Order), args.Error(1)
}

// MockRateFeed is a mock implementation of integration.RateFeed
type MockRateFeed struct {
	mock.Mock
}

func (m *MockRateFeed) FetchRates(ctx context.Context, date time.Time) ([]integration.CurrencyRate, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CurrencyRate), args.Error(1)
}

// MockRecorder is a mock implementation of SyncRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordRun(ctx context.Context, job string, err error, duration time.Duration) {
	m.Called(ctx, job, err, duration)
}

func (m *MockRecorder) RecordWrites(ctx context.Context, job string, writes int) {
	m.Called(ctx, job, writes)
}
