package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPhone = "+79001234567"

func newTestOrder() *integration.Order {
	return &integration.Order{
		Title:       "Order #42",
		Description: "Leave at the door",
		Client: integration.Client{
			Name:    "Ivan",
			Surname: "Petrov",
			Phone:   testPhone,
			Address: "Moscow, Tverskaya 1",
		},
		Products:        []string{"Chair", "Table"},
		DeliveryAddress: "Moscow, Arbat 10",
		DeliveryDate:    "2024-03-01:09:00",
		DeliveryCode:    "D-1001",
	}
}

func existingContact() integration.Contact {
	return integration.Contact{
		ID:     "11",
		Name:   "Ivan",
		Phones: []integration.Phone{{Value: testPhone, ValueType: "WORK"}},
	}
}

func existingDeal() integration.Deal {
	return integration.Deal{
		ID:              "77",
		Title:           "Order #42",
		ContactID:       "11",
		DeliveryAddress: "Moscow, Arbat 10",
		CloseDate:       "2024-03-01T23:00:00",
		DeliveryCode:    "D-1001",
	}
}

func newTestDealSyncService(t *testing.T, crm *MockCRM, source integration.OrderSource, mode integration.ProductMergeMode) *DealSyncService {
	t.Helper()
	svc, err := NewDealSyncService(crm, source, DealSyncConfig{MergeMode: mode, Location: time.UTC}, nil)
	require.NoError(t, err)
	return svc
}

func assertNoWrites(t *testing.T, crm *MockCRM) {
	t.Helper()
	crm.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
	crm.AssertNotCalled(t, "CreateDeal", mock.Anything, mock.Anything)
	crm.AssertNotCalled(t, "UpdateDealField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	crm.AssertNotCalled(t, "SetProductRows", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewDealSyncService(t *testing.T) {
	_, err := NewDealSyncService(nil, nil, DealSyncConfig{}, nil)
	assert.ErrorIs(t, err, integration.ErrCRMNotConfigured)

	svc, err := NewDealSyncService(new(MockCRM), nil, DealSyncConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, integration.ProductMergeUnion, svc.config.MergeMode)
	assert.Equal(t, DefaultPhoneRegion, svc.config.PhoneRegion)
	assert.NotNil(t, svc.config.Location)
}

func TestDealSyncService_Reconcile_ValidationBeforeCRM(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

	order := newTestOrder()
	order.DeliveryCode = ""

	result, err := svc.Reconcile(context.Background(), order)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, integration.ErrOrderValidation)
	crm.AssertNotCalled(t, "ListContacts", mock.Anything)
	crm.AssertNotCalled(t, "FindDealsByDeliveryCode", mock.Anything, mock.Anything)
	assertNoWrites(t, crm)
}

func TestDealSyncService_Reconcile_CreatesContactAndDeal(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)
	order := newTestOrder()

	created := existingDeal()
	created.CloseDate = "2024-03-01T09:00:00"

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{}, nil).Once()
	crm.On("CreateContact", mock.Anything, mock.MatchedBy(func(c *integration.Contact) bool {
		return c.Name == "Ivan" && c.LastName == "Petrov" && c.FirstPhone() == testPhone &&
			c.Phones[0].ValueType == integration.PhoneTypeWork && c.Address == "Moscow, Tverskaya 1"
	})).Return(nil).Once()
	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil).Once()

	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{}, nil).Once()
	crm.On("CreateDeal", mock.Anything, &integration.Deal{
		Title:           "Order #42",
		Comments:        "Leave at the door",
		ContactID:       "11",
		DeliveryAddress: "Moscow, Arbat 10",
		CloseDate:       "2024-03-01T09:00:00",
		DeliveryCode:    "D-1001",
	}).Return(nil).Once()
	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{created}, nil).Once()

	crm.On("GetProductRows", mock.Anything, "77").Return([]string{}, nil)
	crm.On("SetProductRows", mock.Anything, "77", []string{"Chair", "Table"}).Return(nil)

	result, err := svc.Reconcile(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, "11", result.ContactID)
	assert.True(t, result.ContactCreated)
	assert.Equal(t, "77", result.DealID)
	assert.True(t, result.DealCreated)
	assert.Empty(t, result.UpdatedFields)
	assert.True(t, result.ProductsWritten)
	assert.False(t, result.NoOp())

	crm.AssertExpectations(t)
	crm.AssertNumberOfCalls(t, "CreateContact", 1)
	crm.AssertNumberOfCalls(t, "ListContacts", 2)
	crm.AssertNumberOfCalls(t, "CreateDeal", 1)
	crm.AssertNotCalled(t, "UpdateDealField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDealSyncService_Reconcile_Idempotent(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
	crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Table", "Chair"}, nil)

	for run := 0; run < 2; run++ {
		result, err := svc.Reconcile(context.Background(), newTestOrder())
		require.NoError(t, err)
		assert.True(t, result.NoOp(), "run %d", run)
		assert.Equal(t, 0, result.WriteCount())
	}

	assertNoWrites(t, crm)
}

func TestDealSyncService_Reconcile_CloseDate(t *testing.T) {
	tests := []struct {
		name       string
		delivery   string
		wantUpdate string
	}{
		{name: "same date portion", delivery: "2024-03-01:09:00"},
		{name: "next day", delivery: "2024-03-02:00:01", wantUpdate: "2024-03-02T00:01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := new(MockCRM)
			svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

			order := newTestOrder()
			order.DeliveryDate = tt.delivery

			crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
			crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
			crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Chair", "Table"}, nil)
			if tt.wantUpdate != "" {
				crm.On("UpdateDealField", mock.Anything, "77", integration.DealFieldCloseDate, tt.wantUpdate).Return(nil).Once()
			}

			result, err := svc.Reconcile(context.Background(), order)
			require.NoError(t, err)

			if tt.wantUpdate == "" {
				assert.Empty(t, result.UpdatedFields)
				crm.AssertNotCalled(t, "UpdateDealField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.Equal(t, []integration.DealField{integration.DealFieldCloseDate}, result.UpdatedFields)
			}
			crm.AssertExpectations(t)
		})
	}
}

func TestDealSyncService_Reconcile_FieldUpdates(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

	deal := existingDeal()
	deal.ContactID = "0"
	deal.DeliveryAddress = "Old street 1"

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{deal}, nil)
	crm.On("UpdateDealField", mock.Anything, "77", integration.DealFieldContact, "11").Return(nil).Once()
	crm.On("UpdateDealField", mock.Anything, "77", integration.DealFieldDeliveryAddress, "Moscow, Arbat 10").Return(nil).Once()
	crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Chair", "Table"}, nil)

	result, err := svc.Reconcile(context.Background(), newTestOrder())
	require.NoError(t, err)
	assert.Equal(t, []integration.DealField{
		integration.DealFieldContact,
		integration.DealFieldDeliveryAddress,
	}, result.UpdatedFields)
	assert.False(t, result.ContactCreated)
	assert.False(t, result.DealCreated)
	crm.AssertExpectations(t)
}

func TestDealSyncService_Reconcile_ProductMerge(t *testing.T) {
	tests := []struct {
		name     string
		mode     integration.ProductMergeMode
		existing []string
		incoming []string
		want     []string
	}{
		{"union grows the set", integration.ProductMergeUnion, []string{"A", "B"}, []string{"B", "C"}, []string{"A", "B", "C"}},
		{"identical sets write nothing", integration.ProductMergeUnion, []string{"A", "B"}, []string{"A", "B"}, nil},
		{"replace drops stale rows", integration.ProductMergeReplace, []string{"A", "B"}, []string{"B", "C"}, []string{"B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crm := new(MockCRM)
			svc := newTestDealSyncService(t, crm, nil, tt.mode)

			order := newTestOrder()
			order.Products = tt.incoming

			crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
			crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
			crm.On("GetProductRows", mock.Anything, "77").Return(tt.existing, nil)
			if tt.want != nil {
				crm.On("SetProductRows", mock.Anything, "77", tt.want).Return(nil).Once()
			}

			result, err := svc.Reconcile(context.Background(), order)
			require.NoError(t, err)
			assert.Equal(t, tt.want != nil, result.ProductsWritten)
			assert.Equal(t, tt.want, result.Products)
			if tt.want == nil {
				crm.AssertNotCalled(t, "SetProductRows", mock.Anything, mock.Anything, mock.Anything)
			}
			crm.AssertExpectations(t)
		})
	}
}

func TestDealSyncService_Reconcile_ContactNotResolved(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{}, nil)
	crm.On("CreateContact", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := svc.Reconcile(context.Background(), newTestOrder())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, integration.ErrContactNotResolved)
	crm.AssertNumberOfCalls(t, "CreateContact", 1)
	crm.AssertNotCalled(t, "FindDealsByDeliveryCode", mock.Anything, mock.Anything)
}

func TestDealSyncService_Reconcile_DealNotResolved(t *testing.T) {
	crm := new(MockCRM)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{}, nil)
	crm.On("CreateDeal", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Reconcile(context.Background(), newTestOrder())
	assert.ErrorIs(t, err, integration.ErrDealNotResolved)
	crm.AssertNumberOfCalls(t, "CreateDeal", 1)
}

func TestDealSyncService_Reconcile_CRMErrorsPropagate(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		crm := new(MockCRM)
		svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)
		crm.On("ListContacts", mock.Anything).Return(nil, integration.ErrCRMUnavailable)

		_, err := svc.Reconcile(context.Background(), newTestOrder())
		assert.ErrorIs(t, err, integration.ErrCRMUnavailable)
		assert.False(t, integration.IsValidationError(err))
		assertNoWrites(t, crm)
	})

	t.Run("write failure", func(t *testing.T) {
		crm := new(MockCRM)
		svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)
		apiErr := &integration.CRMError{Method: "crm.deal.productrows.set", StatusCode: 400, Code: "ERROR_CORE"}

		crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
		crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
		crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Chair"}, nil)
		crm.On("SetProductRows", mock.Anything, "77", []string{"Chair", "Table"}).Return(apiErr)

		_, err := svc.Reconcile(context.Background(), newTestOrder())
		assert.ErrorIs(t, err, integration.ErrCRMRequestFailed)
		var crmErr *integration.CRMError
		assert.True(t, errors.As(err, &crmErr))
	})
}

func TestDealSyncService_SyncFromSource(t *testing.T) {
	t.Run("no source configured", func(t *testing.T) {
		svc := newTestDealSyncService(t, new(MockCRM), nil, integration.ProductMergeUnion)
		_, err := svc.SyncFromSource(context.Background())
		assert.ErrorIs(t, err, integration.ErrOrderSourceNotConfigured)
	})

	t.Run("source failure", func(t *testing.T) {
		crm := new(MockCRM)
		source := new(MockOrderSource)
		source.On("FetchOrder", mock.Anything).Return(nil, integration.ErrOrderSourceUnavailable)
		svc := newTestDealSyncService(t, crm, source, integration.ProductMergeUnion)

		_, err := svc.SyncFromSource(context.Background())
		assert.ErrorIs(t, err, integration.ErrOrderSourceUnavailable)
		crm.AssertNotCalled(t, "ListContacts", mock.Anything)
	})

	t.Run("fetched order is reconciled", func(t *testing.T) {
		crm := new(MockCRM)
		source := new(MockOrderSource)
		source.On("FetchOrder", mock.Anything).Return(newTestOrder(), nil)
		crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
		crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
		crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Chair", "Table"}, nil)
		svc := newTestDealSyncService(t, crm, source, integration.ProductMergeUnion)

		result, err := svc.SyncFromSource(context.Background())
		require.NoError(t, err)
		assert.True(t, result.NoOp())
		source.AssertExpectations(t)
	})
}

func TestDealSyncService_Recorder(t *testing.T) {
	crm := new(MockCRM)
	recorder := new(MockRecorder)
	svc := newTestDealSyncService(t, crm, nil, integration.ProductMergeUnion)
	svc.SetRecorder(recorder)

	crm.On("ListContacts", mock.Anything).Return([]integration.Contact{existingContact()}, nil)
	crm.On("FindDealsByDeliveryCode", mock.Anything, "D-1001").Return([]integration.Deal{existingDeal()}, nil)
	crm.On("GetProductRows", mock.Anything, "77").Return([]string{"Chair"}, nil)
	crm.On("SetProductRows", mock.Anything, "77", []string{"Chair", "Table"}).Return(nil)
	recorder.On("RecordWrites", mock.Anything, JobDealSync, 1).Once()
	recorder.On("RecordRun", mock.Anything, JobDealSync, nil, mock.AnythingOfType("time.Duration")).Once()

	_, err := svc.Reconcile(context.Background(), newTestOrder())
	require.NoError(t, err)
	recorder.AssertExpectations(t)
}
