package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultPhoneRegion is used to parse client phones for diagnostics
const DefaultPhoneRegion = "RU"

// DealSyncConfig configures deal reconciliation
type DealSyncConfig struct {
	// MergeMode decides how incoming products combine with existing rows
	MergeMode integration.ProductMergeMode
	// Location is the zone delivery dates are interpreted in (default: time.Local)
	Location *time.Location
	// PhoneRegion is the default region for phone diagnostics (default: RU)
	PhoneRegion string
}

// DealSyncService reconciles incoming orders with CRM contacts and deals.
// Every write is keyed by a natural key (client phone, delivery code), so
// reconciling the same order twice issues no writes the second time.
// Reconciliations run one at a time so concurrent deliveries of an order
// cannot both miss the lookup and create duplicates.
type DealSyncService struct {
	// reconcileMu serializes the lookup-then-create sequence
	reconcileMu sync.Mutex

	crm      integration.DealSyncCRM
	source   integration.OrderSource
	config   DealSyncConfig
	logger   *zap.Logger
	recorder SyncRecorder
}

// NewDealSyncService creates a new DealSyncService.
// source may be nil when orders are only pushed through Reconcile.
func NewDealSyncService(
	crm integration.DealSyncCRM,
	source integration.OrderSource,
	cfg DealSyncConfig,
	logger *zap.Logger,
) (*DealSyncService, error) {
	if crm == nil {
		return nil, integration.ErrCRMNotConfigured
	}
	if cfg.MergeMode == "" {
		cfg.MergeMode = integration.ProductMergeUnion
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = DefaultPhoneRegion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DealSyncService{
		crm:      crm,
		source:   source,
		config:   cfg,
		logger:   logger,
		recorder: nopRecorder{},
	}, nil
}

// SetRecorder attaches a metrics recorder
func (s *DealSyncService) SetRecorder(r SyncRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// SyncFromSource fetches one pending order from the order source and reconciles it
func (s *DealSyncService) SyncFromSource(ctx context.Context) (*integration.DealSyncResult, error) {
	if s.source == nil {
		return nil, integration.ErrOrderSourceNotConfigured
	}

	order, err := s.source.FetchOrder(ctx)
	if err != nil {
		s.recorder.RecordRun(ctx, JobDealSync, err, 0)
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return s.Reconcile(ctx, order)
}

// Reconcile brings the CRM in line with one order: it resolves (or creates) the
// contact and the deal, updates the deal fields that differ and merges product rows.
func (s *DealSyncService) Reconcile(ctx context.Context, order *integration.Order) (result *integration.DealSyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, JobDealSync, "reconcile")
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
			s.recorder.RecordWrites(ctx, JobDealSync, result.WriteCount())
		}
		s.recorder.RecordRun(ctx, JobDealSync, err, time.Since(start))
	}()

	if err := order.Validate(); err != nil {
		return nil, err
	}
	closeTime, err := order.DeliveryTime(s.config.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: delivery_date: %v", integration.ErrOrderValidation, err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrDeliveryCode, order.DeliveryCode)
	log := s.logger.With(zap.String("delivery_code", order.DeliveryCode))

	if check := order.Client.PhoneDiagnostics(s.config.PhoneRegion); !check.Valid {
		log.Warn("Client phone does not parse as a valid number, matching it verbatim",
			zap.String("phone", order.Client.Phone),
			zap.String("region", s.config.PhoneRegion),
		)
	}

	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	result = &integration.DealSyncResult{DeliveryCode: order.DeliveryCode}

	contact, err := s.resolveContact(ctx, order, result)
	if err != nil {
		return nil, err
	}
	result.ContactID = contact.ID
	telemetry.SetAttribute(span, telemetry.SpanAttrContactID, contact.ID)

	deal, err := s.resolveDeal(ctx, order, contact.ID, closeTime, result)
	if err != nil {
		return nil, err
	}
	result.DealID = deal.ID
	telemetry.SetAttribute(span, telemetry.SpanAttrDealID, deal.ID)

	if err := s.reconcileFields(ctx, order, contact.ID, closeTime, deal, result); err != nil {
		return nil, err
	}
	if err := s.reconcileProducts(ctx, order, deal.ID, result); err != nil {
		return nil, err
	}

	log.Info("Deal reconciled",
		zap.String("contact_id", result.ContactID),
		zap.Bool("contact_created", result.ContactCreated),
		zap.String("deal_id", result.DealID),
		zap.Bool("deal_created", result.DealCreated),
		zap.Any("updated_fields", result.UpdatedFields),
		zap.Bool("products_written", result.ProductsWritten),
		zap.Bool("no_op", result.NoOp()),
	)
	return result, nil
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// resolveContact finds the contact by client phone, creating it when absent.
// After a create the contact is looked up again instead of trusting the create response.
func (s *DealSyncService) resolveContact(
	ctx context.Context,
	order *integration.Order,
	result *integration.DealSyncResult,
) (*integration.Contact, error) {
	contact, err := s.findContact(ctx, order.Client.Phone)
	if err != nil || contact != nil {
		return contact, err
	}

	if err := s.crm.CreateContact(ctx, integration.NewContactFromOrder(order)); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	result.ContactCreated = true
	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "contact_created")
	s.logger.Info("Contact created", zap.String("delivery_code", order.DeliveryCode))

	contact, err = s.findContact(ctx, order.Client.Phone)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("%w: phone %q", integration.ErrContactNotResolved, order.Client.Phone)
	}
	return contact, nil
}

func (s *DealSyncService) findContact(ctx context.Context, phone string) (*integration.Contact, error) {
	contacts, err := s.crm.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return integration.MatchContactByPhone(contacts, phone), nil
}

// resolveDeal finds the deal by delivery code, creating it when absent
func (s *DealSyncService) resolveDeal(
	ctx context.Context,
	order *integration.Order,
	contactID string,
	closeTime time.Time,
	result *integration.DealSyncResult,
) (*integration.Deal, error) {
	deal, err := s.findDeal(ctx, order.DeliveryCode)
	if err != nil || deal != nil {
		return deal, err
	}

	if err := s.crm.CreateDeal(ctx, integration.NewDealFromOrder(order, contactID, closeTime)); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	result.DealCreated = true
	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "deal_created")
	s.logger.Info("Deal created", zap.String("delivery_code", order.DeliveryCode))

	deal, err = s.findDeal(ctx, order.DeliveryCode)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, fmt.Errorf("%w: delivery code %q", integration.ErrDealNotResolved, order.DeliveryCode)
	}
	return deal, nil
}

func (s *DealSyncService) findDeal(ctx context.Context, code string) (*integration.Deal, error) {
	deals, err := s.crm.FindDealsByDeliveryCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find deal: %w", err)
	}
	if len(deals) == 0 {
		return nil, nil
	}
	if len(deals) > 1 {
		s.logger.Warn("Several deals share a delivery code, using the first",
			zap.String("delivery_code", code),
			zap.Int("count", len(deals)),
		)
	}
	return &deals[0], nil
}

// ---------------------------------------------------------------------------
// Field and product reconciliation
// ---------------------------------------------------------------------------

type fieldUpdate struct {
	field integration.DealField
	value string
}

func (s *DealSyncService) reconcileFields(
	ctx context.Context,
	order *integration.Order,
	contactID string,
	closeTime time.Time,
	deal *integration.Deal,
	result *integration.DealSyncResult,
) error {
	var updates []fieldUpdate
	if !deal.HasContact() {
		updates = append(updates, fieldUpdate{integration.DealFieldContact, contactID})
	}
	if deal.DeliveryAddress != order.DeliveryAddress {
		updates = append(updates, fieldUpdate{integration.DealFieldDeliveryAddress, order.DeliveryAddress})
	}
	if !integration.SameDate(closeTime, deal.CloseDate) {
		updates = append(updates, fieldUpdate{integration.DealFieldCloseDate, closeTime.Format(integration.CloseDateLayout)})
	}

	for _, u := range updates {
		if err := s.crm.UpdateDealField(ctx, deal.ID, u.field, u.value); err != nil {
			return fmt.Errorf("update deal %s %s: %w", deal.ID, u.field, err)
		}
		result.UpdatedFields = append(result.UpdatedFields, u.field)
	}
	return nil
}

func (s *DealSyncService) reconcileProducts(
	ctx context.Context,
	order *integration.Order,
	dealID string,
	result *integration.DealSyncResult,
) error {
	existing, err := s.crm.GetProductRows(ctx, dealID)
	if err != nil {
		return fmt.Errorf("get product rows: %w", err)
	}

	rows, changed := integration.MergeProducts(existing, order.Products, s.config.MergeMode)
	if !changed {
		return nil
	}
	if err := s.crm.SetProductRows(ctx, dealID, rows); err != nil {
		return fmt.Errorf("set product rows: %w", err)
	}
	result.ProductsWritten = true
	result.Products = rows
	return nil
}
