package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CurrencySyncConfig configures the currency pass
type CurrencySyncConfig struct {
	// Codes are the currencies copied from the feed (default: EUR, USD, KZT, PLN)
	Codes []string
	// Location is the zone used to pick "today" for the feed (default: time.Local)
	Location *time.Location
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// CurrencySyncService copies today's official rates into the CRM currency directory
type CurrencySyncService struct {
	feed     integration.RateFeed
	crm      integration.CurrencyCRM
	config   CurrencySyncConfig
	logger   *zap.Logger
	recorder SyncRecorder
}

// NewCurrencySyncService creates a new CurrencySyncService
func NewCurrencySyncService(
	feed integration.RateFeed,
	crm integration.CurrencyCRM,
	cfg CurrencySyncConfig,
	logger *zap.Logger,
) (*CurrencySyncService, error) {
	if crm == nil {
		return nil, integration.ErrCRMNotConfigured
	}
	if feed == nil {
		return nil, fmt.Errorf("%w: rate feed is nil", integration.ErrFeedUnavailable)
	}
	if len(cfg.Codes) == 0 {
		cfg.Codes = integration.DefaultCurrencyCodes
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurrencySyncService{
		feed:     feed,
		crm:      crm,
		config:   cfg,
		logger:   logger,
		recorder: nopRecorder{},
	}, nil
}

// SetRecorder attaches a metrics recorder
func (s *CurrencySyncService) SetRecorder(r SyncRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// Sync fetches today's rates and upserts the configured codes into the CRM:
// codes the CRM already knows are updated, the others are added with a unit count of 1.
func (s *CurrencySyncService) Sync(ctx context.Context) (result *integration.CurrencySyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, JobCurrencySync, "sync")
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
			s.recorder.RecordWrites(ctx, JobCurrencySync, result.WriteCount())
		}
		s.recorder.RecordRun(ctx, JobCurrencySync, err, time.Since(start))
	}()

	today := s.config.Clock().In(s.config.Location)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRateDate, today.Format("2006-01-02"),
		telemetry.SpanAttrCurrencies, s.config.Codes,
	)

	rates, err := s.feed.FetchRates(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	selected, missing := integration.SelectRates(rates, s.config.Codes)
	if len(missing) > 0 {
		s.logger.Warn("Feed has no rate for some configured currencies",
			zap.Strings("missing", missing),
			zap.String("date", today.Format("2006-01-02")),
		)
	}

	codes, err := s.crm.ListCurrencyCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	known := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		known[c] = struct{}{}
	}

	result = &integration.CurrencySyncResult{
		Date:    today,
		Updated: []string{},
		Added:   []string{},
		Missing: missing,
	}
	for _, rate := range selected {
		if _, ok := known[rate.Code]; ok {
			if err := s.crm.UpdateCurrency(ctx, rate); err != nil {
				return nil, fmt.Errorf("update currency %s: %w", rate.Code, err)
			}
			result.Updated = append(result.Updated, rate.Code)
		} else {
			if err := s.crm.AddCurrency(ctx, rate); err != nil {
				return nil, fmt.Errorf("add currency %s: %w", rate.Code, err)
			}
			result.Added = append(result.Added, rate.Code)
		}
		s.logger.Debug("Currency rate written",
			zap.String("code", rate.Code),
			zap.String("amount", rate.Amount.String()),
			zap.Int64("unit_count", rate.UnitCount()),
		)
	}

	s.logger.Info("Currency rates synced",
		zap.String("date", today.Format("2006-01-02")),
		zap.Strings("updated", result.Updated),
		zap.Strings("added", result.Added),
	)
	return result, nil
}
