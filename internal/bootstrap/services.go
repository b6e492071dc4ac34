package bootstrap

import (
	"fmt"
	"time"

	appintegration "github.com/erp/crmsync/internal/application/integration"
	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/bitrix"
	"github.com/erp/crmsync/internal/infrastructure/cache"
	"github.com/erp/crmsync/internal/infrastructure/ordersource"
	"github.com/erp/crmsync/internal/infrastructure/ratefeed"
	"github.com/erp/crmsync/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// DealSyncService builds the deal reconciler. With withSource the pending
// order endpoint is attached so SyncFromSource works.
func (r *Runtime) DealSyncService(crm *bitrix.Client, withSource bool) (*appintegration.DealSyncService, error) {
	mode, err := integration.ParseProductMergeMode(r.Config.Deal.ProductMergeMode)
	if err != nil {
		return nil, err
	}

	var source integration.OrderSource
	if withSource {
		src, err := ordersource.NewHTTPSource(&ordersource.Config{
			URL:            r.Config.OrderSource.URL,
			TimeoutSeconds: seconds(r.Config.OrderSource.Timeout),
		}, nil)
		if err != nil {
			return nil, err
		}
		source = src
	}

	svc, err := appintegration.NewDealSyncService(crm, source, appintegration.DealSyncConfig{
		MergeMode:   mode,
		Location:    r.Config.DealLocation(),
		PhoneRegion: r.Config.Deal.PhoneRegion,
	}, r.Logger.Named(appintegration.JobDealSync))
	if err != nil {
		return nil, err
	}
	svc.SetRecorder(r.Metrics)
	return svc, nil
}

// UserFieldService builds the userfield provisioner
func (r *Runtime) UserFieldService(crm *bitrix.Client) (*appintegration.UserFieldService, error) {
	svc, err := appintegration.NewUserFieldService(crm, r.Logger.Named(appintegration.JobUserFields))
	if err != nil {
		return nil, err
	}
	svc.SetRecorder(r.Metrics)
	return svc, nil
}

// CurrencyTrigger builds the currency pass and the daily trigger around it.
// The caller owns the returned marker and must close it.
func (r *Runtime) CurrencyTrigger(crm *bitrix.Client) (*scheduler.CurrencyTrigger, cache.RunMarker, error) {
	feed, err := ratefeed.NewCBRFeed(&ratefeed.Config{
		BaseURL:        r.Config.Feed.BaseURL,
		TimeoutSeconds: seconds(r.Config.Feed.Timeout),
	}, nil)
	if err != nil {
		return nil, nil, err
	}

	svc, err := appintegration.NewCurrencySyncService(feed, crm, appintegration.CurrencySyncConfig{
		Codes:    r.Config.Feed.Currencies,
		Location: r.Config.FeedLocation(),
	}, r.Logger.Named(appintegration.JobCurrencySync))
	if err != nil {
		return nil, nil, err
	}
	svc.SetRecorder(r.Metrics)

	marker, err := cache.NewRunMarkerFactory(r.Config.Redis,
		cache.WithLogger(r.Logger),
		cache.WithInMemoryFallback(true),
	).Create()
	if err != nil {
		return nil, nil, fmt.Errorf("create run marker: %w", err)
	}

	trigger, err := scheduler.NewCurrencyTrigger(scheduler.CurrencyTriggerConfig{
		TargetHour:    r.Config.Feed.TargetHour,
		CheckInterval: r.Config.Feed.CheckInterval,
		Location:      r.Config.FeedLocation(),
	}, svc, marker, r.Logger.Named("currency_trigger"))
	if err != nil {
		if cerr := marker.Close(); cerr != nil {
			r.Logger.Warn("Failed to close run marker", zap.Error(cerr))
		}
		return nil, nil, err
	}
	return trigger, marker, nil
}
