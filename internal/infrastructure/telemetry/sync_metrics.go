package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome values of the outcome attribute on sync run metrics
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"  // input rejected before any CRM call
	OutcomeUpstream = "upstream" // CRM, feed or order source failed
	OutcomeError    = "error"
)

// SyncMetrics records pass counts, durations and CRM write volume of the sync jobs.
type SyncMetrics struct {
	logger *zap.Logger

	runsTotal       *Counter
	runDuration     *Histogram
	crmWritesTotal  *Counter
	lastSuccessUnix *Gauge
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{logger: logger}
	var err error

	if sm.runsTotal, err = NewCounter(meter,
		"crmsync_runs_total",
		"Total number of sync passes by job and outcome",
		"{run}",
	); err != nil {
		return nil, err
	}

	if sm.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "crmsync_run_duration_seconds",
		Description: "Duration of one sync pass",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if sm.crmWritesTotal, err = NewCounter(meter,
		"crmsync_crm_writes_total",
		"Total number of CRM write calls issued by sync passes",
		"{call}",
	); err != nil {
		return nil, err
	}

	if sm.lastSuccessUnix, err = NewGauge(meter,
		"crmsync_last_success_timestamp_seconds",
		"Unix time of the last successful pass per job",
		"s",
	); err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordRun records one finished pass
func (sm *SyncMetrics) RecordRun(ctx context.Context, job string, err error, duration time.Duration) {
	outcome := Outcome(err)
	sm.runsTotal.Inc(ctx, AttrJob.String(job), AttrOutcome.String(outcome))
	sm.runDuration.RecordDuration(ctx, duration, AttrJob.String(job), AttrOutcome.String(outcome))
	if err == nil {
		sm.lastSuccessUnix.Record(ctx, time.Now().Unix(), AttrJob.String(job))
	}
}

// RecordWrites records the number of CRM writes issued by a pass
func (sm *SyncMetrics) RecordWrites(ctx context.Context, job string, writes int) {
	if writes <= 0 {
		return
	}
	sm.crmWritesTotal.Add(ctx, int64(writes), AttrJob.String(job))
}

// Outcome classifies a pass error for the outcome attribute
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, integration.ErrOrderValidation),
		errors.Is(err, integration.ErrInvalidCurrencyCode),
		errors.Is(err, integration.ErrInvalidUserFieldName):
		return OutcomeInvalid
	case errors.Is(err, integration.ErrCRMUnavailable),
		errors.Is(err, integration.ErrCRMRequestFailed),
		errors.Is(err, integration.ErrCRMAuthFailed),
		errors.Is(err, integration.ErrCRMInvalidResponse),
		errors.Is(err, integration.ErrFeedUnavailable),
		errors.Is(err, integration.ErrFeedInvalidResponse),
		errors.Is(err, integration.ErrOrderSourceUnavailable),
		errors.Is(err, integration.ErrOrderSourceInvalidResponse):
		return OutcomeUpstream
	default:
		return OutcomeError
	}
}

// ErrMeterNil is returned when a meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
