package integration

import (
	"context"
	"time"
)

// Job names used in logs, spans and metrics
const (
	JobDealSync     = "deal_sync"
	JobUserFields   = "userfields"
	JobCurrencySync = "currency_sync"
)

// SyncRecorder receives per-pass measurements from the sync services.
// telemetry.SyncMetrics implements it.
type SyncRecorder interface {
	// RecordRun records one finished pass and its outcome
	RecordRun(ctx context.Context, job string, err error, duration time.Duration)

	// RecordWrites records the number of CRM write calls issued by a pass
	RecordWrites(ctx context.Context, job string, writes int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, string, error, time.Duration) {}

func (nopRecorder) RecordWrites(context.Context, string, int) {}
