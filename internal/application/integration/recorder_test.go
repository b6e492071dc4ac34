package integration

import (
	"context"
	"testing"
	"time"

	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

var _ SyncRecorder = (*telemetry.SyncMetrics)(nil)

func TestNopRecorder(t *testing.T) {
	var r SyncRecorder = nopRecorder{}
	assert.NotPanics(t, func() {
		r.RecordRun(context.Background(), JobDealSync, nil, time.Second)
		r.RecordWrites(context.Background(), JobDealSync, 3)
	})
}
