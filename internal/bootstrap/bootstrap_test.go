package bootstrap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/config"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "crmsync", Env: "test"},
		Log:    config.LogConfig{Level: "error", Format: "console", Output: "stderr"},
		Bitrix: config.BitrixConfig{Timeout: 5 * time.Second},
		Telemetry: config.TelemetryConfig{
			ServiceName:           "crmsync-test",
			MetricsExportInterval: time.Minute,
		},
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"invalid order", &integration.ValidationError{}, ExitValidation},
		{"wrapped invalid order", fmt.Errorf("fetch: %w", integration.ErrOrderValidation), ExitValidation},
		{"bad field name", integration.ErrInvalidUserFieldName, ExitValidation},
		{"usage", fmt.Errorf("%w: unknown flag", ErrUsage), ExitValidation},
		{"help", flag.ErrHelp, ExitOK},
		{"crm down", integration.ErrCRMUnavailable, ExitFailure},
		{"other", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantExit int
	}{
		{"no flags", nil, nil, ExitOK},
		{"known flag", []string{"-once"}, nil, ExitOK},
		{"unknown flag", []string{"-bogus"}, ErrUsage, ExitValidation},
		{"bad value", []string{"-once=maybe"}, ErrUsage, ExitValidation},
		{"help", []string{"-h"}, flag.ErrHelp, ExitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			fs.Bool("once", false, "")

			err := ParseFlags(fs, tt.args)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantExit, ExitCode(err))
		})
	}
}

func TestNewWithConfig_TelemetryDisabled(t *testing.T) {
	rt, err := NewWithConfig(context.Background(), testConfig(), "test")
	require.NoError(t, err)

	assert.NotNil(t, rt.Logger)
	assert.False(t, rt.Tracer.IsEnabled())
	assert.False(t, rt.Meter.IsEnabled())
	assert.NotNil(t, rt.Metrics)
	rt.Close()
}

func TestRuntime_CloseWithNoopProviders(t *testing.T) {
	rt, err := NewWithConfig(context.Background(), testConfig(), "test")
	require.NoError(t, err)

	rt.Tracer = telemetry.NewNoopTracerProvider(rt.Logger)
	rt.Meter = telemetry.NewNoopMeterProvider(rt.Logger)
	assert.NotPanics(t, rt.Close)
}

func TestRuntime_BitrixClient(t *testing.T) {
	cfg := testConfig()
	rt, err := NewWithConfig(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.BitrixClient()
	assert.ErrorIs(t, err, integration.ErrCRMNotConfigured)

	cfg.Bitrix.WebhookURL = "https://portal.bitrix24.ru/rest/1/secret/"
	client, err := rt.BitrixClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
