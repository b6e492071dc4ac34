// Package bootstrap wires the process-wide dependencies shared by the crmsync binaries.
package bootstrap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/bitrix"
	"github.com/erp/crmsync/internal/infrastructure/config"
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/erp/crmsync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
)

// shutdownTimeout bounds flushing telemetry on exit
const shutdownTimeout = 10 * time.Second

// ErrUsage marks invalid command-line usage
var ErrUsage = errors.New("invalid usage")

// ParseFlags parses args into fs. Parse failures are wrapped in ErrUsage;
// a help request is returned as flag.ErrHelp.
func ParseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// Runtime holds the dependencies every job binary needs
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tracer  *telemetry.TracerProvider
	Meter   *telemetry.MeterProvider
	Metrics *telemetry.SyncMetrics
}

// New loads configuration and sets up logging and telemetry for one job.
// Telemetry failures are logged and degrade to no-op providers.
func New(ctx context.Context, job string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg, job)
}

// NewWithConfig is New for an already loaded configuration
func NewWithConfig(ctx context.Context, cfg *config.Config, job string) (*Runtime, error) {
	base, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := base.Named(job).With(
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	rt := &Runtime{Config: cfg, Logger: log}

	rt.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    telemetry.ServiceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		rt.Tracer = telemetry.NewNoopTracerProvider(log)
	}

	rt.Meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    telemetry.ServiceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics disabled", zap.Error(err))
		rt.Meter = telemetry.NewNoopMeterProvider(log)
	}

	rt.Metrics, err = telemetry.NewSyncMetrics(rt.Meter.Meter("crmsync"), log)
	if err != nil {
		return nil, fmt.Errorf("init sync metrics: %w", err)
	}
	return rt, nil
}

// BitrixClient builds the CRM client. A missing webhook url is reported here,
// so jobs that never reach the CRM do not need one.
func (r *Runtime) BitrixClient() (*bitrix.Client, error) {
	cfg := bitrix.NewConfig(r.Config.Bitrix.WebhookURL)
	if r.Config.Bitrix.Timeout > 0 {
		cfg.TimeoutSeconds = int(r.Config.Bitrix.Timeout / time.Second)
	}
	return bitrix.NewClient(cfg, bitrix.WithLogger(r.Logger.Named("bitrix")))
}

// Close flushes and shuts down telemetry and syncs the logger
func (r *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := r.Meter.ForceFlush(ctx); err != nil {
		r.Logger.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := r.Meter.Shutdown(ctx); err != nil {
		r.Logger.Warn("Failed to shut down meter provider", zap.Error(err))
	}
	if err := r.Tracer.ForceFlush(ctx); err != nil {
		r.Logger.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := r.Tracer.Shutdown(ctx); err != nil {
		r.Logger.Warn("Failed to shut down tracer provider", zap.Error(err))
	}
	logger.Sync(r.Logger)
}

// ExitCode maps a job error onto the process exit code.
// Invalid input and usage errors exit with 2, everything else with 1.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, integration.ErrOrderValidation),
		errors.Is(err, integration.ErrInvalidUserFieldName),
		errors.Is(err, ErrUsage):
		return ExitValidation
	default:
		return ExitFailure
	}
}
