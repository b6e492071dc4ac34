package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/crmsync/internal/domain/integration"
	"github.com/erp/crmsync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CurrencySyncer runs one currency pass
type CurrencySyncer interface {
	Sync(ctx context.Context) (*integration.CurrencySyncResult, error)
}

// RunMarker claims a key so a daily pass runs at most once
type RunMarker interface {
	MarkRun(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// CurrencyTriggerConfig holds configuration for the currency trigger
type CurrencyTriggerConfig struct {
	// TargetHour is the local hour (0-23) in which the daily pass runs
	TargetHour int

	// CheckInterval is how often the trigger wakes up to look at the clock
	CheckInterval time.Duration

	// Location is the zone TargetHour and the marker date are evaluated in
	Location *time.Location

	// MarkerTTL must outlive the day the marker is keyed on
	MarkerTTL time.Duration

	// KeyPrefix namespaces the per-date marker key
	KeyPrefix string
}

// DefaultCurrencyTriggerConfig returns the default currency trigger configuration
func DefaultCurrencyTriggerConfig() CurrencyTriggerConfig {
	return CurrencyTriggerConfig{
		TargetHour:    8,
		CheckInterval: time.Hour,
		Location:      time.Local,
		MarkerTTL:     48 * time.Hour,
		KeyPrefix:     "currency_sync:",
	}
}

// Validate checks the configuration and fills in zero values with defaults
func (c *CurrencyTriggerConfig) Validate() error {
	def := DefaultCurrencyTriggerConfig()
	if c.TargetHour < 0 || c.TargetHour > 23 {
		return fmt.Errorf("%w: target hour %d out of range 0-23", ErrInvalidConfig, c.TargetHour)
	}
	if c.CheckInterval < 0 {
		return fmt.Errorf("%w: negative check interval", ErrInvalidConfig)
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = def.CheckInterval
	}
	if c.Location == nil {
		c.Location = def.Location
	}
	if c.MarkerTTL <= 0 {
		c.MarkerTTL = def.MarkerTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = def.KeyPrefix
	}
	return nil
}

// TriggerStatus is a snapshot of the trigger state
type TriggerStatus struct {
	Running     bool       `json:"running"`
	TargetHour  int        `json:"target_hour"`
	LastRunDate string     `json:"last_run_date,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// CurrencyTrigger fires the currency pass once per day during the target hour.
//
// The poll is coarse, so "once" is enforced by the run marker: the per-date
// key is claimed before the pass starts and a failed pass is not retried that
// day. Several replicas sharing a Redis marker run the pass once between them.
type CurrencyTrigger struct {
	config CurrencyTriggerConfig
	syncer CurrencySyncer
	marker RunMarker
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	runMu       sync.Mutex // serializes passes
	isRunning   bool
	lastRunDate string
	lastRunAt   time.Time
	lastErr     error
}

// CurrencyTriggerOption configures a CurrencyTrigger
type CurrencyTriggerOption func(*CurrencyTrigger)

// WithClock replaces time.Now
func WithClock(now func() time.Time) CurrencyTriggerOption {
	return func(c *CurrencyTrigger) {
		c.now = now
	}
}

// NewCurrencyTrigger creates a new currency trigger
func NewCurrencyTrigger(
	config CurrencyTriggerConfig,
	syncer CurrencySyncer,
	marker RunMarker,
	logger *zap.Logger,
	opts ...CurrencyTriggerOption,
) (*CurrencyTrigger, error) {
	if syncer == nil || marker == nil {
		return nil, ErrTriggerNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CurrencyTrigger{
		config: config,
		syncer: syncer,
		marker: marker,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start starts the poll loop. The clock is checked once right away so a
// process started inside the target hour does not wait a full interval.
func (c *CurrencyTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Currency trigger started",
		zap.Int("target_hour", c.config.TargetHour),
		zap.String("location", c.config.Location.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the poll loop and waits for an in-flight pass, or for ctx
func (c *CurrencyTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Currency trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CurrencyTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	c.checkAndTrigger(ctx)

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the pass when the clock is in the target hour and the
// marker for today has not been claimed yet. It reports whether a pass ran.
func (c *CurrencyTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now().In(c.config.Location)
	if now.Hour() != c.config.TargetHour {
		return false
	}
	date := now.Format("2006-01-02")

	c.mu.Lock()
	seen := c.lastRunDate == date
	c.mu.Unlock()
	if seen {
		return false
	}

	claimed, err := c.marker.MarkRun(ctx, c.config.KeyPrefix+date, c.config.MarkerTTL)
	if err != nil {
		// the marker store is down; try again on the next tick
		c.logger.Error("Failed to claim currency run marker", zap.String("date", date), zap.Error(err))
		return false
	}

	c.mu.Lock()
	c.lastRunDate = date
	c.mu.Unlock()

	if !claimed {
		c.logger.Info("Currency pass already ran today", zap.String("date", date))
		return false
	}

	// Errors are logged by runPass; the marker stays set so there is no same-day retry.
	c.runMu.Lock()
	defer c.runMu.Unlock()
	_, _ = c.runPass(ctx, "scheduled")
	return true
}

// RunOnce runs one currency pass now, regardless of the clock and the marker.
// It is used for manual triggers and does not claim the daily marker.
func (c *CurrencyTrigger) RunOnce(ctx context.Context) (*integration.CurrencySyncResult, error) {
	if !c.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.runMu.Unlock()
	return c.runPass(ctx, "manual")
}

// runPass must be called with runMu held
func (c *CurrencyTrigger) runPass(ctx context.Context, reason string) (*integration.CurrencySyncResult, error) {
	ctx, log := logger.WithRunID(ctx, c.logger, uuid.NewString())
	log = log.With(zap.String("reason", reason))
	log.Info("Currency pass starting")

	result, err := c.syncer.Sync(ctx)

	c.mu.Lock()
	c.lastRunAt = c.now()
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		log.Error("Currency pass failed", zap.Error(err))
		return nil, err
	}
	log.Info("Currency pass finished",
		zap.Strings("updated", result.Updated),
		zap.Strings("added", result.Added),
		zap.Strings("missing", result.Missing),
	)
	return result, nil
}

// Status returns a snapshot of the trigger state
func (c *CurrencyTrigger) Status() TriggerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := TriggerStatus{
		Running:     c.isRunning,
		TargetHour:  c.config.TargetHour,
		LastRunDate: c.lastRunDate,
	}
	if !c.lastRunAt.IsZero() {
		at := c.lastRunAt
		st.LastRunAt = &at
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
