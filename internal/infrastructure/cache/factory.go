package cache

import (
	"fmt"

	"github.com/erp/crmsync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RunMarkerFactory creates run markers based on configuration
type RunMarkerFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RunMarkerFactoryOption is a functional option for configuring the factory
type RunMarkerFactoryOption func(*RunMarkerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RunMarkerFactoryOption {
	return func(f *RunMarkerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory marker when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) RunMarkerFactoryOption {
	return func(f *RunMarkerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewRunMarkerFactory creates a new factory
func NewRunMarkerFactory(cfg config.RedisConfig, opts ...RunMarkerFactoryOption) *RunMarkerFactory {
	f := &RunMarkerFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create returns a Redis marker when Redis is enabled and reachable.
// Otherwise it falls back to an in-memory marker if allowed.
func (f *RunMarkerFactory) Create() (RunMarker, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory run marker")
		return NewInMemoryRunMarker(), nil
	}

	marker, err := NewRedisRunMarker(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis run marker", zap.String("addr", f.redisConfig.Addr()))
		return marker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for run marker but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory run marker. "+
		"Replicas may each run the daily currency pass.",
		zap.Error(err),
	)
	return NewInMemoryRunMarker(), nil
}
