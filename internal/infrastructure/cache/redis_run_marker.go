package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRunMarker implements RunMarker using Redis
// Several scheduler replicas sharing one Redis run each daily pass once.
type RedisRunMarker struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRunMarker connects to Redis and verifies the connection
func NewRedisRunMarker(cfg RedisConfig) (*RedisRunMarker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunMarkerWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisRunMarkerWithClient creates a marker with an existing Redis client
func NewRedisRunMarkerWithClient(client *redis.Client, keyPrefix string) *RedisRunMarker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisRunMarker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkRun claims key for ttl with a single SETNX
func (m *RedisRunMarker) MarkRun(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark run %s: %w", key, err)
	}
	return ok, nil
}

// Close closes the Redis client
func (m *RedisRunMarker) Close() error {
	return m.client.Close()
}

var _ RunMarker = (*RedisRunMarker)(nil)
