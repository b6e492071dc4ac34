// Package cache holds the short-lived shared state of the sync jobs.
package cache

import (
	"context"
	"time"
)

// RunMarker records that a keyed run happened so it is not repeated.
type RunMarker interface {
	// MarkRun claims key for ttl.
	// Returns true if the key was newly claimed, false if another run holds it.
	MarkRun(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}

// DefaultKeyPrefix namespaces marker keys in a shared Redis
const DefaultKeyPrefix = "crmsync:run:"
