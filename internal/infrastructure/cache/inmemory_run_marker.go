package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryRunMarker implements RunMarker using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryRunMarker struct {
	mu        sync.RWMutex
	entries   map[string]time.Time // key -> expiresAt
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRunMarker creates a new in-memory run marker
// It starts a background goroutine to clean up expired entries
func NewInMemoryRunMarker() *InMemoryRunMarker {
	return newInMemoryRunMarker(time.Now, 5*time.Minute)
}

func newInMemoryRunMarker(now func() time.Time, cleanupEvery time.Duration) *InMemoryRunMarker {
	m := &InMemoryRunMarker{
		entries:  make(map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop(cleanupEvery)

	return m
}

// MarkRun claims key for ttl
func (m *InMemoryRunMarker) MarkRun(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiresAt, exists := m.entries[key]; exists && now.Before(expiresAt) {
		return false, nil
	}

	m.entries[key] = now.Add(ttl)
	return true, nil
}

// Close stops the cleanup goroutine
// Safe to call multiple times
func (m *InMemoryRunMarker) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
	return nil
}

func (m *InMemoryRunMarker) cleanupLoop(every time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes expired entries
func (m *InMemoryRunMarker) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, expiresAt := range m.entries {
		if !now.Before(expiresAt) {
			delete(m.entries, key)
		}
	}
}

// Size returns the number of entries (for testing/monitoring)
func (m *InMemoryRunMarker) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ RunMarker = (*InMemoryRunMarker)(nil)
