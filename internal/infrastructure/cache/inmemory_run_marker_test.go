package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMarker(t *testing.T) (*InMemoryRunMarker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	m := newInMemoryRunMarker(clock.Now, time.Hour)
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestInMemoryRunMarker_MarkRun(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a new key", func(t *testing.T) {
		m, _ := newTestMarker(t)

		claimed, err := m.MarkRun(ctx, "currency:2024-03-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("second claim is refused", func(t *testing.T) {
		m, _ := newTestMarker(t)

		claimed, err := m.MarkRun(ctx, "currency:2024-03-01", time.Hour)
		require.NoError(t, err)
		require.True(t, claimed)

		claimed, err = m.MarkRun(ctx, "currency:2024-03-01", time.Hour)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("key can be claimed again after expiry", func(t *testing.T) {
		m, clock := newTestMarker(t)

		_, err := m.MarkRun(ctx, "k", time.Minute)
		require.NoError(t, err)

		clock.Advance(time.Minute)

		claimed, err := m.MarkRun(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
	})
}

func TestInMemoryRunMarker_Cleanup(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMarker(t)

	_, _ = m.MarkRun(ctx, "short", time.Minute)
	_, _ = m.MarkRun(ctx, "long", time.Hour)
	assert.Equal(t, 2, m.Size())

	clock.Advance(10 * time.Minute)
	m.cleanup()

	assert.Equal(t, 1, m.Size())
	claimed, err := m.MarkRun(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestInMemoryRunMarker_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMarker(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := m.MarkRun(ctx, "shared", time.Hour)
			if err == nil && claimed {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryRunMarker_Close(t *testing.T) {
	m := NewInMemoryRunMarker()
	for i := 0; i < 3; i++ {
		_, _ = m.MarkRun(context.Background(), fmt.Sprintf("k%d", i), time.Hour)
	}

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")
}
