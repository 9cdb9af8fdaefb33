package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", "1", 0))
	val, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete(ctx, "a"))
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))

	now = now.Add(30 * time.Second)
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// An expired key no longer blocks SetNX.
	ok, err := s.SetNX(ctx, "a", "2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.SetNX(ctx, "lock", "holder-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "lock", "holder-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := s.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "holder-1", val)
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "marker", "token-1", 0))

	ok, err := s.CompareAndDelete(ctx, "marker", "token-2")
	require.NoError(t, err)
	assert.False(t, ok, "stale token must not clear the marker")

	ok, err = s.CompareAndDelete(ctx, "marker", "token-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Get(ctx, "marker")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_IncrConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.Incr(ctx, "counter", time.Hour)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	val, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "1000", val)
}
