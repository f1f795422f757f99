package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark wins, replay is rejected", func(t *testing.T) {
		fresh, err := store.MarkProcessed(ctx, "square:sales:evt-1001", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		replay, err := store.MarkProcessed(ctx, "square:sales:evt-1001", time.Minute)
		require.NoError(t, err)
		assert.False(t, replay)
	})

	t.Run("distinct events are independent", func(t *testing.T) {
		fresh, err := store.MarkProcessed(ctx, "square:inventory:evt-2001", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("expired mark can be re-taken", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "lightspeed:sales:evt-9", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		fresh, err := store.MarkProcessed(ctx, "lightspeed:sales:evt-9", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unseen")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "seen", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "seen")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = store.MarkProcessed(ctx, "short-lived", 5*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	processed, err = store.IsProcessed(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMarks(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners int

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := store.MarkProcessed(ctx, "contested-event", time.Minute)
			assert.NoError(t, err)
			if fresh {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("evt-%d", i), time.Millisecond)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "long-lived", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 6, store.Size())

	time.Sleep(5 * time.Millisecond)
	store.sweep()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	// Repeat close must not panic or block
	require.NoError(t, store.Close())
}
