package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("item-%d", i)}
	}
	return items
}

func TestPoolRunsEveryItem(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 4, ChunkSize: 10})
	var processed int32

	results := pool.Run(context.Background(), poolItems(35), func(ctx context.Context, item Item) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})

	require.Len(t, results, 35)
	assert.Equal(t, int32(35), atomic.LoadInt32(&processed))
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestPoolCollectsPerItemErrors(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 2, ChunkSize: 5})
	failure := errors.New("boom")

	results := pool.Run(context.Background(), poolItems(10), func(ctx context.Context, item Item) error {
		if item.ID == "item-3" || item.ID == "item-7" {
			return failure
		}
		return nil
	})

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.ErrorIs(t, r.Err, failure)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestPoolCancelledContextMarksRemaining(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, ChunkSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	var processed int32

	results := pool.Run(ctx, poolItems(10), func(ctx context.Context, item Item) error {
		if atomic.AddInt32(&processed, 1) == 2 {
			cancel()
		}
		return nil
	})

	require.Len(t, results, 10)
	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	// The first chunk completed; everything after the cancellation is
	// reported with the context error so callers can retry it.
	assert.Equal(t, 8, cancelled)
	assert.Equal(t, int32(2), atomic.LoadInt32(&processed))
}

func TestPoolDefaults(t *testing.T) {
	pool := NewPool(PoolConfig{})
	assert.Equal(t, 4, pool.workers)
	assert.Equal(t, 100, pool.chunkSize)
}
