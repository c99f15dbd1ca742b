package jobs

import (
	"context"
	"sync"
	"time"
)

// Item is one unit of work inside a synchronous fan-out.
type Item struct {
	ID      string
	Payload interface{}
}

// ItemResult reports the outcome for a single fan-out item.
type ItemResult struct {
	ID  string
	Err error
}

// PoolConfig tunes chunked fan-out execution.
type PoolConfig struct {
	Workers     int
	ChunkSize   int
	ChunkPacing time.Duration
}

// Pool runs independent items with bounded concurrency and collects
// per-item results. Items are processed in chunks with inter-chunk
// pacing; a cancelled context stops unprocessed chunks but results for
// completed items are retained.
type Pool struct {
	workers     int
	chunkSize   int
	chunkPacing time.Duration
}

// NewPool constructs a Pool with sane bounds.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	return &Pool{workers: cfg.Workers, chunkSize: cfg.ChunkSize, chunkPacing: cfg.ChunkPacing}
}

// Run executes fn for every item and returns one result per processed
// item. Items left unprocessed due to context cancellation are reported
// with the context error so callers can retry them.
func (p *Pool) Run(ctx context.Context, items []Item, fn func(context.Context, Item) error) []ItemResult {
	results := make([]ItemResult, 0, len(items))
	var mu sync.Mutex

	for start := 0; start < len(items); start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			for _, item := range items[start:] {
				results = append(results, ItemResult{ID: item.ID, Err: err})
			}
			break
		}

		end := start + p.chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		sem := make(chan struct{}, p.workers)
		var wg sync.WaitGroup
		for _, item := range chunk {
			wg.Add(1)
			sem <- struct{}{}
			go func(it Item) {
				defer wg.Done()
				defer func() { <-sem }()
				err := fn(ctx, it)
				mu.Lock()
				results = append(results, ItemResult{ID: it.ID, Err: err})
				mu.Unlock()
			}(item)
		}
		wg.Wait()

		if p.chunkPacing > 0 && end < len(items) {
			timer := time.NewTimer(p.chunkPacing)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	return results
}
