package httpclient

import (
	"context"
	"sync"
	"time"
)

// ChunkOptions configures ProcessInChunks.
type ChunkOptions struct {
	// Size is the window width (default 5).
	Size int

	// Delay between windows; zero falls back to the client's ChunkDelay.
	Delay time.Duration
}

// ProcessInChunks partitions items into fixed-size windows and runs fn
// on every item of a window in parallel, pausing between windows to
// avoid burst rate limits. One item's failure never aborts the batch:
// failed items are dropped from the result with a logged warning.
//
// Result order is guaranteed by window, and by item within a window;
// only the execution inside a window is concurrent.
func ProcessInChunks[T, R any](ctx context.Context, c *Client, items []T, fn func(context.Context, T) (R, error), opts ChunkOptions) ([]R, error) {
	size := opts.Size
	if size <= 0 {
		size = 5
	}
	delay := c.cfg.ChunkDelay
	if opts.Delay > 0 {
		delay = opts.Delay
	}

	results := make([]R, 0, len(items))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		chunkResults := make([]*R, len(chunk))
		var wg sync.WaitGroup
		for i, item := range chunk {
			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				r, err := fn(ctx, item)
				if err != nil {
					c.cfg.Logger.Warn("chunk item failed, dropping from batch",
						"provider", c.cfg.Provider,
						"error", err,
					)
					return
				}
				chunkResults[i] = &r
			}(i, item)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return results, err
		}
		for _, r := range chunkResults {
			if r != nil {
				results = append(results, *r)
			}
		}

		if end < len(items) {
			if err := c.cfg.Sleep(ctx, delay); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}
