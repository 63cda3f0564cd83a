package viewer

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gateway-trace/internal/catalog"
)

// SyncStats summarises a sync run.
type SyncStats struct {
	Listed  int
	Fetched int
	Skipped int
	Failed  int
}

// Sync fetches every listed transcript that is not cached yet, with at most
// workers requests in flight. Individual fetch failures are counted and
// logged; only listing and context errors abort the run.
func (c *Controller) Sync(ctx context.Context, workers int, force bool) (SyncStats, error) {
	if c.cache == nil {
		return SyncStats{}, fmt.Errorf("sync: no cache configured")
	}
	tree, err := c.Refresh(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("sync: %w", err)
	}
	entries := tree.Entries()
	stats := SyncStats{Listed: len(entries)}

	if workers <= 0 {
		workers = 1
	}
	var fetched, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return c.syncOne(gctx, e, force, &fetched, &skipped, &failed)
		})
	}
	err = g.Wait()

	stats.Fetched = int(fetched.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

func (c *Controller) syncOne(ctx context.Context, e catalog.Entry, force bool, fetched, skipped, failed *atomic.Int64) error {
	if !force {
		has, err := c.cache.Has(ctx, e.Path)
		if err != nil {
			c.logger.Printf("check cache %s: %v", e.Path, err)
		}
		if has {
			skipped.Add(1)
			return nil
		}
	}
	f, err := c.backend.FetchTranscript(ctx, e.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("sync %s: %v", e.Path, err)
		failed.Add(1)
		return nil
	}
	if err := c.cache.Put(ctx, f.Path, f.Raw, f.Transcript); err != nil {
		c.logger.Printf("cache %s: %v", f.Path, err)
		failed.Add(1)
		return nil
	}
	fetched.Add(1)
	return nil
}
