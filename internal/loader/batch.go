package loader

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/objparse/internal/texture"
)

// LoadAll loads paths concurrently, at most opts.Workers at a time, sharing
// one texture cache. Results are in input order with nil entries for failed
// loads; the returned error combines every failure. With opts.FailFast the
// first failure cancels the loads still running.
func LoadAll(ctx context.Context, paths []string, opts Options) ([]*Asset, error) {
	opts = opts.withDefaults()
	if opts.Cache == nil {
		opts.Cache = texture.NewCache()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	assets := make([]*Asset, len(paths))
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			asset, err := Load(gctx, path, opts)
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				if opts.FailFast {
					return err
				}
				return nil
			}
			assets[i] = asset
			return nil
		})
	}
	_ = g.Wait()

	hits, misses := opts.Cache.Stats()
	opts.Logger.Info("batch load finished",
		zap.Int("models", len(paths)),
		zap.Int("failed", len(multierr.Errors(errs))),
		zap.Int("texture_cache_hits", hits),
		zap.Int("texture_cache_misses", misses),
	)
	return assets, errs
}
