package keywords

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/model"
	"github.com/contentforge/contentforge/internal/resilience"
	"github.com/contentforge/contentforge/internal/store"
)

// Cached decorates a Source with a store-backed TTL cache and retry on
// the underlying source. Cache failures are treated as misses; they
// never fail a lookup.
type Cached struct {
	src   Source
	store store.Store
	ttl   time.Duration
	retry resilience.Policy
}

// NewCached wraps src with caching. A non-positive ttl disables
// caching writes but still consults the store for earlier entries.
func NewCached(src Source, st store.Store, ttl time.Duration) *Cached {
	p := resilience.DefaultPolicy()
	p.OnRetry = resilience.Logged("keywords", "trending")
	return &Cached{src: src, store: st, ttl: ttl, retry: p}
}

func (c *Cached) Trending(ctx context.Context, category string) ([]model.TrendingKeyword, error) {
	cached, err := c.store.GetCachedKeywords(ctx, category)
	if err != nil {
		zap.L().Warn("keyword cache read failed",
			zap.String("category", category),
			zap.Error(err),
		)
	} else if cached != nil {
		return cached, nil
	}

	keywords, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]model.TrendingKeyword, error) {
		return c.src.Trending(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		if err := c.store.SetCachedKeywords(ctx, category, keywords, c.ttl); err != nil {
			zap.L().Warn("keyword cache write failed",
				zap.String("category", category),
				zap.Error(err),
			)
		}
	}
	return keywords, nil
}
