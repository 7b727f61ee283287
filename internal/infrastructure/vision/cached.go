package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/pricematch/backend/internal/domain"
)

// CachedClient memoizes pairwise similarity scores. Comparison is symmetric,
// so the key orders the refs before lookup and a/b and b/a share one entry.
type CachedClient struct {
	inner domain.VisionClient
	cache domain.ScoreCache
	ttl   time.Duration
}

// NewCachedClient wraps a vision client with a score cache.
func NewCachedClient(inner domain.VisionClient, cache domain.ScoreCache, ttl time.Duration) *CachedClient {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &CachedClient{inner: inner, cache: cache, ttl: ttl}
}

// Compare returns the cached score when present, otherwise asks the
// provider and stores the result. Cache write failures are ignored; the
// score is still returned.
func (c *CachedClient) Compare(ctx context.Context, refA, refB string) (float64, error) {
	key := pairKey(refA, refB)

	if score, err := c.cache.Get(ctx, key); err == nil {
		return score, nil
	}

	score, err := c.inner.Compare(ctx, refA, refB)
	if err != nil {
		return 0, err
	}

	_ = c.cache.Set(ctx, key, score, c.ttl)
	return score, nil
}

func pairKey(refA, refB string) string {
	if refB < refA {
		refA, refB = refB, refA
	}
	return fmt.Sprintf("vision:%s:%s", refA, refB)
}
