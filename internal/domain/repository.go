package domain

import (
	"context"
	"time"
)

// ScoreCache defines the interface for memoizing pairwise similarity scores
type ScoreCache interface {
	Get(ctx context.Context, key string) (float64, error)
	Set(ctx context.Context, key string, score float64, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// VisionClient defines the interface for the external visual similarity
// provider. Compare returns a similarity in [0,100] for two image references.
type VisionClient interface {
	Compare(ctx context.Context, refA, refB string) (float64, error)
}

// ReRankClient defines the interface for the external re-ranking provider.
// The shortlist carries the engine's current scores; the provider answers
// with a verdict that may confirm a candidate or reject them all.
type ReRankClient interface {
	ReRank(ctx context.Context, source NormalizedProduct, shortlist []RankedCandidate) (*ReRankVerdict, error)
}
