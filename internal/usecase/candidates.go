package usecase

import (
	"context"
	"sort"

	"github.com/pricematch/backend/internal/domain"
)

// CandidateConfig bounds the pre-filter stage.
type CandidateConfig struct {
	// K is the shortlist size per source product.
	K int
	// MinScore is the quick-score floor; deliberately looser than the
	// acceptance threshold so the expensive scorers see borderline pairs.
	MinScore float64
}

// Shortlisted is a target index that survived the pre-filter.
type Shortlisted struct {
	Index int
	Score float64
}

// CandidateGenerator narrows the full cross-product to a shortlist per
// source product using a cheap token-level name score, before any of the
// expensive attribute scorers run.
type CandidateGenerator struct {
	k        int
	minScore float64
}

// NewCandidateGenerator creates a generator with defaults applied.
func NewCandidateGenerator(cfg CandidateConfig) *CandidateGenerator {
	if cfg.K <= 0 {
		cfg.K = 10
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 30
	}
	return &CandidateGenerator{k: cfg.K, minScore: cfg.MinScore}
}

// Candidates returns up to k target indices scoring at least minScore,
// ordered by descending quick score. The sort is stable, so equal scores
// keep target catalog order and the shortlist is deterministic.
func (g *CandidateGenerator) Candidates(ctx context.Context, source *domain.NormalizedProduct, targets []domain.NormalizedProduct) ([]Shortlisted, error) {
	shortlist := make([]Shortlisted, 0, g.k)

	for i := range targets {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		score := g.quickScore(source, &targets[i])
		if score >= g.minScore {
			shortlist = append(shortlist, Shortlisted{Index: i, Score: score})
		}
	}

	sort.SliceStable(shortlist, func(i, j int) bool {
		return shortlist[i].Score > shortlist[j].Score
	})
	if len(shortlist) > g.k {
		shortlist = shortlist[:g.k]
	}
	return shortlist, nil
}

// quickScore is a token-set name score with small boosts for exact
// canonical brand and category agreement, capped at 100.
func (g *CandidateGenerator) quickScore(source, target *domain.NormalizedProduct) float64 {
	tokensA := tokenizeName(source.Name)
	tokensB := tokenizeName(target.Name)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	inter := intersectionCount(tokensA, tokensB)
	union := len(uniqueTokens(tokensA)) + len(uniqueTokens(tokensB)) - inter
	if union == 0 {
		return 0
	}
	score := float64(inter) / float64(union) * 100

	smaller := len(uniqueTokens(tokensA))
	if l := len(uniqueTokens(tokensB)); l < smaller {
		smaller = l
	}
	if smaller > 0 {
		containment := float64(inter) / float64(smaller) * 100
		score = 0.6*score + 0.4*containment
	}

	if source.Brand != "" && source.Brand == target.Brand {
		score += 10
	}
	if source.Category != "" && source.Category == target.Category {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}
