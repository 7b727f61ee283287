package usecase

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"

	"github.com/pricematch/backend/internal/domain"
)

// MatchServiceConfig holds configuration for the match service
type MatchServiceConfig struct {
	// AcceptanceThreshold is the minimum aggregate score for a match.
	AcceptanceThreshold float64
	// ReRankConfidence is the minimum confidence at which a re-rank
	// verdict overrides the weighted ranking.
	ReRankConfidence float64
	// EnforceOneToOne drops lower-scoring duplicate claims on a target.
	// Off by default; multiple sources may share one target.
	EnforceOneToOne    bool
	EnableDebugLogging bool
}

// MatchService runs the full pipeline: normalize both catalogs, shortlist
// candidates per source product, score and veto, optionally re-rank, and
// assemble deterministic results ordered by source catalog order.
type MatchService struct {
	normalizer *Normalizer
	scorer     *AttributeScorer
	aggregator *WeightedAggregator
	conflicts  *ConflictDetector
	candidates *CandidateGenerator
	houseBrand *HouseBrandMatcher
	reRanker   domain.ReRankClient

	acceptThreshold  float64
	reRankConfidence float64
	oneToOne         bool
	debug            bool
}

// NewMatchService wires the pipeline. reRanker may be nil, in which case
// results never carry the ai_reranked method.
func NewMatchService(
	config MatchServiceConfig,
	normalizer *Normalizer,
	scorer *AttributeScorer,
	aggregator *WeightedAggregator,
	conflicts *ConflictDetector,
	candidates *CandidateGenerator,
	houseBrand *HouseBrandMatcher,
	reRanker domain.ReRankClient,
) *MatchService {
	threshold := config.AcceptanceThreshold
	if threshold <= 0 {
		threshold = 60
	}
	confidence := config.ReRankConfidence
	if confidence <= 0 {
		confidence = 60
	}

	return &MatchService{
		normalizer:       normalizer,
		scorer:           scorer,
		aggregator:       aggregator,
		conflicts:        conflicts,
		candidates:       candidates,
		houseBrand:       houseBrand,
		reRanker:         reRanker,
		acceptThreshold:  threshold,
		reRankConfidence: confidence,
		oneToOne:         config.EnforceOneToOne,
		debug:            config.EnableDebugLogging,
	}
}

// MatchCatalogs matches every source product against the target catalog.
func (s *MatchService) MatchCatalogs(ctx context.Context, source, target []domain.Product) (*domain.MatchReport, error) {
	sourceNorm, skippedSource := s.prepare(source)
	targetNorm, skippedTarget := s.prepare(target)
	if len(sourceNorm) == 0 || len(targetNorm) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	index := NewTermIndex(sourceNorm, targetNorm)

	report := &domain.MatchReport{
		SkippedSource: skippedSource,
		SkippedTarget: skippedTarget,
		SourceCount:   len(source),
		TargetCount:   len(target),
	}

	for i := range sourceNorm {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := s.matchOne(ctx, &sourceNorm[i], targetNorm, index)
		if err != nil {
			return nil, err
		}
		if result != nil {
			report.Results = append(report.Results, *result)
		}
	}

	if s.oneToOne {
		report.Results = enforceOneToOne(report.Results)
	}

	report.MatchedCount = len(report.Results)
	report.UnmatchedCount = len(sourceNorm) - report.MatchedCount
	return report, nil
}

// matchOne finds the best surviving candidate for one source product, or
// nil when nothing clears the acceptance threshold.
func (s *MatchService) matchOne(ctx context.Context, source *domain.NormalizedProduct, targets []domain.NormalizedProduct, index *TermIndex) (*domain.MatchResult, error) {
	shortlist, err := s.candidates.Candidates(ctx, source, targets)
	if err != nil {
		return nil, err
	}
	if len(shortlist) == 0 {
		return nil, nil
	}

	survivors := make([]domain.MatchCandidate, 0, len(shortlist))
	for _, entry := range shortlist {
		target := &targets[entry.Index]
		scores := s.scorer.ScoreAll(ctx, source, target, index)
		aggregate, ok := s.aggregator.Aggregate(scores)
		if !ok {
			continue
		}
		candidate := domain.MatchCandidate{
			SourceID:        source.Product.ID,
			TargetID:        target.Product.ID,
			TargetIndex:     entry.Index,
			Scores:          scores,
			AggregateScore:  aggregate,
			ConflictReasons: s.conflicts.Conflicts(source, target),
		}
		if candidate.Vetoed() {
			if s.debug {
				log.Printf("[MATCH] %s vs %s vetoed: %v",
					candidate.SourceID, candidate.TargetID, candidate.ConflictReasons)
			}
			continue
		}
		survivors = append(survivors, candidate)
	}
	if len(survivors) == 0 {
		return nil, nil
	}

	// Best survivor first; stable so equal scores keep shortlist order.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].AggregateScore > survivors[j].AggregateScore
	})

	best := survivors[0]
	method := domain.MethodWeighted
	reason := ""
	degraded := false

	if s.reRanker != nil {
		verdict, err := s.reRanker.ReRank(ctx, *source, toRanked(survivors, targets))
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Printf("[RERANK] provider failed for %s, falling back to weighted: %v",
				source.Product.ID, err)
			degraded = true
		case verdict.Confidence < s.reRankConfidence:
			if s.debug {
				log.Printf("[RERANK] verdict for %s below confidence (%.0f), ignored",
					source.Product.ID, verdict.Confidence)
			}
		case verdict.MatchIndex == nil:
			// Explicit no-match verdict.
			return nil, nil
		case *verdict.MatchIndex < 0 || *verdict.MatchIndex >= len(survivors):
			log.Printf("[RERANK] %v for %s, falling back to weighted",
				domain.ErrInvalidVerdict, source.Product.ID)
			degraded = true
		default:
			best = survivors[*verdict.MatchIndex]
			method = domain.MethodAIReranked
			reason = verdict.Reason
		}
	}

	if best.AggregateScore < s.acceptThreshold {
		return nil, nil
	}

	target := &targets[best.TargetIndex]
	result := buildResult(source, target, best.AggregateScore, method, reason)
	result.Degraded = degraded
	return &result, nil
}

// HouseBrandMatches finds cross-brand functional equivalents for every
// source product.
func (s *MatchService) HouseBrandMatches(ctx context.Context, source, target []domain.Product) (*domain.MatchReport, error) {
	sourceNorm, skippedSource := s.prepare(source)
	targetNorm, skippedTarget := s.prepare(target)
	if len(sourceNorm) == 0 || len(targetNorm) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	report := &domain.MatchReport{
		SkippedSource: skippedSource,
		SkippedTarget: skippedTarget,
		SourceCount:   len(source),
		TargetCount:   len(target),
	}

	for i := range sourceNorm {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		src := &sourceNorm[i]
		bestIdx := -1
		bestScore := 0.0
		for j := range targetNorm {
			score, vetoes := s.houseBrand.Evaluate(src, &targetNorm[j])
			if len(vetoes) > 0 {
				continue
			}
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx < 0 || bestScore < s.acceptThreshold {
			continue
		}

		result := buildResult(src, &targetNorm[bestIdx], bestScore, domain.MethodHouseBrand, "")
		report.Results = append(report.Results, result)
	}

	if s.oneToOne {
		report.Results = enforceOneToOne(report.Results)
	}

	report.MatchedCount = len(report.Results)
	report.UnmatchedCount = len(sourceNorm) - report.MatchedCount
	return report, nil
}

// prepare normalizes a catalog and reports the entries excluded for
// malformed data. Excluded entries are never zero-filled into the run.
func (s *MatchService) prepare(products []domain.Product) ([]domain.NormalizedProduct, []domain.SkippedRecord) {
	normalized := make([]domain.NormalizedProduct, 0, len(products))
	var skipped []domain.SkippedRecord

	for i, p := range products {
		if reason := validateProduct(p); reason != "" {
			skipped = append(skipped, domain.SkippedRecord{
				Index:  i,
				ID:     p.ID,
				Name:   p.Name,
				Reason: reason,
			})
			continue
		}
		normalized = append(normalized, s.normalizer.Normalize(p))
	}
	return normalized, skipped
}

func validateProduct(p domain.Product) string {
	if p.Name == "" {
		return "missing name"
	}
	if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return "invalid price"
	}
	return ""
}

func buildResult(source, target *domain.NormalizedProduct, score float64, method domain.MatchMethod, reason string) domain.MatchResult {
	delta := target.Product.Price - source.Product.Price
	deltaPct := 0.0
	if source.Product.Price > 0 {
		deltaPct = delta / source.Product.Price * 100
	}
	return domain.MatchResult{
		SourceID:       source.Product.ID,
		SourceName:     source.Product.Name,
		TargetID:       target.Product.ID,
		TargetName:     target.Product.Name,
		AggregateScore: score,
		Method:         method,
		SourcePrice:    source.Product.Price,
		TargetPrice:    target.Product.Price,
		PriceDelta:     delta,
		PriceDeltaPct:  deltaPct,
		Reason:         reason,
	}
}

// toRanked converts survivors into the shortlist shape the re-ranking
// provider expects. Indices refer back into the survivors slice.
func toRanked(survivors []domain.MatchCandidate, targets []domain.NormalizedProduct) []domain.RankedCandidate {
	ranked := make([]domain.RankedCandidate, len(survivors))
	for i, c := range survivors {
		ranked[i] = domain.RankedCandidate{
			Index:   i,
			Product: targets[c.TargetIndex],
			Score:   c.AggregateScore,
		}
	}
	return ranked
}

// enforceOneToOne keeps only the highest-scoring claim per target, greedy
// by descending score with ties broken by source order. Result order stays
// source catalog order.
func enforceOneToOne(results []domain.MatchResult) []domain.MatchResult {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return results[order[i]].AggregateScore > results[order[j]].AggregateScore
	})

	claimed := make(map[string]bool, len(results))
	keep := make(map[int]bool, len(results))
	for _, idx := range order {
		targetID := results[idx].TargetID
		if claimed[targetID] {
			continue
		}
		claimed[targetID] = true
		keep[idx] = true
	}

	kept := make([]domain.MatchResult, 0, len(keep))
	for i, r := range results {
		if keep[i] {
			kept = append(kept, r)
		}
	}
	return kept
}
