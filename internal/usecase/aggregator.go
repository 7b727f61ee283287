package usecase

import (
	"fmt"
	"sort"

	"github.com/pricematch/backend/internal/domain"
)

// WeightTable maps attribute names to their relative weight. Weights are
// relative, not percentages; the aggregator renormalizes over whichever
// attributes are present for a pair.
type WeightTable map[string]float64

// DefaultWeights returns the standard attribute weighting.
func DefaultWeights() WeightTable {
	return WeightTable{
		domain.AttrName:        25,
		domain.AttrBrand:       20,
		domain.AttrModel:       20,
		domain.AttrDimensions:  12,
		domain.AttrCategory:    8,
		domain.AttrMaterial:    5,
		domain.AttrColor:       5,
		domain.AttrDescription: 3,
		domain.AttrImage:       2,
	}
}

// Validate rejects weight tables that cannot produce a meaningful
// aggregate. Called once at startup; a bad table is a fatal config error.
func (w WeightTable) Validate() error {
	var sum float64
	for attr, weight := range w {
		if weight < 0 {
			return fmt.Errorf("weight for %q is negative (%v)", attr, weight)
		}
		sum += weight
	}
	if sum <= 0 {
		return fmt.Errorf("weight table sums to %v, must be positive", sum)
	}
	return nil
}

// WeightedAggregator folds a ScoreSet into a single 0-100 score.
type WeightedAggregator struct {
	weights WeightTable
}

// NewWeightedAggregator creates an aggregator; a nil table uses defaults.
func NewWeightedAggregator(weights WeightTable) *WeightedAggregator {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &WeightedAggregator{weights: weights}
}

// Aggregate computes the weighted mean over present attributes only:
// sum(w*s) / sum(w) where both sums range over scored attributes. Absent
// attributes contribute to neither sum, so a pair missing an attribute is
// neither rewarded nor punished for it. Attributes are summed in sorted
// key order; float addition is order-sensitive in the last ULP, and the
// same input must always produce the same bits. Returns ok=false when
// nothing was scored; such a pair must be excluded, not given a score.
func (a *WeightedAggregator) Aggregate(scores domain.ScoreSet) (float64, bool) {
	attrs := make([]string, 0, len(scores))
	for attr := range scores {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	var weightedSum, totalWeight float64
	for _, attr := range attrs {
		weight, ok := a.weights[attr]
		if !ok || weight == 0 {
			continue
		}
		weightedSum += weight * scores[attr]
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}
