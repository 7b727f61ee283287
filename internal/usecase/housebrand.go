package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/pricematch/backend/internal/domain"
)

// HouseBrandConfig tunes cross-brand functional equivalence matching.
type HouseBrandConfig struct {
	// PriceTolerance is the relative band around the source price; a
	// target outside it loses score but is not excluded.
	PriceTolerance float64
	// SizeTolerance is the relative band for soft numeric spec credit.
	SizeTolerance float64
	// StrictSpecs must be equal whenever both sides declare them.
	StrictSpecs []string
	// PreferredBrands maps a source brand to the target brands its
	// house-brand equivalents usually come from.
	PreferredBrands map[string][]string
}

// specWeights ranks extracted specs by how discriminative they are for
// functional equivalence.
var specWeights = map[string]float64{
	SpecWattage:   30,
	SpecVolume:    25,
	SpecSizeInch:  25,
	SpecSocket:    20,
	SpecLengthM:   20,
	SpecTiers:     20,
	SpecLines:     20,
	SpecSteps:     15,
	SpecColorTemp: 10,
}

// defaultPreferredBrands maps national brands to the house brands that
// typically carry their functional equivalents.
var defaultPreferredBrands = map[string][]string{
	"TOA":     {"BEGER", "CAPTAIN", "PAMMASTIC"},
	"PHILIPS": {"LAMPTAN", "EVE", "OPPLE"},
	"BOSCH":   {"PUMPKIN", "KACHA"},
	"MAKITA":  {"PUMPKIN", "KACHA"},
	"HATARI":  {"MATALL", "FONTE"},
}

// HouseBrandMatcher finds cross-brand functional equivalents: same kind of
// product, same defining specs, comparable price, different brand. It is a
// stricter gate plus a softer scorer than the general weighted path.
type HouseBrandMatcher struct {
	priceTolerance  float64
	sizeTolerance   float64
	strictSpecs     []string
	preferredBrands map[string][]string
}

// NewHouseBrandMatcher creates a matcher with defaults applied.
func NewHouseBrandMatcher(cfg HouseBrandConfig) *HouseBrandMatcher {
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = 0.30
	}
	if cfg.SizeTolerance <= 0 {
		cfg.SizeTolerance = 0.10
	}
	if cfg.StrictSpecs == nil {
		cfg.StrictSpecs = []string{SpecTiers, SpecLines, SpecSteps, SpecWattage, SpecSocket}
	}
	if cfg.PreferredBrands == nil {
		cfg.PreferredBrands = defaultPreferredBrands
	}
	return &HouseBrandMatcher{
		priceTolerance:  cfg.PriceTolerance,
		sizeTolerance:   cfg.SizeTolerance,
		strictSpecs:     cfg.StrictSpecs,
		preferredBrands: cfg.PreferredBrands,
	}
}

// Evaluate scores a source/target pair for house-brand equivalence.
// A non-empty veto list disqualifies the pair regardless of score.
func (m *HouseBrandMatcher) Evaluate(source, target *domain.NormalizedProduct) (float64, []string) {
	var vetoes []string

	if source.Category != "" && target.Category != "" && source.Category != target.Category {
		vetoes = append(vetoes, "category_mismatch")
	}
	// A house-brand equivalent is cross-brand by definition.
	if source.Brand != "" && source.Brand == target.Brand {
		vetoes = append(vetoes, "same_brand")
	}
	for _, key := range m.strictSpecs {
		specA, okA := source.Spec(key)
		specB, okB := target.Spec(key)
		if okA && okB && !specA.Equal(specB) {
			vetoes = append(vetoes, "strict_spec:"+key)
		}
	}
	if len(vetoes) > 0 {
		return 0, vetoes
	}

	specScore := m.specScore(source, target)
	nameScore := m.nameScore(source.Name, target.Name)
	priceScore := m.priceScore(source.Product.Price, target.Product.Price)
	boost := m.brandBoost(source.Brand, target.Brand)

	score := 0.5*specScore + 0.3*nameScore + 0.2*priceScore + boost
	if score > 100 {
		score = 100
	}
	return score, nil
}

// specScore compares every weighted spec both sides declare: exact gets
// full credit, within the size tolerance gets half credit. With no shared
// specs the score is a neutral 50. Specs are summed in sorted key order
// so repeated evaluations of one pair produce identical bits.
func (m *HouseBrandMatcher) specScore(source, target *domain.NormalizedProduct) float64 {
	keys := make([]string, 0, len(specWeights))
	for key := range specWeights {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var earned, possible float64
	for _, key := range keys {
		weight := specWeights[key]
		specA, okA := source.Spec(key)
		specB, okB := target.Spec(key)
		if !okA || !okB {
			continue
		}
		possible += weight
		switch {
		case specA.Equal(specB):
			earned += weight
		case specA.Unit == specB.Unit && withinTolerance(specA.Value, specB.Value, m.sizeTolerance):
			earned += weight / 2
		}
	}
	if possible == 0 {
		return 50
	}
	return earned / possible * 100
}

func (m *HouseBrandMatcher) nameScore(a, b string) float64 {
	tokensA := tokenizeName(a)
	tokensB := tokenizeName(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	inter := intersectionCount(tokensA, tokensB)
	union := len(uniqueTokens(tokensA)) + len(uniqueTokens(tokensB)) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union) * 100
}

// priceScore is 100 inside the tolerance band and decays linearly outside
// it. Price disagreement weakens a candidate but never vetoes one.
func (m *HouseBrandMatcher) priceScore(source, target float64) float64 {
	if source <= 0 || target <= 0 {
		return 50
	}
	diff := math.Abs(target-source) / source
	if diff <= m.priceTolerance {
		return 100
	}
	penalty := (diff - m.priceTolerance) * 200
	if penalty > 100 {
		penalty = 100
	}
	return 100 - penalty
}

// brandBoost rewards targets from the brands house-brand shoppers actually
// switch to: +30 for a listed brand, +20 for a partial brand-name overlap.
func (m *HouseBrandMatcher) brandBoost(sourceBrand, targetBrand string) float64 {
	if sourceBrand == "" || targetBrand == "" {
		return 0
	}
	preferred, ok := m.preferredBrands[sourceBrand]
	if !ok {
		return 0
	}
	for _, brand := range preferred {
		if brand == targetBrand {
			return 30
		}
		if strings.Contains(targetBrand, brand) || strings.Contains(brand, targetBrand) {
			return 20
		}
	}
	return 0
}

func withinTolerance(a, b, tolerance float64) bool {
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return true
	}
	return math.Abs(a-b)/larger <= tolerance
}
