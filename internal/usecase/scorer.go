package usecase

import (
	"context"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	edlib "github.com/hbollon/go-edlib"

	"github.com/pricematch/backend/internal/domain"
)

// ScorerConfig configures per-attribute scoring.
type ScorerConfig struct {
	// DimensionTolerance is the per-axis relative tolerance band.
	DimensionTolerance float64
	// Vision is the external visual similarity provider; nil disables
	// image scoring (the attribute is then always absent).
	Vision             domain.VisionClient
	EnableDebugLogging bool
}

// AttributeScorer computes per-attribute similarity in [0,100]. Every
// method returns (score, present); present is false when the attribute is
// missing on either side, which callers must never fold into a zero score.
type AttributeScorer struct {
	dimTolerance float64
	vision       domain.VisionClient
	debug        bool
}

// NewAttributeScorer creates a scorer with defaults applied.
func NewAttributeScorer(cfg ScorerConfig) *AttributeScorer {
	if cfg.DimensionTolerance <= 0 {
		cfg.DimensionTolerance = 0.10
	}
	return &AttributeScorer{
		dimTolerance: cfg.DimensionTolerance,
		vision:       cfg.Vision,
		debug:        cfg.EnableDebugLogging,
	}
}

// ScoreAll scores every attribute of a pair. The term index carries the
// corpus statistics for description scoring and is built once per match run.
func (s *AttributeScorer) ScoreAll(ctx context.Context, a, b *domain.NormalizedProduct, ix *TermIndex) domain.ScoreSet {
	scores := make(domain.ScoreSet)

	if v, ok := s.scoreName(a.Name, b.Name); ok {
		scores[domain.AttrName] = v
	}
	if v, ok := s.scoreIdentifier(a.Brand, b.Brand); ok {
		scores[domain.AttrBrand] = v
	}
	if v, ok := s.scoreIdentifier(a.Model, b.Model); ok {
		scores[domain.AttrModel] = v
	}
	if v, ok := s.scoreIdentifier(a.Category, b.Category); ok {
		scores[domain.AttrCategory] = v
	}
	if v, ok := s.scoreDimensions(a.Dimensions, b.Dimensions); ok {
		scores[domain.AttrDimensions] = v
	}
	if v, ok := s.scoreText(a.Material, b.Material); ok {
		scores[domain.AttrMaterial] = v
	}
	if v, ok := s.scoreText(a.Color, b.Color); ok {
		scores[domain.AttrColor] = v
	}
	if v, ok := s.scoreDescription(a.Description, b.Description, ix); ok {
		scores[domain.AttrDescription] = v
	}
	if v, ok := s.scoreImage(ctx, a.Product.ImageRef, b.Product.ImageRef); ok {
		scores[domain.AttrImage] = v
	}

	if s.debug {
		log.Printf("[SCORE] %s vs %s: %v", a.Product.ID, b.Product.ID, scores)
	}

	return scores
}

// scoreName blends token-sort Jaro-Winkler with token-set coverage so
// reordered names score high and partial names degrade smoothly.
func (s *AttributeScorer) scoreName(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if a == b {
		return 100, true
	}

	tokensA := tokenizeName(a)
	tokensB := tokenizeName(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, false
	}

	sortedA := sortedJoin(tokensA)
	sortedB := sortedJoin(tokensB)
	jw := float64(edlib.JaroWinklerSimilarity(sortedA, sortedB)) * 100

	inter := intersectionCount(tokensA, tokensB)
	union := len(uniqueTokens(tokensA)) + len(uniqueTokens(tokensB)) - inter
	jaccard := 0.0
	containment := 0.0
	if union > 0 {
		jaccard = float64(inter) / float64(union) * 100
	}
	smaller := len(uniqueTokens(tokensA))
	if l := len(uniqueTokens(tokensB)); l < smaller {
		smaller = l
	}
	if smaller > 0 {
		containment = float64(inter) / float64(smaller) * 100
	}

	score := 0.45*jw + 0.35*containment + 0.20*jaccard
	if score > 100 {
		score = 100
	}
	return score, true
}

// scoreIdentifier scores brand, model and category: canonical-exact is 100,
// anything fuzzy is capped at 95 so a near-miss never ties an exact match.
func (s *AttributeScorer) scoreIdentifier(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if a == b {
		return 100, true
	}
	score := float64(edlib.JaroWinklerSimilarity(a, b)) * 100
	if score > 95 {
		score = 95
	}
	return score, true
}

// scoreText scores free-form attributes (material, color).
func (s *AttributeScorer) scoreText(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if a == b {
		return 100, true
	}
	return float64(edlib.JaroWinklerSimilarity(a, b)) * 100, true
}

// scoreDimensions compares axis lists with a relative tolerance band.
// Mismatched axis counts score low but present; out-of-band axes likewise.
func (s *AttributeScorer) scoreDimensions(a, b string) (float64, bool) {
	axesA := parseAxes(a)
	axesB := parseAxes(b)
	if len(axesA) == 0 || len(axesB) == 0 {
		return 0, false
	}
	if len(axesA) != len(axesB) {
		return 20, true
	}

	// Axis order may differ between retailers (WxH vs HxW).
	sort.Float64s(axesA)
	sort.Float64s(axesB)

	var totalRel float64
	for i := range axesA {
		larger := math.Max(axesA[i], axesB[i])
		if larger == 0 {
			continue
		}
		rel := math.Abs(axesA[i]-axesB[i]) / larger
		if rel > s.dimTolerance {
			return 30, true
		}
		totalRel += rel
	}
	avgRel := totalRel / float64(len(axesA))
	return 70 + 30*(1-avgRel/s.dimTolerance), true
}

// scoreDescription is a corpus-relative TF-IDF cosine so shared rare terms
// count for more than shared boilerplate.
func (s *AttributeScorer) scoreDescription(a, b string, ix *TermIndex) (float64, bool) {
	if a == "" || b == "" || ix == nil {
		return 0, false
	}
	return ix.Cosine(a, b) * 100, true
}

// scoreImage asks the visual provider for a pairwise similarity. Any
// failure means the attribute is absent for this pair, never zero.
func (s *AttributeScorer) scoreImage(ctx context.Context, refA, refB string) (float64, bool) {
	if s.vision == nil || refA == "" || refB == "" {
		return 0, false
	}
	score, err := s.vision.Compare(ctx, refA, refB)
	if err != nil {
		if s.debug {
			log.Printf("[SCORE] image comparison unavailable: %v", err)
		}
		return 0, false
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, true
}

// TermIndex holds document frequencies for one match run, built from both
// catalogs' descriptions.
type TermIndex struct {
	docCount int
	docFreq  map[string]int
}

// NewTermIndex builds the index over every product description in the run.
func NewTermIndex(catalogs ...[]domain.NormalizedProduct) *TermIndex {
	ix := &TermIndex{docFreq: make(map[string]int)}
	for _, catalog := range catalogs {
		for i := range catalog {
			desc := catalog[i].Description
			if desc == "" {
				continue
			}
			ix.docCount++
			seen := make(map[string]bool)
			for _, tok := range tokenizeName(desc) {
				if !seen[tok] {
					seen[tok] = true
					ix.docFreq[tok]++
				}
			}
		}
	}
	return ix
}

// Cosine returns the TF-IDF cosine similarity of two texts in [0,1].
func (ix *TermIndex) Cosine(a, b string) float64 {
	vecA := ix.vector(a)
	vecB := ix.vector(b)
	if len(vecA) == 0 || len(vecB) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, wa := range vecA {
		normA += wa * wa
		if wb, ok := vecB[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range vecB {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (ix *TermIndex) vector(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, tok := range tokenizeName(text) {
		tf[tok]++
	}
	vec := make(map[string]float64, len(tf))
	for term, count := range tf {
		df := ix.docFreq[term]
		idf := math.Log(1 + float64(ix.docCount+1)/float64(df+1))
		vec[term] = count * idf
	}
	return vec
}

// tokenizeName splits canonical text into comparison tokens, keeping
// numbers (sizes are discriminative here) and dropping one-rune Latin
// noise like a stray "X".
func tokenizeName(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '(' || r == ')' || r == '/' || r == '|'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if f == "" {
			continue
		}
		if len(f) == 1 && f[0] >= 'A' && f[0] <= 'Z' && f != "L" && f != "M" && f != "W" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func uniqueTokens(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func intersectionCount(a, b []string) int {
	setA := uniqueTokens(a)
	setB := uniqueTokens(b)
	count := 0
	for t := range setA {
		if setB[t] {
			count++
		}
	}
	return count
}

func sortedJoin(tokens []string) string {
	unique := uniqueTokens(tokens)
	sorted := make([]string, 0, len(unique))
	for t := range unique {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// parseAxes extracts the numeric axes of a canonical dimension string.
func parseAxes(dims string) []float64 {
	m := dimensionPattern.FindStringSubmatch(dims)
	if m == nil {
		return nil
	}
	axes := make([]float64, 0, 3)
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if v, err := strconv.ParseFloat(g, 64); err == nil {
			axes = append(axes, v)
		}
	}
	return axes
}
