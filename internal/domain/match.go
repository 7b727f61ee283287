package domain

// Attribute names used as ScoreSet keys and weight-table keys.
const (
	AttrName        = "name"
	AttrBrand       = "brand"
	AttrModel       = "model"
	AttrDimensions  = "dimensions"
	AttrCategory    = "category"
	AttrMaterial    = "material"
	AttrColor       = "color"
	AttrDescription = "description"
	AttrImage       = "image"
)

// ScoreSet holds per-attribute similarity scores in [0,100]. A missing key
// means the attribute could not be scored for the pair (absent on one or
// both sides); absent is never represented as zero.
type ScoreSet map[string]float64

// Present reports whether the attribute was scored for this pair.
func (s ScoreSet) Present(attr string) bool {
	_, ok := s[attr]
	return ok
}

// MatchMethod tags how a match result was produced.
type MatchMethod string

const (
	MethodWeighted   MatchMethod = "weighted"
	MethodHouseBrand MatchMethod = "house_brand"
	MethodAIReranked MatchMethod = "ai_reranked"
)

// MatchCandidate is one scored source/target pairing under consideration.
type MatchCandidate struct {
	SourceID        string
	TargetID        string
	TargetIndex     int
	Scores          ScoreSet
	AggregateScore  float64
	ConflictReasons []string
}

// Vetoed reports whether any conflict rule disqualified the pairing.
// A vetoed candidate is never selected regardless of its aggregate score.
func (c *MatchCandidate) Vetoed() bool {
	return len(c.ConflictReasons) > 0
}

// MatchResult is the accepted pairing for one source product.
type MatchResult struct {
	SourceID       string      `json:"sourceId"`
	SourceName     string      `json:"sourceName"`
	TargetID       string      `json:"targetId"`
	TargetName     string      `json:"targetName"`
	AggregateScore float64     `json:"aggregateScore"`
	Method         MatchMethod `json:"method"`
	SourcePrice    float64     `json:"sourcePrice"`
	TargetPrice    float64     `json:"targetPrice"`
	PriceDelta     float64     `json:"priceDelta"`
	PriceDeltaPct  float64     `json:"priceDeltaPct"`
	Reason         string      `json:"reason,omitempty"`
	// Degraded is set when an external provider failed mid-run and the
	// engine fell back to weighted-only ranking for this source product.
	Degraded bool `json:"degraded,omitempty"`
}

// SkippedRecord reports a catalog entry excluded before matching.
type SkippedRecord struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// MatchReport is the full outcome of matching one catalog against another.
// Results are ordered by source catalog order.
type MatchReport struct {
	Results        []MatchResult   `json:"results"`
	SkippedSource  []SkippedRecord `json:"skippedSource,omitempty"`
	SkippedTarget  []SkippedRecord `json:"skippedTarget,omitempty"`
	SourceCount    int             `json:"sourceCount"`
	TargetCount    int             `json:"targetCount"`
	MatchedCount   int             `json:"matchedCount"`
	UnmatchedCount int             `json:"unmatchedCount"`
}

// RankedCandidate is a shortlist entry handed to the re-ranking provider.
type RankedCandidate struct {
	Index   int
	Product NormalizedProduct
	Score   float64
}

// ReRankVerdict is the re-ranking provider's answer for one shortlist.
// A nil MatchIndex is an explicit "none of these match" verdict, which is
// distinct from a transport failure.
type ReRankVerdict struct {
	MatchIndex *int
	Confidence float64
	Reason     string
}
