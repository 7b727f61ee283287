package usecase

import (
	"fmt"
	"strings"

	"github.com/pricematch/backend/internal/domain"
)

// ConflictRule is a named disqualification check. Check returns a human
// readable reason when the pair must not match.
type ConflictRule struct {
	Name  string
	Check func(a, b *domain.NormalizedProduct) (string, bool)
}

// defaultLineFamilies lists known product-line variants. Two names that
// resolve to different entries are different products no matter how close
// the rest of the text looks (a JOTASHIELD FLEX is not a JOTASHIELD).
// Longer variants are listed before their base line so detection never
// truncates a variant name.
var defaultLineFamilies = []string{
	"JOTASHIELD INFINITY",
	"JOTASHIELD FLEX",
	"JOTASHIELD AF",
	"JOTASHIELD",
	"TOUGH SHIELD",
	"SUPERSHIELD ADVANCE",
	"SUPERSHIELD",
	"SUPERMATEX",
	"WEATHERBOND",
	"HYBRIDSHIELD",
	"VINILEX",
	"FLEXISEAL",
	"QUICK SEALER",
}

// defaultStrictSpecs are counted specs where any declared difference makes
// the products distinct (a 5-tier shelf is not a 4-tier shelf).
var defaultStrictSpecs = []string{SpecTiers, SpecLines, SpecSteps}

// ConflictDetector evaluates disqualification rules for a candidate pair.
// Rules run after aggregation and act as a hard veto; a conflict is never
// folded into the similarity score.
type ConflictDetector struct {
	rules []ConflictRule
}

// NewConflictDetector creates a detector; with no rules given it installs
// the default rule set.
func NewConflictDetector(rules ...ConflictRule) *ConflictDetector {
	if len(rules) == 0 {
		rules = DefaultConflictRules()
	}
	return &ConflictDetector{rules: rules}
}

// DefaultConflictRules returns the standard rule set: product-line
// variants, strict counted specs and same-unit volume.
func DefaultConflictRules() []ConflictRule {
	rules := []ConflictRule{
		ProductLineRule(defaultLineFamilies),
		VolumeRule(),
	}
	for _, key := range defaultStrictSpecs {
		rules = append(rules, StrictSpecRule(key))
	}
	return rules
}

// Conflicts returns the reasons every matched rule produced, in rule order.
// An empty result means the pair is compatible.
func (d *ConflictDetector) Conflicts(a, b *domain.NormalizedProduct) []string {
	var reasons []string
	for _, rule := range d.rules {
		if reason, conflict := rule.Check(a, b); conflict {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

// ProductLineRule flags pairs whose names carry different known product
// lines or different variants of the same line.
func ProductLineRule(families []string) ConflictRule {
	return ConflictRule{
		Name: "product_line",
		Check: func(a, b *domain.NormalizedProduct) (string, bool) {
			lineA := detectLine(a.Name, families)
			lineB := detectLine(b.Name, families)
			if lineA == "" || lineB == "" || lineA == lineB {
				return "", false
			}
			return fmt.Sprintf("product_line:%s≠%s", lineA, lineB), true
		},
	}
}

// StrictSpecRule flags pairs where both sides declare the spec with a
// different value. One-sided declarations pass; absence is not evidence.
func StrictSpecRule(key string) ConflictRule {
	return ConflictRule{
		Name: "strict_spec_" + key,
		Check: func(a, b *domain.NormalizedProduct) (string, bool) {
			specA, okA := a.Spec(key)
			specB, okB := b.Spec(key)
			if !okA || !okB || specA.Equal(specB) {
				return "", false
			}
			return "strict_spec:" + key, true
		},
	}
}

// VolumeRule flags same-unit volume mismatches. Different units are left
// alone; the rule does not convert.
func VolumeRule() ConflictRule {
	return ConflictRule{
		Name: "strict_spec_volume",
		Check: func(a, b *domain.NormalizedProduct) (string, bool) {
			specA, okA := a.Spec(SpecVolume)
			specB, okB := b.Spec(SpecVolume)
			if !okA || !okB || specA.Unit != specB.Unit || specA.Value == specB.Value {
				return "", false
			}
			return "strict_spec:volume", true
		},
	}
}

// detectLine finds the first (longest) known line token in a canonical
// name.
func detectLine(name string, families []string) string {
	for _, line := range families {
		if strings.Contains(name, line) {
			return line
		}
	}
	return ""
}
