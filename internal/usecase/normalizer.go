package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pricematch/backend/internal/domain"
)

// Spec keys produced by the normalizer.
const (
	SpecVolume    = "volume"
	SpecWattage   = "wattage"
	SpecSizeInch  = "size_inch"
	SpecLengthM   = "length_m"
	SpecSocket    = "socket"
	SpecTiers     = "tiers"
	SpecLines     = "lines"
	SpecSteps     = "steps"
	SpecColorTemp = "color_temp"
)

// Compiled regex patterns for spec extraction. These run on canonical text,
// after alias substitution, so units are already in their Latin form.
var (
	volumePattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(GAL|ML|KG|L)\b`)
	dimensionPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[X×]\s*(\d+(?:\.\d+)?)(?:\s*[X×]\s*(\d+(?:\.\d+)?))?`)
	wattagePattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*W\b`)
	inchPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:INCH|")`)
	lengthPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*M\b`)
	socketPattern    = regexp.MustCompile(`(E27|E14|B22|GU10|MR16)(?:\s*X\s*(\d+))?`)
	tiersPattern     = regexp.MustCompile(`(\d+)\s*TIERS?\b`)
	linesPattern     = regexp.MustCompile(`(\d+)\s*LINES?\b`)
	stepsPattern     = regexp.MustCompile(`(\d+)\s*STEPS?\b`)
	colorTempPattern = regexp.MustCompile(`\b(DAYLIGHT|WARMWHITE|WARM WHITE|COOLWHITE|COOL WHITE)\b`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// defaultUnitAliases maps Thai (and variant) unit and finish spellings to
// their canonical Latin form. Applied longest-key-first so compounds like
// มิลลิลิตร resolve before ลิตร.
var defaultUnitAliases = map[string]string{
	"มิลลิลิตร": "ML",
	"มล.":       "ML",
	"ลิตร":      "L",
	"แกลลอน":    "GAL",
	"กิโลกรัม":  "KG",
	"กก.":       "KG",
	"เซนติเมตร": "CM",
	"ซม.":       "CM",
	"เมตร":      "M",
	"ม.":        "M",
	"นิ้ว":      "INCH",
	"วัตต์":     "W",
	"ชั้นวาง":   "SHELF",
	"ชั้น":      "TIER",
	"เส้น":      "LINE",
	"ขั้น":      "STEP",
	"กึ่งเงา":   "SEMI-GLOSS",
	"เนียน":     "SHEEN",
	"ด้าน":      "MATTE",
}

// defaultBrandAliases maps Thai brand and product-line spellings to their
// Latin canonical names. Variant names resolve before their base line
// (longest-first) so โจตาชิลด์เฟล็กซ์ never collapses to plain JOTASHIELD.
var defaultBrandAliases = map[string]string{
	"โจตาชิลด์เฟล็กซ์": "JOTASHIELD FLEX",
	"โจตาชิลด์":        "JOTASHIELD",
	"วีนิเลกซ์":        "VINILEX",
	"เวเธอร์บอนด์":     "WEATHERBOND",
	"ซุปเปอร์เมเทค":    "SUPERMATEX",
	"ซุปเปอร์ชีลด์":    "SUPERSHIELD",
	"ไฮบริดชีลด์":      "HYBRIDSHIELD",
	"ทัฟชีลด์":         "TOUGH SHIELD",
	"เฟล็กซี่ซีล":      "FLEXISEAL",
	"ควิกซีลเลอร์":     "QUICK SEALER",
	"ANTIFADE":         "AF",
	"จระเข้":           "JORAKAY",
	"ตราช้าง":          "ELEPHANT",
	"ท่อน้ำไทย":        "THAI PIPE",
}

// defaultCategoryRules maps Thai/English keywords to a coarse category tag,
// used only when the catalog left category empty. Ordered, longest keyword
// first, so ชั้นวาง (shelf) wins before any shorter overlap.
var defaultCategoryRules = []CategoryRule{
	{"สีรองพื้น", "PRIMER"},
	{"PRIMER", "PRIMER"},
	{"ทินเนอร์", "THINNER"},
	{"THINNER", "THINNER"},
	{"สีน้ำ", "PAINT"},
	{"สีทา", "PAINT"},
	{"PAINT", "PAINT"},
	{"หน้าต่าง", "WINDOW"},
	{"ประตู", "DOOR"},
	{"มือจับ", "HANDLE"},
	{"ก้านโยก", "HANDLE"},
	{"บานพับ", "HINGE"},
	{"กุญแจ", "LOCK"},
	{"สว่าน", "DRILL"},
	{"DRILL", "DRILL"},
	{"หลอดไฟ", "LIGHT_BULB"},
	{"ดาวน์ไลท์", "DOWNLIGHT"},
	{"โคมไฟ", "LAMP"},
	{"ชั้นวาง", "SHELF"},
	{"SHELF", "SHELF"},
	{"บันได", "LADDER"},
	{"LADDER", "LADDER"},
	{"พัดลม", "FAN"},
	{"ปั๊ม", "PUMP"},
	{"ซิลิโคน", "SILICONE"},
	{"กาว", "ADHESIVE"},
	{"ปูน", "CEMENT"},
	{"ท่อ", "PIPE"},
	{"เก้าอี้", "CHAIR"},
	{"โต๊ะ", "TABLE"},
}

// defaultKnownBrands is the fallback brand vocabulary for inference from the
// product name when the catalog left brand empty. Checked longest-first.
var defaultKnownBrands = []string{
	"BEGER", "TOA", "JOTUN", "NIPPON", "DULUX", "CAPTAIN", "PAMMASTIC",
	"JORAKAY", "ELEPHANT", "SCG", "THAI PIPE", "HACO", "CHANG",
	"PHILIPS", "LAMPTAN", "EVE", "OPPLE", "HATARI", "MITSUBISHI",
	"BOSCH", "MAKITA", "STANLEY", "PUMPKIN", "SOLO", "KARCHER",
	"FURNIX", "INDEX", "HOMEPRO", "DOHOME", "MEGA HOME", "GIANT KINGKONG",
	"KASSA", "FONTE", "MATALL", "SPRING", "DELIGHT", "LUZINO", "KACHA",
}

type CategoryRule struct {
	Keyword  string
	Category string
}

type aliasPair struct {
	from string
	to   string
}

// AliasTable performs longest-first literal substitution. Substitution is
// idempotent because every replacement value is already canonical and never
// contains an alias key.
type AliasTable struct {
	pairs []aliasPair
}

// NewAliasTable builds a table from a from→to map, ordered longest key first
// (ties broken lexically for determinism).
func NewAliasTable(aliases map[string]string) AliasTable {
	pairs := make([]aliasPair, 0, len(aliases))
	for from, to := range aliases {
		pairs = append(pairs, aliasPair{from: from, to: to})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].from) != len(pairs[j].from) {
			return len(pairs[i].from) > len(pairs[j].from)
		}
		return pairs[i].from < pairs[j].from
	})
	return AliasTable{pairs: pairs}
}

// Apply substitutes every alias occurrence, padding replacements with spaces
// so a unit glued to a number ("9ลิตร") still tokenizes cleanly.
func (t AliasTable) Apply(s string) string {
	for _, p := range t.pairs {
		if strings.Contains(s, p.from) {
			s = strings.ReplaceAll(s, p.from, " "+p.to+" ")
		}
	}
	return s
}

// NormalizerConfig configures alias and inference tables. Nil or empty
// fields fall back to the built-in versioned tables.
type NormalizerConfig struct {
	UnitAliases   map[string]string
	BrandAliases  map[string]string
	CategoryRules []CategoryRule
	KnownBrands   []string
}

// Normalizer produces the canonical form of a product. It is a pure
// function of its tables: same input and same table version always yield
// the same output, and normalizing an already-normalized product is a
// no-op.
type Normalizer struct {
	units       AliasTable
	brands      AliasTable
	categories  []CategoryRule
	knownBrands []string
}

// NewNormalizer creates a normalizer, applying built-in tables for any
// config field left empty.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.UnitAliases == nil {
		cfg.UnitAliases = defaultUnitAliases
	}
	if cfg.BrandAliases == nil {
		cfg.BrandAliases = defaultBrandAliases
	}
	if cfg.CategoryRules == nil {
		cfg.CategoryRules = defaultCategoryRules
	}
	if cfg.KnownBrands == nil {
		cfg.KnownBrands = defaultKnownBrands
	}

	known := make([]string, len(cfg.KnownBrands))
	copy(known, cfg.KnownBrands)
	sort.Slice(known, func(i, j int) bool {
		if len(known[i]) != len(known[j]) {
			return len(known[i]) > len(known[j])
		}
		return known[i] < known[j]
	})

	return &Normalizer{
		units:       NewAliasTable(cfg.UnitAliases),
		brands:      NewAliasTable(cfg.BrandAliases),
		categories:  cfg.CategoryRules,
		knownBrands: known,
	}
}

// Normalize builds the canonical form of a product. The original product is
// carried along untouched.
func (n *Normalizer) Normalize(p domain.Product) domain.NormalizedProduct {
	name := n.canonical(p.Name)
	dims := n.canonicalDimensions(p.Dimensions)

	np := domain.NormalizedProduct{
		Product:     p,
		Name:        name,
		Brand:       n.canonical(p.Brand),
		Model:       n.canonical(p.Model),
		Category:    n.canonical(p.Category),
		Dimensions:  dims,
		Material:    n.canonical(p.Material),
		Color:       n.canonical(p.Color),
		Description: n.canonical(p.Description),
		Specs:       make(map[string]domain.Spec),
	}

	n.extractSpecs(&np, name)
	if dims != "" {
		n.extractSpecs(&np, dims)
	}

	if np.Category == "" {
		np.Category = n.inferCategory(name)
	}
	if np.Brand == "" {
		np.Brand = n.inferBrand(name)
	}

	return np
}

// canonical upper-cases, substitutes aliases (brands before units so Thai
// line names resolve as whole tokens) and collapses whitespace.
func (n *Normalizer) canonical(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	s = n.brands.Apply(s)
	s = n.units.Apply(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// canonicalDimensions additionally strips unit punctuation so "60×45 ซม."
// and "60 X 45 CM" canonicalize identically.
func (n *Normalizer) canonicalDimensions(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "×", " X ")
	s = strings.ReplaceAll(s, "*", " X ")
	return n.canonical(s)
}

// extractSpecs scans canonical text for structured facts. A key already
// extracted is never overwritten, so the name takes precedence over the
// dimensions field.
func (n *Normalizer) extractSpecs(np *domain.NormalizedProduct, text string) {
	setSpec := func(key string, s domain.Spec) {
		if _, ok := np.Specs[key]; !ok {
			np.Specs[key] = s
		}
	}

	if m := volumePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecVolume, domain.Spec{Value: v, Unit: m[2]})
		}
	}
	if m := wattagePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecWattage, domain.Spec{Value: v, Unit: "W"})
		}
	}
	if m := inchPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecSizeInch, domain.Spec{Value: v, Unit: "INCH"})
		}
	}
	// Length only when the text is not an AxB dimension string, where a
	// trailing M belongs to the axes.
	if !dimensionPattern.MatchString(text) {
		if m := lengthPattern.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				setSpec(SpecLengthM, domain.Spec{Value: v, Unit: "M"})
			}
		}
	}
	if m := socketPattern.FindStringSubmatch(text); m != nil {
		count := 1.0
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				count = v
			}
		}
		setSpec(SpecSocket, domain.Spec{Value: count, Unit: m[1]})
	}
	if m := tiersPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecTiers, domain.Spec{Value: v})
		}
	}
	if m := linesPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecLines, domain.Spec{Value: v})
		}
	}
	if m := stepsPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			setSpec(SpecSteps, domain.Spec{Value: v})
		}
	}
	if m := colorTempPattern.FindStringSubmatch(text); m != nil {
		temp := strings.ReplaceAll(m[1], " ", "")
		setSpec(SpecColorTemp, domain.Spec{Value: 1, Unit: temp})
	}
}

func (n *Normalizer) inferCategory(name string) string {
	for _, rule := range n.categories {
		if strings.Contains(name, rule.Keyword) {
			return rule.Category
		}
	}
	return ""
}

func (n *Normalizer) inferBrand(name string) string {
	for _, brand := range n.knownBrands {
		if containsToken(name, brand) {
			return brand
		}
	}
	return ""
}

// containsToken reports whether needle appears in haystack on token
// boundaries, so "EVE" never matches inside "LEVEL".
func containsToken(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		leftOK := start == 0 || haystack[start-1] == ' '
		rightOK := end == len(haystack) || haystack[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}
