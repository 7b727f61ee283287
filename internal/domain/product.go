package domain

// Product represents a single catalog entry as ingested from a retailer
// feed. Fields beyond id, name, retailer and price are optional and may be
// empty depending on the retailer's schema. Products are immutable after
// ingestion.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Retailer    string  `json:"retailer"`
	Price       float64 `json:"price"`
	Brand       string  `json:"brand,omitempty"`
	Model       string  `json:"model,omitempty"`
	Category    string  `json:"category,omitempty"`
	Dimensions  string  `json:"dimensions,omitempty"`
	Material    string  `json:"material,omitempty"`
	Color       string  `json:"color,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageRef    string  `json:"imageRef,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// Spec is a single structured fact extracted from product text, such as
// a volume ("9 L"), a wattage ("60 W") or a shelf tier count ("5 TIER").
type Spec struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Equal reports whether two specs describe the same fact.
func (s Spec) Equal(other Spec) bool {
	return s.Unit == other.Unit && s.Value == other.Value
}

// NormalizedProduct wraps a Product with its canonical text form: uppercased,
// alias-substituted, whitespace-collapsed per attribute, plus the structured
// specs extracted from the name and dimension fields. The original Product
// is retained untouched for reporting.
type NormalizedProduct struct {
	Product Product

	Name        string
	Brand       string
	Model       string
	Category    string
	Dimensions  string
	Material    string
	Color       string
	Description string

	// Specs maps a spec key (volume, wattage, tiers, ...) to its
	// extracted value. Extraction failures simply leave no entry.
	Specs map[string]Spec
}

// Spec returns the named spec and whether the product declares it.
func (p *NormalizedProduct) Spec(key string) (Spec, bool) {
	s, ok := p.Specs[key]
	return s, ok
}
