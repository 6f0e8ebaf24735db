package analysis

import "strings"

// TermType separates product-targeting rows (ASINs) from keyword rows.
type TermType string

const (
	TermASIN    TermType = "ASIN"
	TermKeyword TermType = "KEYWORD"
)

// BrandCategory tags a term as containing the configured brand or not.
type BrandCategory string

const (
	BrandBranded BrandCategory = "BRAND"
	BrandGeneric BrandCategory = "GENERIC"
)

// Classification carries the per-term derived tags. BrandCategory is empty
// (and omitted from JSON) when no brand name was configured.
type Classification struct {
	TermType      TermType      `json:"term_type"`
	WordCount     int           `json:"word_count"`
	BrandCategory BrandCategory `json:"brand_category,omitempty"`
}

// Classify derives the tags for one term. Pure; no aggregation state.
func Classify(term, brand string) Classification {
	c := Classification{
		TermType:  ClassifyTermType(term),
		WordCount: WordCount(term),
	}
	if strings.TrimSpace(brand) != "" {
		c.BrandCategory = Branding(term, brand)
	}
	return c
}

// ClassifyTermType returns ASIN for terms matching the "b0" + 10 character
// alphanumeric shape. This is a heuristic approximation of the Amazon ASIN
// format, not a full validator; some valid ASINs fall outside it.
func ClassifyTermType(term string) TermType {
	t := strings.TrimSpace(term)
	if len(t) != 10 {
		return TermKeyword
	}
	low := strings.ToLower(t)
	if !strings.HasPrefix(low, "b0") {
		return TermKeyword
	}
	for _, r := range low[2:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return TermKeyword
		}
	}
	return TermASIN
}

// WordCount counts whitespace-delimited tokens after trimming.
func WordCount(term string) int {
	return len(strings.Fields(term))
}

// Branding tags a term BRAND when the brand name occurs case-insensitively
// as a substring, else GENERIC. Callers must not invoke it with an empty
// brand; Classify omits the field in that case.
func Branding(term, brand string) BrandCategory {
	if strings.Contains(strings.ToLower(term), strings.ToLower(strings.TrimSpace(brand))) {
		return BrandBranded
	}
	return BrandGeneric
}
