package analysis

import (
	"strconv"
	"strings"
)

// Schema records which source column each canonical field resolved to.
// An index of -1 means the field is absent and reads as zero/empty.
type Schema struct {
	Term     int `json:"term"`
	Campaign int `json:"campaign"`
	AdGroup  int `json:"ad_group"`
	Match    int `json:"match_type"`
	Spend    int `json:"spend"`
	Sales    int `json:"sales"`
	Orders   int `json:"orders"`
	Clicks   int `json:"clicks"`
}

// headerVariants lists known label substrings per canonical field, in
// priority order. Matching is case-insensitive substring containment over
// trimmed header labels; the canonical name itself is the exact-match
// fallback when no variant hits.
var headerVariants = map[Field][]string{
	FieldTerm:      {"customer search term", "search term", "search query", "query"},
	FieldCampaign:  {"campaign name", "campaign"},
	FieldAdGroup:   {"ad group name", "ad group", "adgroup"},
	FieldMatchType: {"match type", "targeting type", "targeting"},
	"spend":        {"spend", "cost"},
	"sales":        {"total sales", "sales", "revenue"},
	"orders":       {"total orders", "orders", "units ordered"},
	"clicks":       {"clicks"},
}

// NormalizeOptions supplements the built-in header heuristics.
type NormalizeOptions struct {
	// ExtraAliases maps canonical field names to additional header
	// substrings checked before the built-in variants.
	ExtraAliases map[string][]string
}

// Normalize maps an arbitrary rectangular table with one header row into
// canonical rows. Malformed numeric cells become 0 and unrecognized match
// types fold into AUTO_OTHER/UNKNOWN; only an unresolvable term column is
// fatal and returns a *SchemaError.
func Normalize(headers []string, records [][]string, opts NormalizeOptions) ([]CanonicalRow, Schema, error) {
	trimmed := make([]string, len(headers))
	lowered := make([]string, len(headers))
	for i, h := range headers {
		trimmed[i] = strings.TrimSpace(h)
		lowered[i] = strings.ToLower(trimmed[i])
	}

	resolve := func(field string) int {
		for _, alias := range opts.ExtraAliases[field] {
			a := strings.ToLower(strings.TrimSpace(alias))
			if a == "" {
				continue
			}
			for i, h := range lowered {
				if strings.Contains(h, a) {
					return i
				}
			}
		}
		for _, variant := range headerVariants[Field(field)] {
			for i, h := range lowered {
				if strings.Contains(h, variant) {
					return i
				}
			}
		}
		for i, h := range lowered {
			if h == field {
				return i
			}
		}
		return -1
	}

	sch := Schema{
		Term:     resolve(string(FieldTerm)),
		Campaign: resolve(string(FieldCampaign)),
		AdGroup:  resolve(string(FieldAdGroup)),
		Match:    resolve(string(FieldMatchType)),
		Spend:    resolve("spend"),
		Sales:    resolve("sales"),
		Orders:   resolve("orders"),
		Clicks:   resolve("clicks"),
	}
	if sch.Term < 0 {
		return nil, sch, &SchemaError{Headers: trimmed}
	}

	rows := make([]CanonicalRow, 0, len(records))
	for _, rec := range records {
		term := strings.TrimSpace(cellAt(rec, sch.Term))
		if term == "" {
			continue // unattributable row; nothing to group it under
		}
		rows = append(rows, CanonicalRow{
			Term:     term,
			Campaign: strings.TrimSpace(cellAt(rec, sch.Campaign)),
			AdGroup:  strings.TrimSpace(cellAt(rec, sch.AdGroup)),
			Match:    normalizeMatch(cellAt(rec, sch.Match), sch.Match >= 0),
			Spend:    parseMetric(cellAt(rec, sch.Spend)),
			Sales:    parseMetric(cellAt(rec, sch.Sales)),
			Orders:   parseCount(cellAt(rec, sch.Orders)),
			Clicks:   parseCount(cellAt(rec, sch.Clicks)),
		})
	}
	return rows, sch, nil
}

func cellAt(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// parseMetric coerces a source cell to a nonnegative float; parse failures
// repair to 0 rather than aborting the run.
func parseMetric(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '%':
			return -1
		default:
			return r
		}
	}, s)
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseCount(s string) int64 {
	f := parseMetric(s)
	return int64(f)
}

// normalizeMatch folds free-form match-type text into the fixed vocabulary.
// Checked in order EXACT, PHRASE, BROAD; anything else is AUTO_OTHER, and an
// empty or absent cell is UNKNOWN.
func normalizeMatch(s string, columnPresent bool) MatchType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || !columnPresent {
		return MatchUnknown
	}
	switch {
	case strings.Contains(s, "exact"):
		return MatchExact
	case strings.Contains(s, "phrase"):
		return MatchPhrase
	case strings.Contains(s, "broad"):
		return MatchBroad
	default:
		return MatchAutoOther
	}
}
