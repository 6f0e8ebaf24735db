package analysis

import (
	"fmt"
	"strings"
)

// MatchType is the fixed targeting vocabulary a report row is normalized into.
type MatchType string

const (
	MatchExact     MatchType = "EXACT"
	MatchPhrase    MatchType = "PHRASE"
	MatchBroad     MatchType = "BROAD"
	MatchAutoOther MatchType = "AUTO_OTHER"
	MatchUnknown   MatchType = "UNKNOWN"
)

// CanonicalRow is one observed (term, campaign, ad group, match type)
// combination with its metrics for the reporting period. Metric fields are
// never missing: unparseable or absent source values normalize to zero.
type CanonicalRow struct {
	Term     string    `json:"term"`
	Campaign string    `json:"campaign"`
	AdGroup  string    `json:"ad_group"`
	Match    MatchType `json:"match_type"`
	Spend    float64   `json:"spend"`
	Sales    float64   `json:"sales"`
	Orders   int64     `json:"orders"`
	Clicks   int64     `json:"clicks"`
}

// Field names a grouping key may reference.
type Field string

const (
	FieldTerm      Field = "term"
	FieldCampaign  Field = "campaign"
	FieldAdGroup   Field = "ad_group"
	FieldMatchType Field = "match_type"
)

// GroupKey is an ordered list of fields rows are partitioned by.
type GroupKey []Field

// ParseGroupKey converts a comma-separated field list into a GroupKey.
func ParseGroupKey(s string) (GroupKey, error) {
	var key GroupKey
	for _, part := range strings.Split(s, ",") {
		f := Field(strings.TrimSpace(strings.ToLower(part)))
		if f == "" {
			continue
		}
		switch f {
		case FieldTerm, FieldCampaign, FieldAdGroup, FieldMatchType:
			key = append(key, f)
		default:
			return nil, &InvalidGroupKeyError{Field: f}
		}
	}
	if len(key) == 0 {
		return nil, &InvalidGroupKeyError{}
	}
	return key, nil
}

// InvalidGroupKeyError reports a grouping key referencing an unknown field.
// This is a caller contract violation, not a user-facing data problem.
type InvalidGroupKeyError struct {
	Field Field
}

func (e *InvalidGroupKeyError) Error() string {
	if e.Field == "" {
		return "analysis: empty group key"
	}
	return fmt.Sprintf("analysis: invalid group key field %q", string(e.Field))
}

// SchemaError signals that the mandatory term column could not be resolved
// from the input header. Metric columns are optional; the term is not.
type SchemaError struct {
	Headers []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("analysis: no term column resolvable from headers %q", e.Headers)
}

// costToSales returns spend/sales, defined as 0 when sales is 0 so the value
// sorts and filters predictably.
func costToSales(spend, sales float64) float64 {
	if sales > 0 {
		return spend / sales
	}
	return 0
}

// returnOnSpend returns sales/spend with the same zero-denominator policy.
func returnOnSpend(spend, sales float64) float64 {
	if spend > 0 {
		return sales / spend
	}
	return 0
}
