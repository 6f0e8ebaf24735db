package analysis

import (
	"sort"
	"strings"
)

// AggregatedRow is one group-by key with summed metrics and derived ratios.
// Only the fields named by the grouping key are populated.
type AggregatedRow struct {
	Term     string    `json:"term,omitempty"`
	Campaign string    `json:"campaign,omitempty"`
	AdGroup  string    `json:"ad_group,omitempty"`
	Match    MatchType `json:"match_type,omitempty"`

	Spend  float64 `json:"spend"`
	Sales  float64 `json:"sales"`
	Orders int64   `json:"orders"`
	Clicks int64   `json:"clicks"`

	CostToSalesRatio float64 `json:"cost_to_sales_ratio"`
	ReturnOnSpend    float64 `json:"return_on_spend"`
}

type groupAcc struct {
	out    AggregatedRow
	spend  decSum
	sales  decSum
	orders int64
	clicks int64
}

// Aggregate partitions rows by byte-exact equality of the key tuple and sums
// metrics per partition. No row is dropped or double-counted. Output is
// sorted by the key tuple for deterministic paging; callers re-sort for
// presentation as needed.
func Aggregate(rows []CanonicalRow, key GroupKey) ([]AggregatedRow, error) {
	if len(key) == 0 {
		return nil, &InvalidGroupKeyError{}
	}
	for _, f := range key {
		switch f {
		case FieldTerm, FieldCampaign, FieldAdGroup, FieldMatchType:
		default:
			return nil, &InvalidGroupKeyError{Field: f}
		}
	}

	groups := make(map[string]*groupAcc)
	var parts []string
	for i := range rows {
		r := &rows[i]
		parts = parts[:0]
		for _, f := range key {
			parts = append(parts, keyPart(r, f))
		}
		k := strings.Join(parts, "\x1f")
		acc, ok := groups[k]
		if !ok {
			acc = &groupAcc{}
			for _, f := range key {
				switch f {
				case FieldTerm:
					acc.out.Term = r.Term
				case FieldCampaign:
					acc.out.Campaign = r.Campaign
				case FieldAdGroup:
					acc.out.AdGroup = r.AdGroup
				case FieldMatchType:
					acc.out.Match = r.Match
				}
			}
			groups[k] = acc
		}
		acc.spend.add(r.Spend)
		acc.sales.add(r.Sales)
		acc.orders += r.Orders
		acc.clicks += r.Clicks
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]AggregatedRow, 0, len(groups))
	for _, k := range keys {
		acc := groups[k]
		row := acc.out
		row.Spend = acc.spend.float64()
		row.Sales = acc.sales.float64()
		row.Orders = acc.orders
		row.Clicks = acc.clicks
		row.CostToSalesRatio = costToSales(row.Spend, row.Sales)
		row.ReturnOnSpend = returnOnSpend(row.Spend, row.Sales)
		out = append(out, row)
	}
	return out, nil
}

func keyPart(r *CanonicalRow, f Field) string {
	switch f {
	case FieldTerm:
		return r.Term
	case FieldCampaign:
		return r.Campaign
	case FieldAdGroup:
		return r.AdGroup
	case FieldMatchType:
		return string(r.Match)
	}
	return ""
}

// SortBySpendDesc orders aggregated rows for presentation, highest spend
// first with a stable key tiebreak.
func SortBySpendDesc(rows []AggregatedRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Spend > rows[j].Spend })
}
