package analysis

import (
	"fmt"
	"sort"
)

// TermShare is one group's slice of total spend.
type TermShare struct {
	Term  string  `json:"term"`
	Share float64 `json:"share"`
	Spend float64 `json:"spend"`
}

// ConcentrationStats summarizes how concentrated spend is across terms:
// Top-N share plus the Herfindahl-Hirschman Index over all terms.
type ConcentrationStats struct {
	TopN       int         `json:"top_n"`
	Groups     []TermShare `json:"groups"`
	OtherShare float64     `json:"other_share"`
	HHI        float64     `json:"hhi"`
	Band       string      `json:"band"`
}

// Concentration computes spend shares over term-aggregated rows. Returns an
// error when total spend is zero, since shares are undefined.
func Concentration(rows []AggregatedRow, topN int) (ConcentrationStats, error) {
	var out ConcentrationStats
	if topN <= 0 || topN > 10 {
		topN = 5
	}
	out.TopN = topN

	var total decSum
	for i := range rows {
		total.add(rows[i].Spend)
	}
	totalSpend := total.float64()
	if totalSpend == 0 {
		return out, fmt.Errorf("analysis: zero total spend; cannot compute shares")
	}

	sorted := make([]AggregatedRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Spend > sorted[j].Spend })

	keep := topN
	if keep > len(sorted) {
		keep = len(sorted)
	}
	var topShare float64
	for i := 0; i < keep; i++ {
		sh := sorted[i].Spend / totalSpend
		out.Groups = append(out.Groups, TermShare{Term: sorted[i].Term, Share: round3(sh), Spend: sorted[i].Spend})
		topShare += sh
	}
	out.OtherShare = round3(1.0 - topShare)

	// HHI: sum of squared shares over all groups
	var hhi float64
	for i := range sorted {
		sh := sorted[i].Spend / totalSpend
		hhi += sh * sh
	}
	out.HHI = round3(hhi)
	// Bands based on common antitrust thresholds
	switch {
	case hhi < 0.15:
		out.Band = "unconcentrated"
	case hhi < 0.25:
		out.Band = "moderately_concentrated"
	default:
		out.Band = "highly_concentrated"
	}
	return out, nil
}

func round3(f float64) float64 {
	if f < 0 {
		return -float64(int64(-f*1000+0.5)) / 1000
	}
	return float64(int64(f*1000+0.5)) / 1000
}
