package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/praballama89182-collab/NGRAM/config"
)

// NGramRow is one n-gram window's rolled-up metrics at a fixed gram size.
// A row's full metrics land in every window its term produces: a term's
// spend is attributable to each sub-phrase it contains, so overlapping
// windows double-count by design.
type NGramRow struct {
	Gram        string `json:"gram"`
	N           int    `json:"n"`
	Occurrences int    `json:"occurrences"`

	Spend  float64 `json:"spend"`
	Sales  float64 `json:"sales"`
	Orders int64   `json:"orders"`
	Clicks int64   `json:"clicks"`

	CostToSalesRatio float64 `json:"cost_to_sales_ratio"`
	ReturnOnSpend    float64 `json:"return_on_spend"`
}

// NGramTable is one gram size's independent result set.
type NGramTable struct {
	N    int        `json:"n"`
	Rows []NGramRow `json:"rows"`
}

// RollupOptions select the occurrence-counting policy. The default counts
// every sliding-window instance, so "red red shoe" at n=1 contributes two
// occurrences of "red"; DedupeWithinRow counts each distinct window once
// per row instead.
type RollupOptions struct {
	DedupeWithinRow bool
}

type gramAcc struct {
	occurrences int
	spend       decSum
	sales       decSum
	orders      int64
	clicks      int64
}

// Rollup explodes each row's term into its n-token windows, regroups by
// window text, and sums metrics per window. A term with fewer than n tokens
// contributes no windows; one with k >= n tokens contributes exactly
// k-n+1. The group-by is batched in one pass, O(total tokens) overall.
func Rollup(rows []CanonicalRow, n int, opts RollupOptions) ([]NGramRow, error) {
	if n < 1 || n > config.MaxGramSize {
		return nil, fmt.Errorf("analysis: gram size %d out of range 1..%d", n, config.MaxGramSize)
	}

	grams := make(map[string]*gramAcc)
	var seen map[string]struct{}
	if opts.DedupeWithinRow {
		seen = make(map[string]struct{})
	}

	for i := range rows {
		r := &rows[i]
		tokens := strings.Fields(strings.ToLower(r.Term))
		if len(tokens) < n {
			continue
		}
		if seen != nil {
			clear(seen)
		}
		for w := 0; w+n <= len(tokens); w++ {
			g := strings.Join(tokens[w:w+n], " ")
			if seen != nil {
				if _, dup := seen[g]; dup {
					continue
				}
				seen[g] = struct{}{}
			}
			acc, ok := grams[g]
			if !ok {
				acc = &gramAcc{}
				grams[g] = acc
			}
			acc.occurrences++
			acc.spend.add(r.Spend)
			acc.sales.add(r.Sales)
			acc.orders += r.Orders
			acc.clicks += r.Clicks
		}
	}

	out := make([]NGramRow, 0, len(grams))
	for g, acc := range grams {
		row := NGramRow{
			Gram:        g,
			N:           n,
			Occurrences: acc.occurrences,
			Spend:       acc.spend.float64(),
			Sales:       acc.sales.float64(),
			Orders:      acc.orders,
			Clicks:      acc.clicks,
		}
		row.CostToSalesRatio = costToSales(row.Spend, row.Sales)
		row.ReturnOnSpend = returnOnSpend(row.Spend, row.Sales)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		return out[i].Gram < out[j].Gram
	})
	return out, nil
}

// RollupSizes runs Rollup once per requested size; result sets are
// independent and never merged.
func RollupSizes(rows []CanonicalRow, sizes []int, opts RollupOptions) ([]NGramTable, error) {
	tables := make([]NGramTable, 0, len(sizes))
	for _, n := range sizes {
		rs, err := Rollup(rows, n, opts)
		if err != nil {
			return nil, err
		}
		tables = append(tables, NGramTable{N: n, Rows: rs})
	}
	return tables, nil
}
