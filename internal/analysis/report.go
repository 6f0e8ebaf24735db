package analysis

import (
	"fmt"
	"sort"

	"github.com/praballama89182-collab/NGRAM/config"
)

// Sheet is one named tabular output of an analysis run.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Payload is the ordered export payload: sheet name to table, in insertion
// order. Names are truncated to the spreadsheet-format limit; uniqueness
// within that limit is the caller's responsibility.
type Payload struct {
	Sheets []Sheet
}

// Add appends a named table. Empty tables are kept in the payload; the
// export writer skips them so intermediate consumers still see every view.
func (p *Payload) Add(name string, header []string, rows [][]any) {
	p.Sheets = append(p.Sheets, Sheet{Name: TruncateSheetName(name), Header: header, Rows: rows})
}

// TruncateSheetName enforces the 31-character workbook sheet name cap.
func TruncateSheetName(name string) string {
	if len(name) > config.SheetNameLimit {
		return name[:config.SheetNameLimit]
	}
	return name
}

// MasterSheet renders canonical rows with their classification columns, the
// master view of the uploaded report. The brand column appears only when a
// brand name is configured.
func MasterSheet(rows []CanonicalRow, brand string) Sheet {
	header := []string{"Term", "Campaign", "Ad Group", "Match Type", "Spend", "Sales", "Orders", "Clicks", "Term Type", "Word Count"}
	withBrand := brand != ""
	if withBrand {
		header = append(header, "Brand Category")
	}
	out := make([][]any, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		c := Classify(r.Term, brand)
		cells := []any{r.Term, r.Campaign, r.AdGroup, string(r.Match), r.Spend, r.Sales, r.Orders, r.Clicks, string(c.TermType), c.WordCount}
		if withBrand {
			cells = append(cells, string(c.BrandCategory))
		}
		out = append(out, cells)
	}
	return Sheet{Name: "Master_Analysis", Header: header, Rows: out}
}

var aggregatedHeader = []string{"Term", "Campaign", "Ad Group", "Match Type", "Spend", "Sales", "Orders", "Clicks", "ACOS", "ROAS"}

// AggregatedSheet renders aggregated rows under the given sheet name.
func AggregatedSheet(name string, rows []AggregatedRow) Sheet {
	out := make([][]any, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		out = append(out, []any{r.Term, r.Campaign, r.AdGroup, string(r.Match), r.Spend, r.Sales, r.Orders, r.Clicks, r.CostToSalesRatio, r.ReturnOnSpend})
	}
	return Sheet{Name: TruncateSheetName(name), Header: aggregatedHeader, Rows: out}
}

// NGramSheet renders one gram size's rollup.
func NGramSheet(t NGramTable) Sheet {
	header := []string{"N-Gram", "Occurrences", "Spend", "Sales", "Orders", "Clicks", "ACOS", "ROAS"}
	out := make([][]any, 0, len(t.Rows))
	for i := range t.Rows {
		r := &t.Rows[i]
		out = append(out, []any{r.Gram, r.Occurrences, r.Spend, r.Sales, r.Orders, r.Clicks, r.CostToSalesRatio, r.ReturnOnSpend})
	}
	return Sheet{Name: fmt.Sprintf("NGram_%d", t.N), Header: header, Rows: out}
}

// WordCountSheet sums spend and sales by the term's word count, the
// long-tail view of the report.
func WordCountSheet(rows []CanonicalRow) Sheet {
	type wcAcc struct {
		spend decSum
		sales decSum
	}
	acc := make(map[int]*wcAcc)
	for i := range rows {
		wc := WordCount(rows[i].Term)
		a, ok := acc[wc]
		if !ok {
			a = &wcAcc{}
			acc[wc] = a
		}
		a.spend.add(rows[i].Spend)
		a.sales.add(rows[i].Sales)
	}
	counts := make([]int, 0, len(acc))
	for wc := range acc {
		counts = append(counts, wc)
	}
	sort.Ints(counts)
	out := make([][]any, 0, len(counts))
	for _, wc := range counts {
		out = append(out, []any{wc, acc[wc].spend.float64(), acc[wc].sales.float64()})
	}
	return Sheet{Name: "WordCount_Summary", Header: []string{"Word Count", "Spend", "Sales"}, Rows: out}
}

// WastedSpend filters aggregated rows to zero-order groups at or above the
// spend threshold (inclusive), highest spend first.
func WastedSpend(rows []AggregatedRow, minSpend float64) []AggregatedRow {
	out := make([]AggregatedRow, 0)
	for i := range rows {
		if rows[i].Orders == 0 && rows[i].Spend >= minSpend {
			out = append(out, rows[i])
		}
	}
	SortBySpendDesc(out)
	return out
}

// TopBySales returns, per match type, the top-K groups by sales.
func TopBySales(rows []AggregatedRow, k int) []AggregatedRow {
	byMatch := splitByMatch(rows)
	out := make([]AggregatedRow, 0)
	for _, mt := range matchOrder {
		group := byMatch[mt]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Sales > group[j].Sales })
		out = append(out, truncateRows(group, k)...)
	}
	return out
}

// TopEfficient returns, per match type, the bottom-K groups by
// cost-to-sales ratio among rows with sales and a ratio at or below limit.
func TopEfficient(rows []AggregatedRow, k int, acosLimit float64) []AggregatedRow {
	eligible := make([]AggregatedRow, 0, len(rows))
	for i := range rows {
		if rows[i].Sales > 0 && rows[i].CostToSalesRatio <= acosLimit {
			eligible = append(eligible, rows[i])
		}
	}
	byMatch := splitByMatch(eligible)
	out := make([]AggregatedRow, 0)
	for _, mt := range matchOrder {
		group := byMatch[mt]
		sort.SliceStable(group, func(i, j int) bool { return group[i].CostToSalesRatio < group[j].CostToSalesRatio })
		out = append(out, truncateRows(group, k)...)
	}
	return out
}

var matchOrder = []MatchType{MatchExact, MatchPhrase, MatchBroad, MatchAutoOther, MatchUnknown}

func splitByMatch(rows []AggregatedRow) map[MatchType][]AggregatedRow {
	byMatch := make(map[MatchType][]AggregatedRow)
	for i := range rows {
		byMatch[rows[i].Match] = append(byMatch[rows[i].Match], rows[i])
	}
	return byMatch
}

func truncateRows(rows []AggregatedRow, k int) []AggregatedRow {
	if k > 0 && len(rows) > k {
		return rows[:k]
	}
	return rows
}
