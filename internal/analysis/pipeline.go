package analysis

import (
	"github.com/praballama89182-collab/NGRAM/config"
)

// Params configures one analysis run. Zero values fall back to the stock
// defaults from config.
type Params struct {
	Brand           string
	GramSizes       []int
	WastedSpendMin  float64
	TopK            int
	ACOSLimit       float64
	DedupeWithinRow bool
	ExtraAliases    map[string][]string
}

func (p *Params) applyDefaults() {
	if len(p.GramSizes) == 0 {
		p.GramSizes = config.DefaultGramSizes()
	}
	if p.WastedSpendMin == 0 {
		p.WastedSpendMin = config.DefaultWastedSpendMin
	}
	if p.TopK == 0 {
		p.TopK = config.DefaultTopK
	}
	if p.ACOSLimit == 0 {
		p.ACOSLimit = config.DefaultACOSLimit
	}
}

// Result bundles the export payload with run statistics for shells.
type Result struct {
	Payload Payload
	Schema  Schema

	Rows        int
	Terms       int
	TotalSpend  float64
	TotalSales  float64
	WastedSpend float64
	WastedTerms int

	// Concentration is nil when total spend is zero.
	Concentration *ConcentrationStats
}

// BuildReport runs the full pipeline over a raw table: normalize, classify,
// aggregate by term and by the full key, roll up n-grams per size, and
// assemble the export payload. One bounded synchronous pass; no cross-run
// state.
func BuildReport(headers []string, records [][]string, p Params) (*Result, error) {
	rows, sch, err := Normalize(headers, records, NormalizeOptions{ExtraAliases: p.ExtraAliases})
	if err != nil {
		return nil, err
	}
	res, err := BuildFromRows(rows, p)
	if err != nil {
		return nil, err
	}
	res.Schema = sch
	return res, nil
}

// BuildFromRows runs the post-normalization pipeline over already-canonical rows.
func BuildFromRows(rows []CanonicalRow, p Params) (*Result, error) {
	p.applyDefaults()

	byTermMatch, err := Aggregate(rows, GroupKey{FieldTerm, FieldCampaign, FieldAdGroup, FieldMatchType})
	if err != nil {
		return nil, err
	}
	byTerm, err := Aggregate(rows, GroupKey{FieldTerm})
	if err != nil {
		return nil, err
	}
	SortBySpendDesc(byTerm)

	tables, err := RollupSizes(rows, p.GramSizes, RollupOptions{DedupeWithinRow: p.DedupeWithinRow})
	if err != nil {
		return nil, err
	}

	wasted := WastedSpend(byTerm, p.WastedSpendMin)

	res := &Result{Rows: len(rows), Terms: len(byTerm)}
	var spend, sales, wastedSpend decSum
	for i := range rows {
		spend.add(rows[i].Spend)
		sales.add(rows[i].Sales)
	}
	for i := range wasted {
		wastedSpend.add(wasted[i].Spend)
	}
	res.TotalSpend = spend.float64()
	res.TotalSales = sales.float64()
	res.WastedSpend = wastedSpend.float64()
	res.WastedTerms = len(wasted)

	if conc, cerr := Concentration(byTerm, p.TopK); cerr == nil {
		res.Concentration = &conc
	}

	pay := &res.Payload
	master := MasterSheet(rows, p.Brand)
	pay.Sheets = append(pay.Sheets, master)
	pay.Sheets = append(pay.Sheets, AggregatedSheet("Term_Summary", byTerm))
	for _, t := range tables {
		pay.Sheets = append(pay.Sheets, NGramSheet(t))
	}
	pay.Sheets = append(pay.Sheets, WordCountSheet(rows))
	pay.Sheets = append(pay.Sheets, AggregatedSheet("Wasted_Spend", wasted))
	pay.Sheets = append(pay.Sheets, AggregatedSheet("Top_Sales", TopBySales(byTermMatch, p.TopK)))
	pay.Sheets = append(pay.Sheets, AggregatedSheet("Best_ACOS", TopEfficient(byTermMatch, p.TopK, p.ACOSLimit)))
	return res, nil
}
