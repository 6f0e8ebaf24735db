package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWastedSpendThresholdInclusive(t *testing.T) {
	rows := []AggregatedRow{
		{Term: "at threshold", Orders: 0, Spend: 5.0},
		{Term: "below", Orders: 0, Spend: 4.0},
		{Term: "converting", Orders: 2, Spend: 50.0},
	}
	out := WastedSpend(rows, 5.0)
	require.Len(t, out, 1)
	require.Equal(t, "at threshold", out[0].Term)
}

func TestTopBySalesPerMatchType(t *testing.T) {
	rows := []AggregatedRow{
		{Term: "e1", Match: MatchExact, Sales: 10},
		{Term: "e2", Match: MatchExact, Sales: 30},
		{Term: "e3", Match: MatchExact, Sales: 20},
		{Term: "b1", Match: MatchBroad, Sales: 5},
	}
	out := TopBySales(rows, 2)
	require.Len(t, out, 3) // two exact, one broad
	require.Equal(t, "e2", out[0].Term)
	require.Equal(t, "e3", out[1].Term)
	require.Equal(t, "b1", out[2].Term)
}

func TestTopEfficientFiltersAndSorts(t *testing.T) {
	rows := []AggregatedRow{
		{Term: "good", Match: MatchExact, Sales: 100, CostToSalesRatio: 0.10},
		{Term: "ok", Match: MatchExact, Sales: 100, CostToSalesRatio: 0.30},
		{Term: "over limit", Match: MatchExact, Sales: 100, CostToSalesRatio: 0.90},
		{Term: "no sales", Match: MatchExact, Sales: 0, CostToSalesRatio: 0},
	}
	out := TopEfficient(rows, 10, 0.35)
	require.Len(t, out, 2)
	require.Equal(t, "good", out[0].Term)
	require.Equal(t, "ok", out[1].Term)
}

func TestTruncateSheetName(t *testing.T) {
	long := strings.Repeat("x", 40)
	require.Len(t, TruncateSheetName(long), 31)
	require.Equal(t, "short", TruncateSheetName("short"))
}

func TestMasterSheetBrandColumn(t *testing.T) {
	rows := []CanonicalRow{{Term: "acme mouse", Match: MatchExact, Spend: 1}}

	s := MasterSheet(rows, "")
	require.NotContains(t, s.Header, "Brand Category")
	require.Len(t, s.Rows[0], len(s.Header))

	s = MasterSheet(rows, "acme")
	require.Contains(t, s.Header, "Brand Category")
	require.Equal(t, "BRAND", s.Rows[0][len(s.Rows[0])-1])
}

func TestWordCountSheetSums(t *testing.T) {
	rows := []CanonicalRow{
		{Term: "one", Spend: 1, Sales: 10},
		{Term: "two words", Spend: 2, Sales: 20},
		{Term: "more two", Spend: 3, Sales: 30},
	}
	s := WordCountSheet(rows)
	require.Equal(t, "WordCount_Summary", s.Name)
	require.Len(t, s.Rows, 2)
	require.Equal(t, []any{1, 1.0, 10.0}, s.Rows[0])
	require.Equal(t, []any{2, 5.0, 50.0}, s.Rows[1])
}

func TestBuildReportAssemblesSheets(t *testing.T) {
	headers := reportHeaders()
	records := [][]string{
		{"blue wireless mouse", "C", "G", "exact", "90", "300", "5", "100"},
		{"b07xyz1234", "C", "G", "auto", "20", "0", "0", "30"},
	}
	res, err := BuildReport(headers, records, Params{Brand: "blue", WastedSpendMin: 10})
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 2, res.Terms)
	require.InDelta(t, 110.0, res.TotalSpend, 1e-9)
	require.InDelta(t, 300.0, res.TotalSales, 1e-9)
	require.InDelta(t, 20.0, res.WastedSpend, 1e-9)
	require.Equal(t, 1, res.WastedTerms)

	names := make([]string, 0, len(res.Payload.Sheets))
	for _, s := range res.Payload.Sheets {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		"Master_Analysis", "Term_Summary", "NGram_1", "NGram_2", "NGram_3",
		"WordCount_Summary", "Wasted_Spend", "Top_Sales", "Best_ACOS",
	}, names)
}

func TestBuildReportPropagatesSchemaError(t *testing.T) {
	_, err := BuildReport([]string{"Spend"}, nil, Params{})
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}
