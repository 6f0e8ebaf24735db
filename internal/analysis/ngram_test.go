package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func findGram(t *testing.T, rows []NGramRow, gram string) NGramRow {
	t.Helper()
	for _, r := range rows {
		if r.Gram == gram {
			return r
		}
	}
	t.Fatalf("gram %q not found", gram)
	return NGramRow{}
}

func TestRollupWindowLaw(t *testing.T) {
	rows := []CanonicalRow{{Term: "blue wireless mouse", Spend: 90, Sales: 300}}

	out1, err := Rollup(rows, 1, RollupOptions{})
	require.NoError(t, err)
	require.Len(t, out1, 3)
	for _, g := range []string{"blue", "wireless", "mouse"} {
		r := findGram(t, out1, g)
		require.Equal(t, 90.0, r.Spend)
		require.Equal(t, 300.0, r.Sales)
		require.Equal(t, 1, r.Occurrences)
	}

	out2, err := Rollup(rows, 2, RollupOptions{})
	require.NoError(t, err)
	require.Len(t, out2, 2)
	findGram(t, out2, "blue wireless")
	findGram(t, out2, "wireless mouse")

	// k=3 < n=4: zero windows, no padding.
	out4, err := Rollup(rows, 4, RollupOptions{})
	require.NoError(t, err)
	require.Empty(t, out4)
}

func TestRollupIntentionalDoubleCounting(t *testing.T) {
	// Full row metrics land in every overlapping window of the same row.
	// The per-window sums therefore exceed the input total; that is the
	// attribution policy, not a defect.
	rows := []CanonicalRow{{Term: "blue wireless mouse", Spend: 90}}
	out, err := Rollup(rows, 1, RollupOptions{})
	require.NoError(t, err)
	var total float64
	for _, r := range out {
		total += r.Spend
	}
	require.Equal(t, 270.0, total)
}

func TestRollupGroupsAcrossRows(t *testing.T) {
	rows := []CanonicalRow{
		{Term: "wireless mouse", Spend: 10, Sales: 0, Orders: 0},
		{Term: "ergonomic mouse", Spend: 5, Sales: 50, Orders: 1},
	}
	out, err := Rollup(rows, 1, RollupOptions{})
	require.NoError(t, err)

	mouse := findGram(t, out, "mouse")
	require.Equal(t, 15.0, mouse.Spend)
	require.Equal(t, 50.0, mouse.Sales)
	require.Equal(t, int64(1), mouse.Orders)
	require.Equal(t, 2, mouse.Occurrences)
	require.InDelta(t, 0.30, mouse.CostToSalesRatio, 1e-9)
}

func TestRollupLowercasesTokens(t *testing.T) {
	rows := []CanonicalRow{
		{Term: "Blue Mouse", Spend: 1},
		{Term: "blue mouse", Spend: 2},
	}
	out, err := Rollup(rows, 2, RollupOptions{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "blue mouse", out[0].Gram)
	require.Equal(t, 3.0, out[0].Spend)
}

func TestRollupOccurrencePolicy(t *testing.T) {
	rows := []CanonicalRow{{Term: "red red shoe", Spend: 6}}

	// Default: every sliding-window instance counts.
	out, err := Rollup(rows, 1, RollupOptions{})
	require.NoError(t, err)
	red := findGram(t, out, "red")
	require.Equal(t, 2, red.Occurrences)
	require.Equal(t, 12.0, red.Spend)

	// Dedupe-within-row: each distinct window once per row.
	out, err = Rollup(rows, 1, RollupOptions{DedupeWithinRow: true})
	require.NoError(t, err)
	red = findGram(t, out, "red")
	require.Equal(t, 1, red.Occurrences)
	require.Equal(t, 6.0, red.Spend)
}

func TestRollupRejectsBadSizes(t *testing.T) {
	_, err := Rollup(nil, 0, RollupOptions{})
	require.Error(t, err)
	_, err = Rollup(nil, 5, RollupOptions{})
	require.Error(t, err)
}

func TestRollupSizesIndependentTables(t *testing.T) {
	rows := []CanonicalRow{{Term: "blue wireless mouse", Spend: 90, Sales: 300}}
	tables, err := RollupSizes(rows, []int{1, 2, 4}, RollupOptions{})
	require.NoError(t, err)
	require.Len(t, tables, 3)
	require.Equal(t, 1, tables[0].N)
	require.Len(t, tables[0].Rows, 3)
	require.Len(t, tables[1].Rows, 2)
	require.Empty(t, tables[2].Rows)
}
