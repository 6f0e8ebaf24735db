package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateByTermWorkedExample(t *testing.T) {
	rows := []CanonicalRow{
		{Term: "wireless mouse", Match: MatchBroad, Spend: 10, Sales: 0, Orders: 0, Clicks: 3},
		{Term: "wireless mouse", Match: MatchExact, Spend: 5, Sales: 50, Orders: 1, Clicks: 2},
	}
	out, err := Aggregate(rows, GroupKey{FieldTerm})
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	require.Equal(t, "wireless mouse", got.Term)
	require.Equal(t, 15.0, got.Spend)
	require.Equal(t, 50.0, got.Sales)
	require.Equal(t, int64(1), got.Orders)
	require.Equal(t, int64(5), got.Clicks)
	require.InDelta(t, 0.30, got.CostToSalesRatio, 1e-9)
	require.InDelta(t, 3.33, got.ReturnOnSpend, 0.01)
}

func TestAggregateZeroDenominatorPolicy(t *testing.T) {
	out, err := Aggregate([]CanonicalRow{{Term: "t", Spend: 0, Sales: 0}}, GroupKey{FieldTerm})
	require.NoError(t, err)
	require.Zero(t, out[0].CostToSalesRatio)
	require.Zero(t, out[0].ReturnOnSpend)

	out, err = Aggregate([]CanonicalRow{{Term: "t", Spend: 7, Sales: 0}}, GroupKey{FieldTerm})
	require.NoError(t, err)
	require.Zero(t, out[0].CostToSalesRatio)
	require.Zero(t, out[0].ReturnOnSpend)
}

func TestAggregateFullKeySplitsGroups(t *testing.T) {
	rows := []CanonicalRow{
		{Term: "t", Campaign: "C1", AdGroup: "G", Match: MatchExact, Spend: 1},
		{Term: "t", Campaign: "C2", AdGroup: "G", Match: MatchExact, Spend: 2},
		{Term: "t", Campaign: "C1", AdGroup: "G", Match: MatchBroad, Spend: 4},
	}
	out, err := Aggregate(rows, GroupKey{FieldTerm, FieldCampaign, FieldAdGroup, FieldMatchType})
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestAggregateConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	terms := []string{"a", "b b", "c c c", "d"}
	rows := make([]CanonicalRow, 0, 200)
	var want float64
	for i := 0; i < 200; i++ {
		spend := float64(rng.Intn(1000)) / 7
		want += spend
		rows = append(rows, CanonicalRow{Term: terms[rng.Intn(len(terms))], Spend: spend})
	}

	out, err := Aggregate(rows, GroupKey{FieldTerm})
	require.NoError(t, err)
	var got float64
	for _, r := range out {
		got += r.Spend
	}
	require.InDelta(t, want, got, 1e-6)
}

func TestAggregateOrderInsensitiveTotals(t *testing.T) {
	rows := make([]CanonicalRow, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, CanonicalRow{Term: "t", Spend: 0.1, Sales: 0.3})
	}
	forward, err := Aggregate(rows, GroupKey{FieldTerm})
	require.NoError(t, err)

	shuffled := make([]CanonicalRow, len(rows))
	copy(shuffled, rows)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	again, err := Aggregate(shuffled, GroupKey{FieldTerm})
	require.NoError(t, err)
	require.Equal(t, forward[0].Spend, again[0].Spend)
	require.Equal(t, forward[0].Sales, again[0].Sales)
}

func TestAggregateInvalidGroupKey(t *testing.T) {
	_, err := Aggregate(nil, GroupKey{"spend"})
	var ik *InvalidGroupKeyError
	require.ErrorAs(t, err, &ik)
	require.Equal(t, Field("spend"), ik.Field)

	_, err = Aggregate(nil, nil)
	require.ErrorAs(t, err, &ik)
}

func TestParseGroupKey(t *testing.T) {
	key, err := ParseGroupKey("term, match_type")
	require.NoError(t, err)
	require.Equal(t, GroupKey{FieldTerm, FieldMatchType}, key)

	_, err = ParseGroupKey("term,bogus")
	require.Error(t, err)
	_, err = ParseGroupKey("")
	require.Error(t, err)
}
