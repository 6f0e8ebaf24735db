package registry

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestExportFilterHidesExportTools(t *testing.T) {
	tools := []mcp.Tool{
		{Name: "open_report"},
		{Name: "export_report"},
		{Name: "aggregate_report"},
	}

	f := &ExportToolFilter{allowExport: false}
	got := f.FilterTools(context.Background(), tools)
	require.Len(t, got, 2)
	for _, tool := range got {
		require.NotEqual(t, "export_report", tool.Name)
	}

	f = &ExportToolFilter{allowExport: true}
	require.Len(t, f.FilterTools(context.Background(), tools), 3)
}

func TestRegistryStableOrder(t *testing.T) {
	r := New()
	r.Register(mcp.Tool{Name: "wasted_spend"})
	r.Register(mcp.Tool{Name: "aggregate_report"})
	r.Register(mcp.Tool{Name: "ngram_rollup"})

	tools, err := r.Tools(context.Background())
	require.NoError(t, err)
	require.Equal(t, "aggregate_report", tools[0].Name)
	require.Equal(t, "ngram_rollup", tools[1].Name)
	require.Equal(t, "wasted_spend", tools[2].Name)

	_, ok := r.Get("aggregate_report")
	require.True(t, ok)
	_, ok = r.Get("missing")
	require.False(t, ok)
}
