package registry

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ExportToolFilter conditionally hides filesystem-writing tools unless
// explicitly enabled. Enable by setting NGRAM_ENABLE_EXPORT=true.
type ExportToolFilter struct {
	allowExport bool
}

// NewExportToolFilterFromEnv constructs a filter using NGRAM_ENABLE_EXPORT.
func NewExportToolFilterFromEnv() *ExportToolFilter {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NGRAM_ENABLE_EXPORT")))
	allow := v == "1" || v == "true" || v == "yes"
	return &ExportToolFilter{allowExport: allow}
}

// FilterTools implements server tool filtering semantics.
// When exports are disabled, tools with the export_ prefix are excluded
// from discovery.
func (f *ExportToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.allowExport {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if strings.HasPrefix(strings.ToLower(t.Name), "export_") {
			continue
		}
		out = append(out, t)
	}
	return out
}
