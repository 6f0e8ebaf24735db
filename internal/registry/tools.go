package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/export"
	"github.com/praballama89182-collab/NGRAM/internal/reports"
	"github.com/praballama89182-collab/NGRAM/internal/runtime"
	"github.com/praballama89182-collab/NGRAM/internal/security"
	"github.com/praballama89182-collab/NGRAM/internal/telemetry"
	"github.com/praballama89182-collab/NGRAM/pkg/mcperr"
	"github.com/praballama89182-collab/NGRAM/pkg/pagination"
	"github.com/praballama89182-collab/NGRAM/pkg/validation"
)

// Deps bundles the shared services tool handlers depend on.
type Deps struct {
	Limits   runtime.Limits
	Reports  *reports.Manager
	Security *security.Manager
	Metrics  *telemetry.Metrics
}

// --- Input / Output Schemas (typed for discovery) ---

// OpenReportInput defines parameters for opening a search-term report.
type OpenReportInput struct {
	Path string `json:"path" validate:"required,report_ext" jsonschema_description:"Path to a search-term report (.csv, .tsv, .xlsx, .xlsm) inside an allowed directory"`
}

// OpenReportOutput documents the response fields for open_report.
type OpenReportOutput struct {
	ReportID        string          `json:"report_id" jsonschema_description:"Server-assigned report handle ID"`
	Rows            int             `json:"rows" jsonschema_description:"Canonical rows after normalization"`
	Schema          analysis.Schema `json:"schema" jsonschema_description:"Resolved column indexes (-1 when absent)"`
	MaxPayloadBytes int             `json:"maxPayloadBytes" jsonschema_description:"Effective payload size limit in bytes"`
	PageSize        int             `json:"pageSize" jsonschema_description:"Default page size for paginated tools"`
}

// CloseReportInput defines parameters for closing a report handle.
type CloseReportInput struct {
	ReportID string `json:"report_id" validate:"required" jsonschema_description:"Report handle ID to close"`
}

// PageMeta captures paging/truncation metadata.
type PageMeta struct {
	Total      int    `json:"total"`
	Returned   int    `json:"returned"`
	Truncated  bool   `json:"truncated"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// AggregateReportInput defines parameters for grouped aggregation.
type AggregateReportInput struct {
	ReportID string `json:"report_id" validate:"required" jsonschema_description:"Report handle ID"`
	GroupKey string `json:"group_key,omitempty" validate:"omitempty,group_key" jsonschema_description:"Comma-separated subset of term, campaign, ad_group, match_type (default term)"`
	PageSize int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=1000" jsonschema_description:"Rows per page"`
	Cursor   string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"Opaque cursor from a previous page"`
}

// AggregateReportOutput documents grouped aggregation results.
type AggregateReportOutput struct {
	ReportID string                   `json:"report_id"`
	GroupKey string                   `json:"group_key"`
	Rows     []analysis.AggregatedRow `json:"rows"`
	Meta     PageMeta                 `json:"meta"`
}

// NGramRollupInput defines parameters for n-gram rollups.
type NGramRollupInput struct {
	ReportID        string `json:"report_id" validate:"required" jsonschema_description:"Report handle ID"`
	Size            int    `json:"size,omitempty" validate:"omitempty,min=1,max=4" jsonschema_description:"Gram size (default 1)"`
	DedupeWithinRow bool   `json:"dedupe_within_row,omitempty" jsonschema_description:"Count each distinct gram once per row instead of per window instance"`
	PageSize        int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=1000" jsonschema_description:"Rows per page"`
	Cursor          string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"Opaque cursor from a previous page"`
}

// NGramRollupOutput documents one gram size's rollup.
type NGramRollupOutput struct {
	ReportID string              `json:"report_id"`
	Size     int                 `json:"size"`
	Rows     []analysis.NGramRow `json:"rows"`
	Meta     PageMeta            `json:"meta"`
}

// WastedSpendInput defines parameters for the wasted-spend filter.
type WastedSpendInput struct {
	ReportID string  `json:"report_id" validate:"required" jsonschema_description:"Report handle ID"`
	MinSpend float64 `json:"min_spend,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Inclusive spend threshold for zero-order terms (default 5)"`
}

// WastedSpendOutput documents the wasted-spend results.
type WastedSpendOutput struct {
	ReportID    string                   `json:"report_id"`
	MinSpend    float64                  `json:"min_spend"`
	TotalWasted float64                  `json:"total_wasted" jsonschema_description:"Sum of spend across returned terms"`
	Rows        []analysis.AggregatedRow `json:"rows"`
}

// TopPerformersInput defines parameters for top-performer extraction.
type TopPerformersInput struct {
	ReportID  string  `json:"report_id" validate:"required" jsonschema_description:"Report handle ID"`
	TopK      int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=100" jsonschema_description:"Rows per match type (default 10)"`
	ACOSLimit float64 `json:"acos_limit,omitempty" validate:"omitempty,gt=0" jsonschema_description:"Inclusive ACOS ceiling for the efficient set (default 0.35)"`
}

// TopPerformersOutput documents the two ranked sets.
type TopPerformersOutput struct {
	ReportID  string                   `json:"report_id"`
	TopK      int                      `json:"top_k"`
	ACOSLimit float64                  `json:"acos_limit"`
	TopSales  []analysis.AggregatedRow `json:"top_sales" jsonschema_description:"Highest-sales terms per match type"`
	BestACOS  []analysis.AggregatedRow `json:"best_acos" jsonschema_description:"Converting terms at or under the ACOS ceiling"`
}

// ClassifyTermInput defines parameters for single-term classification.
type ClassifyTermInput struct {
	Term  string `json:"term" validate:"required" jsonschema_description:"Search term to classify"`
	Brand string `json:"brand,omitempty" jsonschema_description:"Brand token for branded/generic tagging"`
}

// ClassifyTermOutput documents a single classification.
type ClassifyTermOutput struct {
	Term           string                  `json:"term"`
	Classification analysis.Classification `json:"classification"`
}

// ExportReportInput defines parameters for workbook export.
type ExportReportInput struct {
	ReportID        string  `json:"report_id" validate:"required" jsonschema_description:"Report handle ID"`
	Path            string  `json:"path" validate:"required" jsonschema_description:"Output .xlsx path inside an allowed directory"`
	Brand           string  `json:"brand,omitempty" jsonschema_description:"Brand token for branded/generic tagging"`
	GramSizes       string  `json:"gram_sizes,omitempty" validate:"omitempty,gram_sizes" jsonschema_description:"Comma-separated gram sizes (default 1,2,3)"`
	WastedSpendMin  float64 `json:"wasted_spend_min,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Inclusive wasted-spend threshold (default 5)"`
	TopK            int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=100" jsonschema_description:"Rows per match type in ranked sheets (default 10)"`
	ACOSLimit       float64 `json:"acos_limit,omitempty" validate:"omitempty,gt=0" jsonschema_description:"Inclusive ACOS ceiling (default 0.35)"`
	DedupeWithinRow bool    `json:"dedupe_within_row,omitempty" jsonschema_description:"Count each distinct gram once per row"`
}

// ExportReportOutput documents the written workbook.
type ExportReportOutput struct {
	ReportID string   `json:"report_id"`
	Path     string   `json:"path"`
	Sheets   []string `json:"sheets"`
	Rows     int      `json:"rows"`
}

// RegisterAnalysisTools wires the report analysis tool set onto the server.
func RegisterAnalysisTools(s *server.MCPServer, reg *Registry, deps Deps) {
	registerOpenClose(s, reg, deps)
	registerAggregate(s, reg, deps)
	registerNGram(s, reg, deps)
	registerWastedSpend(s, reg, deps)
	registerTopPerformers(s, reg, deps)
	registerClassify(s, reg)
	registerExport(s, reg, deps)
}

func registerOpenClose(s *server.MCPServer, reg *Registry, deps Deps) {
	openTool := mcp.NewTool(
		"open_report",
		mcp.WithDescription("Open a search-term report, normalize it into canonical rows, and return a handle ID with effective limits"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a search-term report (.csv, .tsv, .xlsx, .xlsm) inside an allowed directory")),
		mcp.WithOutputSchema[OpenReportOutput](),
	)
	s.AddTool(openTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in OpenReportInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		id, err := deps.Reports.Open(ctx, in.Path, reports.OpenOptions{MaxRows: deps.Limits.MaxReportRows})
		if err != nil {
			return openErrorResult(err), nil
		}
		r, _ := deps.Reports.Get(id)
		if deps.Metrics != nil {
			deps.Metrics.ReportsOpened.Inc()
			deps.Metrics.RowsNormalized.Add(float64(len(r.Rows)))
			deps.Metrics.OpenHandles.Set(float64(deps.Reports.Count()))
		}
		out := OpenReportOutput{
			ReportID:        id,
			Rows:            len(r.Rows),
			Schema:          r.Schema,
			MaxPayloadBytes: deps.Limits.MaxPayloadBytes,
			PageSize:        deps.Limits.PageSize,
		}
		summary := fmt.Sprintf("report_id=%s rows=%d", id, out.Rows)
		return structured(out, summary), nil
	}))
	reg.Register(openTool)

	closeTool := mcp.NewTool(
		"close_report",
		mcp.WithDescription("Close a previously opened report handle"),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithOutputSchema[struct {
			Success bool `json:"success" jsonschema_description:"True when the handle was closed"`
		}](),
	)
	s.AddTool(closeTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in CloseReportInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		if err := deps.Reports.CloseHandle(ctx, in.ReportID); err != nil {
			return mcperr.New(mcperr.InvalidHandle, ""), nil
		}
		if deps.Metrics != nil {
			deps.Metrics.OpenHandles.Set(float64(deps.Reports.Count()))
		}
		return structured(struct {
			Success bool `json:"success"`
		}{Success: true}, "closed"), nil
	}))
	reg.Register(closeTool)
}

func registerAggregate(s *server.MCPServer, reg *Registry, deps Deps) {
	tool := mcp.NewTool(
		"aggregate_report",
		mcp.WithDescription("Aggregate canonical rows by a group key with summed metrics and recomputed ACOS/ROAS ratios. Zero-denominator ratios are 0 by policy. Results are sorted by key for stable pagination."),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithString("group_key", mcp.DefaultString("term"), mcp.Description("Comma-separated subset of term, campaign, ad_group, match_type")),
		mcp.WithNumber("page_size", mcp.DefaultNumber(float64(config.DefaultPageSize)), mcp.Min(1), mcp.Max(1000), mcp.Description("Rows per page")),
		mcp.WithString("cursor", mcp.Description("Opaque cursor from a previous page")),
		mcp.WithOutputSchema[AggregateReportOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in AggregateReportInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		groupKey := in.GroupKey
		if strings.TrimSpace(groupKey) == "" {
			groupKey = "term"
		}
		key, err := analysis.ParseGroupKey(groupKey)
		if err != nil {
			return mcperr.Wrapf(mcperr.InvalidGroupKey, "%v", err), nil
		}

		qh := queryHash("aggregate", groupKey)
		offset, pageSize, res := resolvePage(in.Cursor, in.PageSize, in.ReportID, "aggregate", qh, deps.Limits.PageSize)
		if res != nil {
			return res, nil
		}

		var page []analysis.AggregatedRow
		var meta PageMeta
		err = deps.Reports.WithRows(in.ReportID, func(rows []analysis.CanonicalRow, _ analysis.Schema) error {
			agg, aerr := analysis.Aggregate(rows, key)
			if aerr != nil {
				return aerr
			}
			page, meta = pageRows(agg, offset, pageSize)
			if meta.Truncated {
				meta.NextCursor = encodeCursor(in.ReportID, "aggregate", offset+meta.Returned, pageSize, qh)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, reports.ErrHandleNotFound) {
				return mcperr.New(mcperr.InvalidHandle, ""), nil
			}
			return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
		}

		out := AggregateReportOutput{ReportID: in.ReportID, GroupKey: groupKey, Rows: page, Meta: meta}
		summary := fmt.Sprintf("groups=%d returned=%d truncated=%v", meta.Total, meta.Returned, meta.Truncated)
		return boundedStructured(out, summary, deps.Limits.MaxPayloadBytes), nil
	}))
	reg.Register(tool)
}

func registerNGram(s *server.MCPServer, reg *Registry, deps Deps) {
	tool := mcp.NewTool(
		"ngram_rollup",
		mcp.WithDescription("Roll up metrics by sliding-window n-grams over whitespace-tokenized terms. Every window carries the full row metrics, so totals across grams intentionally exceed row totals. Sorted by spend descending."),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithNumber("size", mcp.DefaultNumber(1), mcp.Min(1), mcp.Max(float64(config.MaxGramSize)), mcp.Description("Gram size")),
		mcp.WithBoolean("dedupe_within_row", mcp.DefaultBool(false), mcp.Description("Count each distinct gram once per row instead of per window instance")),
		mcp.WithNumber("page_size", mcp.DefaultNumber(float64(config.DefaultPageSize)), mcp.Min(1), mcp.Max(1000), mcp.Description("Rows per page")),
		mcp.WithString("cursor", mcp.Description("Opaque cursor from a previous page")),
		mcp.WithOutputSchema[NGramRollupOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in NGramRollupInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		size := in.Size
		if size == 0 {
			size = 1
		}

		qh := queryHash("ngram", strconv.Itoa(size), strconv.FormatBool(in.DedupeWithinRow))
		offset, pageSize, res := resolvePage(in.Cursor, in.PageSize, in.ReportID, "ngram", qh, deps.Limits.PageSize)
		if res != nil {
			return res, nil
		}

		var page []analysis.NGramRow
		var meta PageMeta
		err := deps.Reports.WithRows(in.ReportID, func(rows []analysis.CanonicalRow, _ analysis.Schema) error {
			grams, gerr := analysis.Rollup(rows, size, analysis.RollupOptions{DedupeWithinRow: in.DedupeWithinRow})
			if gerr != nil {
				return gerr
			}
			page, meta = pageRows(grams, offset, pageSize)
			if meta.Truncated {
				meta.NextCursor = encodeCursor(in.ReportID, "ngram", offset+meta.Returned, pageSize, qh)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, reports.ErrHandleNotFound) {
				return mcperr.New(mcperr.InvalidHandle, ""), nil
			}
			return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
		}

		out := NGramRollupOutput{ReportID: in.ReportID, Size: size, Rows: page, Meta: meta}
		summary := fmt.Sprintf("n=%d grams=%d returned=%d truncated=%v", size, meta.Total, meta.Returned, meta.Truncated)
		return boundedStructured(out, summary, deps.Limits.MaxPayloadBytes), nil
	}))
	reg.Register(tool)
}

func registerWastedSpend(s *server.MCPServer, reg *Registry, deps Deps) {
	tool := mcp.NewTool(
		"wasted_spend",
		mcp.WithDescription("List terms with zero orders and spend at or above the threshold, sorted by spend descending"),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithNumber("min_spend", mcp.DefaultNumber(config.DefaultWastedSpendMin), mcp.Min(0), mcp.Description("Inclusive spend threshold")),
		mcp.WithOutputSchema[WastedSpendOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in WastedSpendInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		minSpend := in.MinSpend
		if minSpend == 0 {
			minSpend = config.DefaultWastedSpendMin
		}

		var out WastedSpendOutput
		err := deps.Reports.WithRows(in.ReportID, func(rows []analysis.CanonicalRow, _ analysis.Schema) error {
			byTerm, aerr := analysis.Aggregate(rows, analysis.GroupKey{analysis.FieldTerm})
			if aerr != nil {
				return aerr
			}
			wasted := analysis.WastedSpend(byTerm, minSpend)
			total := 0.0
			for i := range wasted {
				total += wasted[i].Spend
			}
			out = WastedSpendOutput{ReportID: in.ReportID, MinSpend: minSpend, TotalWasted: total, Rows: wasted}
			return nil
		})
		if err != nil {
			if errors.Is(err, reports.ErrHandleNotFound) {
				return mcperr.New(mcperr.InvalidHandle, ""), nil
			}
			return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
		}
		summary := fmt.Sprintf("terms=%d total_wasted=%.2f threshold=%.2f", len(out.Rows), out.TotalWasted, minSpend)
		return boundedStructured(out, summary, deps.Limits.MaxPayloadBytes), nil
	}))
	reg.Register(tool)
}

func registerTopPerformers(s *server.MCPServer, reg *Registry, deps Deps) {
	tool := mcp.NewTool(
		"top_performers",
		mcp.WithDescription("Return the highest-sales terms per match type and the converting terms at or under the ACOS ceiling"),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithNumber("top_k", mcp.DefaultNumber(float64(config.DefaultTopK)), mcp.Min(1), mcp.Max(100), mcp.Description("Rows per match type")),
		mcp.WithNumber("acos_limit", mcp.DefaultNumber(config.DefaultACOSLimit), mcp.Min(0), mcp.Description("Inclusive ACOS ceiling")),
		mcp.WithOutputSchema[TopPerformersOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in TopPerformersInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		topK := in.TopK
		if topK == 0 {
			topK = config.DefaultTopK
		}
		acosLimit := in.ACOSLimit
		if acosLimit == 0 {
			acosLimit = config.DefaultACOSLimit
		}

		var out TopPerformersOutput
		err := deps.Reports.WithRows(in.ReportID, func(rows []analysis.CanonicalRow, _ analysis.Schema) error {
			agg, aerr := analysis.Aggregate(rows, analysis.GroupKey{
				analysis.FieldTerm, analysis.FieldCampaign, analysis.FieldAdGroup, analysis.FieldMatchType,
			})
			if aerr != nil {
				return aerr
			}
			out = TopPerformersOutput{
				ReportID:  in.ReportID,
				TopK:      topK,
				ACOSLimit: acosLimit,
				TopSales:  analysis.TopBySales(agg, topK),
				BestACOS:  analysis.TopEfficient(agg, topK, acosLimit),
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, reports.ErrHandleNotFound) {
				return mcperr.New(mcperr.InvalidHandle, ""), nil
			}
			return mcperr.Wrapf(mcperr.AnalysisFailed, "%v", err), nil
		}
		summary := fmt.Sprintf("top_sales=%d best_acos=%d", len(out.TopSales), len(out.BestACOS))
		return boundedStructured(out, summary, deps.Limits.MaxPayloadBytes), nil
	}))
	reg.Register(tool)
}

func registerClassify(s *server.MCPServer, reg *Registry) {
	tool := mcp.NewTool(
		"classify_term",
		mcp.WithDescription("Classify a single search term: ASIN vs keyword, word count, and branded vs generic when a brand is supplied"),
		mcp.WithString("term", mcp.Required(), mcp.Description("Search term to classify")),
		mcp.WithString("brand", mcp.Description("Brand token for branded/generic tagging")),
		mcp.WithOutputSchema[ClassifyTermOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ClassifyTermInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		c := analysis.Classify(in.Term, in.Brand)
		out := ClassifyTermOutput{Term: in.Term, Classification: c}
		summary := fmt.Sprintf("type=%s words=%d brand=%s", c.TermType, c.WordCount, c.BrandCategory)
		return structured(out, summary), nil
	}))
	reg.Register(tool)
}

func registerExport(s *server.MCPServer, reg *Registry, deps Deps) {
	tool := mcp.NewTool(
		"export_report",
		mcp.WithDescription("Run the full analysis pipeline over an open report and write the multi-sheet workbook to an allowed path"),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Report handle ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Output .xlsx path inside an allowed directory")),
		mcp.WithString("brand", mcp.Description("Brand token for branded/generic tagging")),
		mcp.WithString("gram_sizes", mcp.DefaultString("1,2,3"), mcp.Description("Comma-separated gram sizes")),
		mcp.WithNumber("wasted_spend_min", mcp.DefaultNumber(config.DefaultWastedSpendMin), mcp.Min(0), mcp.Description("Inclusive wasted-spend threshold")),
		mcp.WithNumber("top_k", mcp.DefaultNumber(float64(config.DefaultTopK)), mcp.Min(1), mcp.Max(100), mcp.Description("Rows per match type in ranked sheets")),
		mcp.WithNumber("acos_limit", mcp.DefaultNumber(config.DefaultACOSLimit), mcp.Min(0), mcp.Description("Inclusive ACOS ceiling")),
		mcp.WithBoolean("dedupe_within_row", mcp.DefaultBool(false), mcp.Description("Count each distinct gram once per row")),
		mcp.WithOutputSchema[ExportReportOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ExportReportInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}
		outPath, err := deps.Security.ValidateExportPath(in.Path)
		if err != nil {
			return exportPathError(err), nil
		}
		sizes, err := parseGramSizes(in.GramSizes)
		if err != nil {
			return mcperr.Wrapf(mcperr.Validation, "%v", err), nil
		}

		start := time.Now()
		var out ExportReportOutput
		err = deps.Reports.WithRows(in.ReportID, func(rows []analysis.CanonicalRow, _ analysis.Schema) error {
			params := analysis.Params{
				Brand:           in.Brand,
				GramSizes:       sizes,
				WastedSpendMin:  in.WastedSpendMin,
				TopK:            in.TopK,
				ACOSLimit:       in.ACOSLimit,
				DedupeWithinRow: in.DedupeWithinRow,
			}
			res, berr := analysis.BuildFromRows(rows, params)
			if berr != nil {
				return berr
			}
			if werr := export.WriteFile(res.Payload, outPath); werr != nil {
				return werr
			}
			names := make([]string, 0, len(res.Payload.Sheets))
			for _, sh := range res.Payload.Sheets {
				names = append(names, sh.Name)
			}
			out = ExportReportOutput{ReportID: in.ReportID, Path: outPath, Sheets: names, Rows: res.Rows}
			return nil
		})
		if err != nil {
			if errors.Is(err, reports.ErrHandleNotFound) {
				return mcperr.New(mcperr.InvalidHandle, ""), nil
			}
			return mcperr.Wrapf(mcperr.ExportFailed, "%v", err), nil
		}
		if deps.Metrics != nil {
			deps.Metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		}
		summary := fmt.Sprintf("path=%s sheets=%d rows=%d", out.Path, len(out.Sheets), out.Rows)
		return structured(out, summary), nil
	}))
	reg.Register(tool)
}

// --- helpers ---

func structured(out any, summary string) *mcp.CallToolResult {
	res := mcp.NewToolResultStructured(out, summary)
	res.Content = []mcp.Content{mcp.NewTextContent(summary)}
	return res
}

// boundedStructured enforces the payload size limit on structured results.
func boundedStructured(out any, summary string, maxBytes int) *mcp.CallToolResult {
	if maxBytes > 0 {
		if b, err := json.Marshal(out); err == nil && len(b) > maxBytes {
			return mcperr.Wrapf(mcperr.PayloadTooLarge, "payload %d bytes exceeds limit %d; reduce page_size", len(b), maxBytes)
		}
	}
	return structured(out, summary)
}

func openErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, security.ErrNotAllowed):
		return mcperr.New(mcperr.PermissionDenied, "")
	case errors.Is(err, security.ErrUnsupportedExtension):
		return mcperr.New(mcperr.UnsupportedFormat, "")
	case errors.Is(err, security.ErrNotFound):
		return mcperr.Wrapf(mcperr.OpenFailed, "file not found")
	}
	var se *analysis.SchemaError
	if errors.As(err, &se) {
		return mcperr.Wrapf(mcperr.SchemaFailed, "%v", err)
	}
	return mcperr.Wrapf(mcperr.OpenFailed, "%v", err)
}

func exportPathError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, security.ErrNotAllowed):
		return mcperr.New(mcperr.PermissionDenied, "")
	case errors.Is(err, security.ErrUnsupportedExtension):
		return mcperr.New(mcperr.UnsupportedFormat, "output must end in .xlsx")
	case errors.Is(err, security.ErrNotFound):
		return mcperr.Wrapf(mcperr.ExportFailed, "output directory not found")
	}
	return mcperr.Wrapf(mcperr.ExportFailed, "%v", err)
}

// resolvePage decodes the cursor when present, checking it matches the
// current handle and query; otherwise it starts a fresh page.
func resolvePage(cursor string, pageSize int, reportID, table, qh string, defaultPS int) (int, int, *mcp.CallToolResult) {
	if pageSize <= 0 {
		pageSize = defaultPS
	}
	if strings.TrimSpace(cursor) == "" {
		return 0, pageSize, nil
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return 0, 0, mcperr.New(mcperr.CursorInvalid, "")
	}
	if c.Rid != reportID || c.T != table || (c.Qh != "" && c.Qh != qh) {
		return 0, 0, mcperr.New(mcperr.CursorInvalid, "cursor was issued for a different query")
	}
	if c.Ps > 0 {
		pageSize = c.Ps
	}
	return c.Off, pageSize, nil
}

func encodeCursor(reportID, table string, offset, pageSize int, qh string) string {
	tok, err := pagination.EncodeCursor(pagination.Cursor{
		Rid: reportID,
		T:   table,
		Off: offset,
		Ps:  pageSize,
		Qh:  qh,
	})
	if err != nil {
		return ""
	}
	return tok
}

func pageRows[T any](rows []T, offset, pageSize int) ([]T, PageMeta) {
	total := len(rows)
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	page := rows[offset:end]
	return page, PageMeta{
		Total:     total,
		Returned:  len(page),
		Truncated: end < total,
	}
}

func queryHash(parts ...string) string {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0x1f})
	}
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}

func parseGramSizes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid gram size %q", part)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
