package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/registry"
	"github.com/praballama89182-collab/NGRAM/internal/reports"
	"github.com/praballama89182-collab/NGRAM/internal/runtime"
	"github.com/praballama89182-collab/NGRAM/internal/security"
	"github.com/praballama89182-collab/NGRAM/internal/telemetry"
	"github.com/praballama89182-collab/NGRAM/pkg/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP analysis server over stdio",
	Long: `Exposes the analyzer as MCP tools: open_report, aggregate_report,
ngram_rollup, wasted_spend, top_performers, classify_term, export_report,
and close_report. File access is restricted to NGRAM_ALLOWED_DIRS (or the
allowed_dirs config key); export_report is hidden unless
NGRAM_ENABLE_EXPORT=true.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	secMgr, err := buildSecurityManager()
	if err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		return fmt.Errorf("no allowed directories configured; set NGRAM_ALLOWED_DIRS: %w", err)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	limits := runtime.NewLimits(config.DefaultMaxConcurrentRequests, config.DefaultMaxOpenReports)
	if cfg != nil && cfg.MaxReportRows > 0 {
		limits.MaxReportRows = cfg.MaxReportRows
	}
	controller := runtime.NewController(limits)
	mw := runtime.NewMiddleware(controller)

	mgr := reports.NewManager(config.DefaultReportIdleTTL, config.DefaultReportCleanupPeriod, controller, nil)
	mgr.SetValidator(secMgr)
	mgr.Start()
	defer func() { _ = mgr.Close(context.Background()) }()

	toolRegistry := registry.New()
	exportFilter := registry.NewExportToolFilterFromEnv()

	srv := server.NewMCPServer(
		"Search-Term Report Analyzer",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(buildHooks()),
		server.WithToolHandlerMiddleware(mw.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
			return exportFilter.FilterTools(ctx, tools)
		}),
	)

	registry.RegisterAnalysisTools(srv, toolRegistry, registry.Deps{
		Limits:   controller.LimitsSnapshot(),
		Reports:  mgr,
		Security: secMgr,
	})

	logger.Info().
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_reports", limits.MaxOpenReports).
		Msg("mcp server bootstrap configured")

	th := telemetry.NewHooks(logger)
	th.OnServerStart()
	if err := server.ServeStdio(srv); err != nil {
		// Use stderr for transport errors so clients don't misinterpret output
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
	th.OnServerStop()
	return nil
}

// buildSecurityManager prefers the config file's allowed_dirs and falls back
// to NGRAM_ALLOWED_DIRS.
func buildSecurityManager() (*security.Manager, error) {
	if cfg != nil && len(cfg.AllowedDirs) > 0 {
		return security.NewManager(cfg.AllowedDirs, nil)
	}
	return security.NewManagerFromEnv()
}

// buildHooks constructs mcp-go server hooks for basic telemetry.
func buildHooks() *server.Hooks {
	th := telemetry.NewHooks(logger)
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		th.OnSessionStart(session.SessionID())
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		th.OnSessionEnd(session.SessionID())
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		logger.Info().Str("tool", req.Params.Name).Msg("tool call served")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})

	return hooks
}
