package config

import "time"

// Default runtime limits and guardrails for the search-term analyzer.
// These values are conservative and can be overridden through Settings
// (env, CLI flags, or a config file). They are referenced by internal/runtime.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenReports        = 4

	// Payload and row limits
	DefaultMaxPayloadBytes = 128 * 1024       // 128KB per MCP response page
	DefaultMaxUploadBytes  = 32 * 1024 * 1024 // 32MB per uploaded report
	DefaultMaxReportRows   = 250_000
	DefaultPageSize        = 200
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Report handle lifecycle
	DefaultReportIdleTTL       = 10 * time.Minute
	DefaultReportCleanupPeriod = time.Minute
	DefaultHTTPShutdownTimeout = 5 * time.Second
)

// Analysis defaults. Gram sizes follow the stock report workflow (1-3);
// the engine itself accepts sizes up to MaxGramSize.
const (
	MaxGramSize           = 4
	DefaultWastedSpendMin = 5.0
	DefaultTopK           = 10
	DefaultACOSLimit      = 0.35
	SheetNameLimit        = 31
	DefaultHTTPAddr       = ":8080"
)

// DefaultGramSizes returns a fresh copy of the stock gram sizes.
func DefaultGramSizes() []int { return []int{1, 2, 3} }
