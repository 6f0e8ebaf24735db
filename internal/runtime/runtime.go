package runtime

import (
	"context"
	"time"

	"github.com/praballama89182-collab/NGRAM/config"
	"golang.org/x/sync/semaphore"
)

// Limits captures the concurrency and report guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxOpenReports        int

	// Payload and row bounds
	MaxPayloadBytes int
	MaxUploadBytes  int64
	MaxReportRows   int
	PageSize        int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxOpenReports int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenReports <= 0 {
		maxOpenReports = config.DefaultMaxOpenReports
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenReports:        maxOpenReports,
		MaxPayloadBytes:       config.DefaultMaxPayloadBytes,
		MaxUploadBytes:        config.DefaultMaxUploadBytes,
		MaxReportRows:         config.DefaultMaxReportRows,
		PageSize:              config.DefaultPageSize,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// Controller coordinates runtime semaphores for request and report guardrails.
type Controller struct {
	limits          Limits
	requestSem      *semaphore.Weighted
	reportSemaphore *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:          limits,
		requestSem:      semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		reportSemaphore: semaphore.NewWeighted(int64(limits.MaxOpenReports)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSem.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSem.Release(1)
}

// AcquireReport reserves an open report slot.
func (c *Controller) AcquireReport(ctx context.Context) error {
	return c.reportSemaphore.Acquire(ctx, 1)
}

// ReleaseReport frees an open report slot.
func (c *Controller) ReleaseReport() {
	c.reportSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
