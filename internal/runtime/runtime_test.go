package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireReport(context.Background()))
	controller.ReleaseReport()
}

func TestNewLimitsDefaults(t *testing.T) {
	limits := NewLimits(0, 0)
	require.Positive(t, limits.MaxConcurrentRequests)
	require.Positive(t, limits.MaxOpenReports)
	require.Positive(t, limits.MaxReportRows)
	require.Positive(t, limits.PageSize)
}
