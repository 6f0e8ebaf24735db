package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the Prometheus collectors for the analyzer. All
// collectors register against the provided registerer so tests can use an
// isolated registry.
type Metrics struct {
	ReportsOpened    prometheus.Counter
	RowsNormalized   prometheus.Counter
	AnalysisDuration prometheus.Histogram
	ExportBytes      prometheus.Counter
	OpenHandles      prometheus.Gauge
}

// NewMetrics registers the analyzer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "ngram_reports_opened_total",
			Help: "Number of search-term reports opened and normalized.",
		}),
		RowsNormalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "ngram_rows_normalized_total",
			Help: "Number of raw report rows normalized into canonical rows.",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ngram_analysis_duration_seconds",
			Help:    "End-to-end report analysis duration.",
			Buckets: prometheus.DefBuckets,
		}),
		ExportBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "ngram_export_bytes_total",
			Help: "Workbook bytes written by exports.",
		}),
		OpenHandles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ngram_open_report_handles",
			Help: "Report handles currently cached.",
		}),
	}
}
