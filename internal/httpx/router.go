// Package httpx exposes the analysis pipeline over HTTP: upload a raw
// search-term report, download the analyzed workbook.
package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/export"
	"github.com/praballama89182-collab/NGRAM/internal/ingest"
	"github.com/praballama89182-collab/NGRAM/internal/telemetry"
)

// Options configure the router beyond its service dependencies.
type Options struct {
	MaxUploadBytes int64
	MaxReportRows  int
	Defaults       analysis.Params
}

// NewRouter builds the HTTP surface: health probes, Prometheus metrics, and
// the one-shot analyze endpoint.
func NewRouter(log zerolog.Logger, metrics *telemetry.Metrics, reg *prometheus.Registry, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if opts.MaxReportRows <= 0 {
		opts.MaxReportRows = config.DefaultMaxReportRows
	}

	mux := chi.NewRouter()
	mux.Use(RequestID)
	mux.Use(Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.Post("/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)
		if err := r.ParseMultipartForm(opts.MaxUploadBytes); err != nil {
			http.Error(w, "upload too large or malformed multipart body", http.StatusRequestEntityTooLarge)
			return
		}
		file, header, err := r.FormFile("report")
		if err != nil {
			http.Error(w, "multipart field 'report' required", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		tbl, err := ingest.Read(header.Filename, file, ingest.Options{MaxRows: opts.MaxReportRows})
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, ingest.ErrUnsupportedFormat) {
				status = http.StatusUnsupportedMediaType
			}
			http.Error(w, err.Error(), status)
			return
		}

		params, err := paramsFromRequest(r, opts.Defaults)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := analysis.BuildReport(tbl.Headers, tbl.Records, params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		var buf bytes.Buffer
		n, err := export.Write(res.Payload, &buf)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if metrics != nil {
			metrics.ReportsOpened.Inc()
			metrics.RowsNormalized.Add(float64(res.Rows))
			metrics.ExportBytes.Add(float64(n))
			metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="analysis.xlsx"`)
		w.Header().Set("X-Report-Rows", strconv.Itoa(res.Rows))
		w.Header().Set("X-Report-Terms", strconv.Itoa(res.Terms))
		_, _ = buf.WriteTo(w)
	})

	return mux
}

// paramsFromRequest merges form/query overrides onto the configured defaults.
func paramsFromRequest(r *http.Request, defaults analysis.Params) (analysis.Params, error) {
	p := defaults

	if v := r.FormValue("brand"); v != "" {
		p.Brand = v
	}
	if v := r.FormValue("gram_sizes"); v != "" {
		var sizes []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > config.MaxGramSize {
				return p, fmt.Errorf("invalid gram_sizes %q", v)
			}
			sizes = append(sizes, n)
		}
		p.GramSizes = sizes
	}
	if v := r.FormValue("wasted_spend_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return p, fmt.Errorf("invalid wasted_spend_min %q", v)
		}
		p.WastedSpendMin = f
	}
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid top_k %q", v)
		}
		p.TopK = n
	}
	if v := r.FormValue("acos_limit"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return p, fmt.Errorf("invalid acos_limit %q", v)
		}
		p.ACOSLimit = f
	}
	if v := r.FormValue("dedupe_within_row"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid dedupe_within_row %q", v)
		}
		p.DedupeWithinRow = b
	}
	return p, nil
}
