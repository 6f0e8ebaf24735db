package httpx

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/telemetry"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	return NewRouter(zerolog.Nop(), metrics, reg, Options{Defaults: analysis.Params{}})
}

func uploadRequest(t *testing.T, body string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("report", "report.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeEndpointReturnsWorkbook(t *testing.T) {
	router := newTestRouter(t)
	csv := "Customer Search Term,Spend,7 Day Total Sales,7 Day Total Orders\n" +
		"wireless mouse,15,50,3\n" +
		"usb hub,6,0,0\n"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, csv, map[string]string{"brand": "acme"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	require.Equal(t, "2", rec.Header().Get("X-Report-Rows"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "Master_Analysis")
	require.Contains(t, f.GetSheetList(), "Term_Summary")
	require.Contains(t, f.GetSheetList(), "Wasted_Spend")
}

func TestAnalyzeEndpointRejectsBadParams(t *testing.T) {
	router := newTestRouter(t)
	csv := "Customer Search Term,Spend\nwireless mouse,1\n"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, csv, map[string]string{"gram_sizes": "0,9"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpointRequiresReportField(t *testing.T) {
	router := newTestRouter(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("brand", "acme"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpointSchemaError(t *testing.T) {
	router := newTestRouter(t)
	csv := "Campaign,Spend\nx,1\n"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, csv, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "term column")
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "ngram_reports_opened_total"))
}
