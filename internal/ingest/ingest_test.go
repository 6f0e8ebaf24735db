package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	src := "Customer Search Term,Spend,7 Day Total Sales \n" +
		"wireless mouse,10.5,100\n" +
		"usb hub,2,0\n"
	tbl, err := ReadCSV(strings.NewReader(src), ',', Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Customer Search Term", "Spend", "7 Day Total Sales "}, tbl.Headers)
	require.Len(t, tbl.Records, 2)
	require.Equal(t, []string{"usb hub", "2", "0"}, tbl.Records[1])
}

func TestReadCSVStripsBOM(t *testing.T) {
	src := "\uFEFFTerm,Spend\na,1\n"
	tbl, err := ReadCSV(strings.NewReader(src), ',', Options{})
	require.NoError(t, err)
	require.Equal(t, "Term", tbl.Headers[0])
}

func TestReadCSVRowLimit(t *testing.T) {
	src := "Term\na\nb\nc\n"
	_, err := ReadCSV(strings.NewReader(src), ',', Options{MaxRows: 2})
	require.ErrorIs(t, err, ErrTooManyRows)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), ',', Options{})
	require.ErrorIs(t, err, ErrEmptyReport)
}

func createReportWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sh := "Sponsored Products"
	f.SetSheetName("Sheet1", sh)
	require.NoError(t, f.SetSheetRow(sh, "A1", &[]string{"Customer Search Term", "Spend", "7 Day Total Sales "}))
	require.NoError(t, f.SetSheetRow(sh, "A2", &[]string{"wireless mouse", "10.5", "100"}))
	require.NoError(t, f.SetSheetRow(sh, "A3", &[]string{"usb hub", "2", "0"}))

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestReadWorkbookFirstSheet(t *testing.T) {
	path := createReportWorkbook(t)
	tbl, err := ReadWorkbookFile(path, Options{})
	require.NoError(t, err)
	require.Equal(t, "Customer Search Term", tbl.Headers[0])
	require.Len(t, tbl.Records, 2)
}

func TestReadDispatch(t *testing.T) {
	tbl, err := Read("report.csv", strings.NewReader("Term\nx\n"), Options{})
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)

	_, err = Read("report.pdf", strings.NewReader(""), Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
