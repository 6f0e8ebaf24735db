package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/praballama89182-collab/NGRAM/internal/analysis"
)

func samplePayload() analysis.Payload {
	var p analysis.Payload
	p.Add("Term_Summary", []string{"Term", "Spend"}, [][]any{
		{"wireless mouse", 15.0},
		{"usb hub", 2.0},
	})
	p.Add("Wasted_Spend", []string{"Term", "Spend"}, nil) // empty, must be skipped
	p.Add("NGram_1", []string{"N-Gram", "Spend"}, [][]any{{"mouse", 15.0}})
	return p
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(samplePayload(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Empty tables are dropped; order is preserved.
	require.Equal(t, []string{"Term_Summary", "NGram_1"}, f.GetSheetList())

	rows, err := f.GetRows("Term_Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Term", "Spend"}, rows[0])
	require.Equal(t, "wireless mouse", rows[1][0])
}

func TestWriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(samplePayload(), &buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "NGram_1")
}

func TestAllEmptyPayload(t *testing.T) {
	var p analysis.Payload
	p.Add("Empty", []string{"A"}, nil)
	_, err := Workbook(p)
	require.ErrorIs(t, err, ErrNoSheets)
}
