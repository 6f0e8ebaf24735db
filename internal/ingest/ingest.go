// Package ingest loads raw search-term reports into a rectangular table.
// It understands delimited text (CSV/TSV) and the first readable sheet of
// an Excel workbook. The header row is mandatory; everything after it is
// data, handed to the analysis normalizer untouched.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the raw rectangular input: one header row plus data records.
type Table struct {
	Headers []string
	Records [][]string
}

// ErrEmptyReport indicates the source had no header row.
var ErrEmptyReport = errors.New("ingest: report has no header row")

// ErrTooManyRows indicates the source exceeded the configured row cap.
var ErrTooManyRows = errors.New("ingest: report exceeds row limit")

// ErrUnsupportedFormat indicates the file extension is not a known report format.
var ErrUnsupportedFormat = errors.New("ingest: unsupported report format")

// Options bound a single read.
type Options struct {
	// MaxRows caps data rows (excluding the header). <= 0 means unbounded.
	MaxRows int
}

// Read dispatches on the file name's extension and parses from r.
func Read(name string, r io.Reader, opts Options) (Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r, ',', opts)
	case ".tsv":
		return ReadCSV(r, '\t', opts)
	case ".xlsx", ".xlsm":
		return ReadWorkbook(r, opts)
	default:
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCSV parses delimited text. Ragged rows are tolerated; the normalizer
// treats short rows as having empty trailing cells.
func ReadCSV(r io.Reader, comma rune, opts Options) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var t Table
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("ingest: parse csv: %w", err)
		}
		if t.Headers == nil {
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], "\uFEFF")
			}
			t.Headers = rec
			continue
		}
		t.Records = append(t.Records, rec)
		if opts.MaxRows > 0 && len(t.Records) > opts.MaxRows {
			return Table{}, ErrTooManyRows
		}
	}
	if t.Headers == nil {
		return Table{}, ErrEmptyReport
	}
	return t, nil
}

// ReadWorkbook parses the first readable sheet of an Excel workbook using a
// streaming row iterator, so large reports never load whole into memory.
func ReadWorkbook(r io.Reader, opts Options) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("ingest: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		t, err := readSheet(f, sheet, opts)
		if err != nil {
			if errors.Is(err, ErrEmptyReport) {
				continue // try the next sheet
			}
			return Table{}, err
		}
		return t, nil
	}
	return Table{}, ErrEmptyReport
}

// ReadWorkbookFile is ReadWorkbook for an on-disk path.
func ReadWorkbookFile(path string, opts Options) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("ingest: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		t, err := readSheet(f, sheet, opts)
		if err != nil {
			if errors.Is(err, ErrEmptyReport) {
				continue
			}
			return Table{}, err
		}
		return t, nil
	}
	return Table{}, ErrEmptyReport
}

func readSheet(f *excelize.File, sheet string, opts Options) (Table, error) {
	iter, err := f.Rows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("ingest: read sheet %s: %w", sheet, err)
	}
	defer func() { _ = iter.Close() }()

	var t Table
	for iter.Next() {
		vals, err := iter.Columns()
		if err != nil {
			return Table{}, fmt.Errorf("ingest: read sheet %s: %w", sheet, err)
		}
		if t.Headers == nil {
			if rowEmpty(vals) {
				continue
			}
			t.Headers = vals
			continue
		}
		if rowEmpty(vals) {
			continue
		}
		t.Records = append(t.Records, vals)
		if opts.MaxRows > 0 && len(t.Records) > opts.MaxRows {
			return Table{}, ErrTooManyRows
		}
	}
	if err := iter.Error(); err != nil {
		return Table{}, fmt.Errorf("ingest: read sheet %s: %w", sheet, err)
	}
	if t.Headers == nil {
		return Table{}, ErrEmptyReport
	}
	return t, nil
}

func rowEmpty(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
