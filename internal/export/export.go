// Package export renders an analysis payload as a multi-sheet workbook.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/praballama89182-collab/NGRAM/internal/analysis"
)

// ErrNoSheets indicates the payload contained no non-empty tables.
var ErrNoSheets = errors.New("export: payload has no non-empty sheets")

// Workbook builds an in-memory workbook with one sheet per non-empty table,
// in payload order. The caller owns closing the returned file.
func Workbook(p analysis.Payload) (*excelize.File, error) {
	f := excelize.NewFile()
	written := 0
	for _, sheet := range p.Sheets {
		if len(sheet.Rows) == 0 {
			continue
		}
		if written == 0 {
			// Reuse the default sheet for the first table.
			f.SetSheetName("Sheet1", sheet.Name)
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export: create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			_ = f.Close()
			return nil, err
		}
		written++
	}
	if written == 0 {
		_ = f.Close()
		return nil, ErrNoSheets
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet analysis.Sheet) error {
	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("export: write header %s: %w", sheet.Name, err)
	}
	for i := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: row address: %w", err)
		}
		if err := f.SetSheetRow(sheet.Name, cell, &sheet.Rows[i]); err != nil {
			return fmt.Errorf("export: write row %d of %s: %w", i+2, sheet.Name, err)
		}
	}
	return nil
}

// Write streams the workbook for the payload to w and reports bytes written.
func Write(p analysis.Payload, w io.Writer) (int64, error) {
	f, err := Workbook(p)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return 0, fmt.Errorf("export: serialize workbook: %w", err)
	}
	return buf.WriteTo(w)
}

// WriteFile saves the workbook for the payload at path.
func WriteFile(p analysis.Payload, path string) error {
	f, err := Workbook(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}
