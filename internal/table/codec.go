package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseError reports a file that exists but could not be read as a table.
// It is not retried automatically; the file needs fixing first.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the spreadsheet at path into a Table. The codec is chosen by
// file extension: .xlsx/.xlsm via excelize, .csv via encoding/csv.
//
// A file that cannot be opened returns the underlying I/O error; a file
// that opens but does not parse returns a *ParseError.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadXLSX(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(path))}
	}
}

// Save writes the table to path, overwriting it in place. The codec is
// chosen the same way as in Load. Column order and row order are written
// exactly as held in the table.
func Save(path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return saveXLSX(path, t)
	case ".csv":
		return saveCSV(path, t)
	default:
		return fmt.Errorf("save %s: unsupported file type %q", path, filepath.Ext(path))
	}
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are padded, not rejected

	records, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return fromRecords(records), nil
}

func saveCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range t.Columns {
			record[i] = row[i].String()
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return f.Close()
}

func loadXLSX(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("workbook has no sheets")}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return fromRecords(records), nil
}

func saveXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(t.Columns))
		for i := range t.Columns {
			cells[i] = row[i].cell()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("cell name row %d: %w", r+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// fromRecords builds a Table from raw string records. The first record is
// the header; data rows are padded to the header width.
func fromRecords(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}

	t.Columns = records[0]
	t.Rows = make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, 0, len(t.Columns))
		for i := range rec {
			if i >= len(t.Columns) {
				break // cells beyond the header are dropped
			}
			row = append(row, Parse(rec[i]))
		}
		t.Rows = append(t.Rows, pad(row, len(t.Columns)))
	}
	return t
}
