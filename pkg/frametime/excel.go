package frametime

import (
	"fmt"
	"math"
	"os"

	"github.com/xuri/excelize/v2"
)

// FromExcel imports a frame table from the first worksheet of a spreadsheet.
// The first column is the row index written by ToExcel and is discarded;
// the remaining columns follow the same layouts as FromCSV.
func FromExcel(path string, unit Unit, opts Options) (*Table, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, &IOError{Op: "read", Path: path, Err: errEmptyFile}
	}
	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	var lines [][]string
	width := 0
	for _, r := range rows {
		if blank(r) {
			continue
		}
		if len(r) > 0 {
			r = r[1:]
		}
		if len(r) > width {
			width = len(r)
		}
		lines = append(lines, r)
	}
	if len(lines) == 0 {
		return nil, &IOError{Op: "read", Path: path, Err: errEmptyFile}
	}
	// trailing blank cells are not returned by the reader
	for i, l := range lines {
		for len(l) < width {
			l = append(l, "")
		}
		lines[i] = l
	}

	recs, lay, err := parseLines(lines)
	if err != nil {
		return nil, &DataError{Source: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return fromRecords(recs, unit, opts, path, lay.reconciled)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// ToExcel writes the table to a new timestamped .xlsx file derived from path
// and returns the name of the file written. Missing values are left blank.
func (t *Table) ToExcel(path string, opts ExportOptions) (string, error) {
	header, cells, err := t.exportCells(opts)
	if err != nil {
		return "", err
	}

	wb, err := buildWorkbook(header, cells)
	if err != nil {
		return "", &IOError{Op: "write", Path: path, Err: err}
	}
	defer wb.Close()

	f, name, err := createTimestamped(path, opts.timestamp(), opts.TimestampLayout)
	if err != nil {
		return "", err
	}
	if err := wb.Write(f); err != nil {
		f.Close()
		os.Remove(name)
		return "", &IOError{Op: "write", Path: name, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &IOError{Op: "close", Path: name, Err: err}
	}
	return name, nil
}

// buildWorkbook lays out header and cells on the first sheet, preceded by
// an index column.
func buildWorkbook(header []string, cells [][]interface{}) (*excelize.File, error) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)

	head := make([]interface{}, 0, len(header)+1)
	head = append(head, "")
	for _, h := range header {
		head = append(head, h)
	}
	if err := wb.SetSheetRow(sheet, "A1", &head); err != nil {
		wb.Close()
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, row := range cells {
		line := make([]interface{}, 0, len(row)+1)
		line = append(line, i)
		for _, v := range row {
			if x, ok := v.(float64); ok && math.IsNaN(x) {
				v = nil
			}
			line = append(line, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err == nil {
			err = wb.SetSheetRow(sheet, cell, &line)
		}
		if err != nil {
			wb.Close()
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return wb, nil
}
