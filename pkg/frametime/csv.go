package frametime

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var errEmptyFile = errors.New("file is empty")

// FromCSV imports a frame table from a delimited text file.
//
// Fields may be separated by commas or whitespace and files ending in .gz
// are decompressed. An optional header line is recognized by its first
// token not being a number. Both the legacy four column layout and the
// reconciled layout written by ToCSV are accepted.
func FromCSV(path string, unit Unit, opts Options) (*Table, error) {
	lines, err := readDelimited(path)
	if err != nil {
		return nil, err
	}
	recs, lay, err := parseLines(lines)
	if err != nil {
		return nil, &DataError{Source: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return fromRecords(recs, unit, opts, path, lay.reconciled)
}

// readDelimited reads every non-blank line of path as a list of fields.
func readDelimited(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if _, ext := SplitExt(path); strings.HasSuffix(strings.ToLower(ext), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
		defer gz.Close()
		r = gz
	}

	var lines [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields, err := splitLine(line)
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
		lines = append(lines, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if len(lines) == 0 {
		return nil, &IOError{Op: "read", Path: path, Err: errEmptyFile}
	}
	return lines, nil
}

// splitLine splits a comma separated line with encoding/csv quoting rules,
// or a whitespace separated line on runs of blanks.
func splitLine(line string) ([]string, error) {
	if !strings.Contains(line, ",") {
		return strings.Fields(line), nil
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr.Read()
}

// ToCSV writes the table to a new timestamped file derived from path and
// returns the name of the file written. An empty or unit-less table is
// rejected before anything is created.
func (t *Table) ToCSV(path string, opts ExportOptions) (string, error) {
	header, cells, err := t.exportCells(opts)
	if err != nil {
		return "", err
	}
	f, name, err := createTimestamped(path, opts.timestamp(), opts.TimestampLayout)
	if err != nil {
		return "", err
	}
	if err := writeCSV(f, name, header, cells); err != nil {
		f.Close()
		os.Remove(name)
		return "", &IOError{Op: "write", Path: name, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &IOError{Op: "close", Path: name, Err: err}
	}
	return name, nil
}

func writeCSV(w io.Writer, name string, header []string, cells [][]interface{}) error {
	var gz *gzip.Writer
	if _, ext := SplitExt(name); strings.HasSuffix(strings.ToLower(ext), ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range cells {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

// WriteEmptyProtocol writes EmptyProtocol(n) to a new timestamped CSV file
// derived from path and returns its name.
func WriteEmptyProtocol(path string, n int, ts time.Time) (string, error) {
	if n < 1 {
		return "", ErrNoData
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	f, name, err := createTimestamped(path, ts, "")
	if err != nil {
		return "", err
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(EmptyProtocol(n)); err != nil {
		f.Close()
		os.Remove(name)
		return "", &IOError{Op: "write", Path: name, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &IOError{Op: "close", Path: name, Err: err}
	}
	return name, nil
}
