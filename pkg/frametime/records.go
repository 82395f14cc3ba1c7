package frametime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Header names of the reconciled export layout.
var reconciledHeader = []string{"file_number", "expected_frame", "start_time", "duration", "stop_time", "notes"}

// Header names of the legacy four column layout.
var legacyHeader = []string{"frame_number", "start_time", "duration", "stop_time"}

// record is one imported line: the canonical row plus the physical file
// number and notes when the input carries them.
type record struct {
	row  []float64
	file float64
	note string
}

// layout tells where the canonical columns sit in an input line.
type layout struct {
	reconciled bool
	number     int
	start      int
	file       int
	notes      int
}

var (
	legacyLayout     = layout{number: 0, start: 1, file: -1, notes: -1}
	reconciledLayout = layout{reconciled: true, number: 1, start: 2, file: 0, notes: 5}
)

// detectLayout picks the layout from the header when present, otherwise
// from the width of the widest line.
func detectLayout(header []string, width int) layout {
	for _, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(name, "expected") || strings.Contains(name, "file") {
			return reconciledLayout
		}
	}
	if header == nil && width >= 5 {
		return reconciledLayout
	}
	return legacyLayout
}

// isHeader reports whether a line is a header: its first token is not a number.
func isHeader(fields []string) bool {
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		_, err := strconv.ParseFloat(f, 64)
		return err != nil
	}
	return false
}

// parseCell reads a numeric cell; blank cells are NaN.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseLines turns tokenized lines into records. The first line is treated
// as a header when its first token is not numeric.
func parseLines(lines [][]string) ([]record, layout, error) {
	var header []string
	if len(lines) > 0 && isHeader(lines[0]) {
		header, lines = lines[0], lines[1:]
	}
	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	lay := detectLayout(header, width)

	recs := make([]record, 0, len(lines))
	for i, l := range lines {
		rec, err := lay.parse(l)
		if err != nil {
			return nil, lay, fmt.Errorf("line %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, lay, nil
}

// parse reads one line. Lines that stop before the stop-time column are
// malformed; only lines at full width may mark a missing frame with blank
// or NaN times.
func (lay layout) parse(fields []string) (record, error) {
	rec := record{file: math.NaN()}
	if need := lay.start + 3; len(fields) < need {
		return rec, fmt.Errorf("expected %d fields, got %d", need, len(fields))
	}
	cell := func(i int) (float64, error) {
		if i < 0 || i >= len(fields) {
			return math.NaN(), nil
		}
		return parseCell(fields[i])
	}

	last := lay.start + 2
	if !lay.reconciled {
		// legacy lines keep every field so the validator can flag extra columns
		last = len(fields) - 1
		if last < lay.start+2 {
			last = lay.start + 2
		}
	}
	rec.row = make([]float64, 0, NumCols)
	for _, i := range append([]int{lay.number}, seq(lay.start, last)...) {
		v, err := cell(i)
		if err != nil {
			return rec, err
		}
		rec.row = append(rec.row, v)
	}

	if lay.file >= 0 {
		v, err := cell(lay.file)
		if err != nil {
			return rec, err
		}
		rec.file = v
	}
	if lay.notes >= 0 && lay.notes < len(fields) {
		rec.note = strings.TrimSpace(fields[lay.notes])
	}
	return rec, nil
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// fromRecords prunes, normalizes and validates imported records.
func fromRecords(recs []record, unit Unit, opts Options, source string, reconciled bool) (*Table, error) {
	t := New(opts)

	kept := make([]record, 0, len(recs))
	for _, r := range recs {
		if allFinite(r.row) {
			kept = append(kept, r)
		}
	}
	if dropped := len(recs) - len(kept); dropped > 0 {
		t.opts.Logger.Printf("frametime: %s: skipped %d row(s) marked missing", source, dropped)
	}

	rows := make([][]float64, len(kept))
	for i, r := range kept {
		rows[i] = r.row
	}
	rows, unit = normalize(rows, unit, t.opts)

	frames, err := rowsToFrames(rows)
	if err != nil {
		return nil, &DataError{Source: source, Err: err}
	}
	for i := range frames {
		frames[i].FileNumber = i + 1
		if f := kept[i].file; isInteger(f) {
			frames[i].FileNumber = int(f)
		}
		if note := kept[i].note; note != NoteMissing {
			frames[i].Source = note
		}
	}
	return t.populate(frames, unit, source, reconciled || t.opts.Gaps == GapsReconcile)
}
