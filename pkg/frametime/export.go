package frametime

import (
	"math"
	"strconv"
	"time"
)

// ExportOptions control how a table is written out.
type ExportOptions struct {
	// Unit of the written times; Unknown keeps the stored unit
	Unit Unit

	// Legacy writes the four column layout without placeholders
	Legacy bool

	// Timestamp is embedded in the file name; zero means time.Now()
	Timestamp time.Time

	// TimestampLayout formats Timestamp (default DefaultTimestampLayout)
	TimestampLayout string
}

func (o ExportOptions) timestamp() time.Time {
	if o.Timestamp.IsZero() {
		return time.Now()
	}
	return o.Timestamp
}

// exportCells builds the header and the cells to write. Cells hold int,
// float64 or string values; NaN floats stand for blank cells.
func (t *Table) exportCells(opts ExportOptions) ([]string, [][]interface{}, error) {
	if t.IsEmpty() {
		return nil, nil, ErrNoData
	}
	if t.unit == Unknown {
		return nil, nil, ErrUnknownUnit
	}
	unit := opts.Unit
	if unit == Unknown {
		unit = t.unit
	}
	c, err := t.convertTo(unit)
	if err != nil {
		return nil, nil, err
	}

	if opts.Legacy {
		cells := make([][]interface{}, len(c.frames))
		for i, f := range c.frames {
			cells[i] = []interface{}{f.Number, f.Start, f.Duration, f.Stop}
		}
		return legacyHeader, cells, nil
	}

	rows := c.Reconciled()
	cells := make([][]interface{}, len(rows))
	for i, r := range rows {
		if r.Placeholder {
			nan := math.NaN()
			cells[i] = []interface{}{nan, r.Expected, nan, nan, nan, r.Notes}
			continue
		}
		cells[i] = []interface{}{r.FileNumber, r.Expected, r.Start, r.Duration, r.Stop, r.Notes}
	}
	return reconciledHeader, cells, nil
}

// formatCell renders a cell for delimited text.
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return ""
}

// EmptyProtocol returns a blank reconciled sheet for n frames: the header
// followed by rows that carry only the file and expected frame numbers.
// It is meant to be filled in by hand and imported afterwards.
func EmptyProtocol(n int) [][]string {
	out := make([][]string, 0, n+1)
	out = append(out, append([]string(nil), reconciledHeader...))
	for i := 1; i <= n; i++ {
		num := strconv.Itoa(i)
		out = append(out, []string{num, num, "", "", "", ""})
	}
	return out
}
