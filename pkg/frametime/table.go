package frametime

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// Table is the frame timing table of one acquisition.
//
// A Table is owned by a single caller and is not safe for concurrent use.
// Once imported it changes only through DeleteFrame and Convert.
type Table struct {
	frames []Frame
	unit   Unit
	opts   Options

	// reconciled tables tolerate gaps in numbering; the gaps are treated as
	// explicit placeholder frames when validating and exporting
	reconciled bool

	source string
}

// New returns an empty table.
func New(opts Options) *Table {
	return &Table{opts: opts.withDefaults()}
}

// FromArray builds a table from raw rows of [frame_number, start, A, B].
// Rows with missing values are dropped, A and B are put into
// (duration, stop) order, and Unknown units are guessed before validation.
func FromArray(rows [][]float64, unit Unit, opts Options) (*Table, error) {
	return fromRows(rows, unit, opts, "array")
}

// FromMatrix is FromArray for a gonum matrix with one frame per row.
func FromMatrix(m mat.Matrix, unit Unit, opts Options) (*Table, error) {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return fromRows(rows, unit, opts, "matrix")
}

// fromRows turns raw canonical rows into a validated table.
func fromRows(rows [][]float64, unit Unit, opts Options, source string) (*Table, error) {
	recs := make([]record, len(rows))
	for i, row := range rows {
		recs[i] = record{row: row, file: math.NaN()}
	}
	return fromRecords(recs, unit, opts, source, false)
}

// populate installs frames into an empty table and validates them.
func (t *Table) populate(frames []Frame, unit Unit, source string, reconciled bool) (*Table, error) {
	if len(frames) == 0 {
		return nil, &DataError{Source: source, Err: ErrNoData}
	}
	t.frames = frames
	t.unit = unit
	t.source = source
	t.reconciled = reconciled
	if err := t.Validate(); err != nil {
		return nil, &DataError{Source: source, Err: err}
	}
	return t, nil
}

// rowsToFrames converts canonical rows to frames. Rows must have exactly
// NumCols fields and an integral frame number; everything else is left to
// the validator.
func rowsToFrames(rows [][]float64) ([]Frame, error) {
	frames := make([]Frame, 0, len(rows))
	for i, row := range rows {
		if len(row) != NumCols {
			return nil, newFrameError(DefectMalformed, i, row, "expected %d fields, got %d", NumCols, len(row))
		}
		if !isInteger(row[ColNumber]) {
			return nil, newFrameError(DefectMalformed, i, row, "frame number is not an integer")
		}
		frames = append(frames, Frame{
			Number:   int(row[ColNumber]),
			Start:    row[ColStart],
			Duration: row[ColDuration],
			Stop:     row[ColStop],
		})
	}
	return frames, nil
}

// Validate checks the table against the frame invariants. Reconciled tables
// are validated in their placeholder-expanded form.
func (t *Table) Validate() error {
	if !t.reconciled {
		return ValidateFrames(t.frames, t.opts)
	}
	rows := make([][]float64, 0, len(t.frames))
	for _, r := range t.Reconciled() {
		rows = append(rows, r.Row())
	}
	return ValidateRows(rows, t.opts)
}

// Units returns the unit the times are stored in.
func (t *Table) Units() Unit { return t.unit }

// IsEmpty reports whether the table has no frames.
func (t *Table) IsEmpty() bool { return len(t.frames) == 0 }

// Len returns the number of frames.
func (t *Table) Len() int { return len(t.frames) }

// Source names the input the table was imported from.
func (t *Table) Source() string { return t.source }

// IsReconciled reports whether gaps in numbering are tolerated as missing frames.
func (t *Table) IsReconciled() bool { return t.reconciled }

// Frames returns a copy of the frames.
func (t *Table) Frames() []Frame {
	out := make([]Frame, len(t.frames))
	copy(out, t.frames)
	return out
}

// Frame returns the frame at position i.
func (t *Table) Frame(i int) (Frame, error) {
	if i < 0 || i >= len(t.frames) {
		return Frame{}, fmt.Errorf("frame position %d out of range [0,%d)", i, len(t.frames))
	}
	return t.frames[i], nil
}

// Data returns the stored times as an n x 4 matrix in canonical column order.
// It returns nil for an empty table.
func (t *Table) Data() *mat.Dense {
	if len(t.frames) == 0 {
		return nil
	}
	data := make([]float64, 0, len(t.frames)*NumCols)
	for _, f := range t.frames {
		data = append(data, f.Row()...)
	}
	return mat.NewDense(len(t.frames), NumCols, data)
}

// GetData returns the table as an n x 4 matrix with times in unit.
func (t *Table) GetData(unit Unit) (*mat.Dense, error) {
	c, err := t.convertTo(unit)
	if err != nil {
		return nil, err
	}
	return c.Data(), nil
}

// ToSeconds returns a copy of the table with times in seconds.
func (t *Table) ToSeconds() (*Table, error) { return t.convertTo(Seconds) }

// ToMinutes returns a copy of the table with times in minutes.
func (t *Table) ToMinutes() (*Table, error) { return t.convertTo(Minutes) }

// Convert changes the stored unit, rescaling every time in place.
func (t *Table) Convert(unit Unit) error {
	c, err := t.convertTo(unit)
	if err != nil {
		return err
	}
	t.frames, t.unit = c.frames, c.unit
	return nil
}

func (t *Table) convertTo(unit Unit) (*Table, error) {
	if len(t.frames) == 0 {
		return nil, ErrNoData
	}
	f, err := t.unit.factor(unit)
	if err != nil {
		return nil, err
	}
	c := *t
	c.frames = t.Frames()
	c.unit = unit
	if f == 1 {
		return &c, nil
	}
	for i := range c.frames {
		times := []float64{c.frames[i].Start, c.frames[i].Duration, c.frames[i].Stop}
		floats.Scale(f, times)
		c.frames[i].Start, c.frames[i].Duration, c.frames[i].Stop = times[0], times[1], times[2]
	}
	return &c, nil
}

// column extracts one time column in unit.
func (t *Table) column(unit Unit, get func(Frame) float64) ([]float64, error) {
	c, err := t.convertTo(unit)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(c.frames))
	for i, f := range c.frames {
		out[i] = get(f)
	}
	return out, nil
}

// StartTimes returns the frame start times in unit.
func (t *Table) StartTimes(unit Unit) ([]float64, error) {
	return t.column(unit, func(f Frame) float64 { return f.Start })
}

// StopTimes returns the frame stop times in unit.
func (t *Table) StopTimes(unit Unit) ([]float64, error) {
	return t.column(unit, func(f Frame) float64 { return f.Stop })
}

// Durations returns the frame durations in unit.
func (t *Table) Durations(unit Unit) ([]float64, error) {
	return t.column(unit, func(f Frame) float64 { return f.Duration })
}

// Midtimes returns the centre time of every frame in unit, keyed by frame number.
func (t *Table) Midtimes(unit Unit) ([]Midtime, error) {
	c, err := t.convertTo(unit)
	if err != nil {
		return nil, err
	}
	out := make([]Midtime, len(c.frames))
	for i, f := range c.frames {
		out[i] = Midtime{Frame: f.Number, Time: f.Midtime()}
	}
	return out, nil
}

// FramesSpanning returns the positions of the first and last frame of the
// range that starts exactly at start and stops exactly at stop (both in unit).
// Times that fall inside a frame are rejected with ErrNoBoundary.
func (t *Table) FramesSpanning(start, stop float64, unit Unit) (first, last int, err error) {
	starts, err := t.StartTimes(unit)
	if err != nil {
		return 0, 0, err
	}
	stops, err := t.StopTimes(unit)
	if err != nil {
		return 0, 0, err
	}
	first, last = -1, -1
	for i := range starts {
		if first < 0 && scalar.EqualWithinAbs(starts[i], start, t.opts.Epsilon) {
			first = i
		}
		if scalar.EqualWithinAbs(stops[i], stop, t.opts.Epsilon) {
			last = i
		}
	}
	switch {
	case first < 0:
		return 0, 0, fmt.Errorf("start %g %s: %w", start, unit, ErrNoBoundary)
	case last < 0:
		return 0, 0, fmt.Errorf("stop %g %s: %w", stop, unit, ErrNoBoundary)
	case last < first:
		return 0, 0, fmt.Errorf("stop %g precedes start %g: %w", stop, start, ErrNoBoundary)
	}
	return first, last, nil
}

// DeleteFrame removes the frame at position pos and returns it.
// Remaining frames keep their numbers and the table is not re-validated.
func (t *Table) DeleteFrame(pos int) (Frame, error) {
	f, err := t.Frame(pos)
	if err != nil {
		return Frame{}, err
	}
	t.frames = append(t.frames[:pos:pos], t.frames[pos+1:]...)
	return f, nil
}
