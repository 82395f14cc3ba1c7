package frametime

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NoteMissing is the notes value written for placeholder rows.
const NoteMissing = "missing"

// Row is one line of the reconciled frame table: an expected frame together
// with the physical file frame it was read from. Placeholder rows stand for
// expected frames that no file supplied.
type Row struct {
	Expected    int
	FileNumber  int
	Start       float64
	Duration    float64
	Stop        float64
	Notes       string
	Placeholder bool
}

// Row returns the canonical row [expected, start, duration, stop]; the times
// of a placeholder are NaN.
func (r Row) Row() []float64 {
	if r.Placeholder {
		nan := math.NaN()
		return []float64{float64(r.Expected), nan, nan, nan}
	}
	return []float64{float64(r.Expected), r.Start, r.Duration, r.Stop}
}

// Reconciled returns the frames indexed by expected frame number starting
// at 1, with a placeholder row for every expected frame that has no data.
func (t *Table) Reconciled() []Row {
	rows := make([]Row, 0, len(t.frames))
	expected := 1
	for _, f := range t.frames {
		for ; expected < f.Number; expected++ {
			rows = append(rows, Row{Expected: expected, Notes: NoteMissing, Placeholder: true})
		}
		rows = append(rows, Row{
			Expected:   f.Number,
			FileNumber: f.FileNumber,
			Start:      f.Start,
			Duration:   f.Duration,
			Stop:       f.Stop,
			Notes:      f.Source,
		})
		if f.Number >= expected {
			expected = f.Number + 1
		}
	}
	return rows
}

// Missing returns the expected frame numbers that have no data.
func (t *Table) Missing() []int {
	var missing []int
	for _, r := range t.Reconciled() {
		if r.Placeholder {
			missing = append(missing, r.Expected)
		}
	}
	return missing
}

// HeaderFrame is the timing of one physical frame as recorded in a scanner
// file header. Times are in milliseconds.
type HeaderFrame struct {
	// Index is the 1-based frame number inside the file
	Index      int
	StartMS    float64
	DurationMS float64
}

// Acquisition is the list of frames found in one physical file.
type Acquisition struct {
	Source string
	Frames []HeaderFrame
}

// FromAcquisitions merges the frame headers of several physical files into
// one reconciled table in seconds.
//
// Files are taken in the given order and an expected frame counter runs
// across them: a frame with file index i in a file that starts after
// expected frame e becomes expected frame e+i. Gaps in the file indices
// therefore show up as missing expected frames.
func FromAcquisitions(acqs []Acquisition, opts Options) (*Table, error) {
	t := New(opts)
	source := acquisitionsSource(acqs)

	var frames []Frame
	expected := 0
	for _, acq := range acqs {
		hfs := make([]HeaderFrame, len(acq.Frames))
		copy(hfs, acq.Frames)
		sort.SliceStable(hfs, func(i, j int) bool { return hfs[i].Index < hfs[j].Index })

		offset := expected
		for _, hf := range hfs {
			if hf.Index < 1 {
				return nil, &DataError{Source: acq.Source, Err: fmt.Errorf("frame index %d: %w", hf.Index, ErrNegativeFrame)}
			}
			n := offset + hf.Index
			if n <= expected {
				return nil, &DataError{Source: acq.Source, Err: fmt.Errorf("duplicate frame index %d: %w", hf.Index, ErrNonConsecutive)}
			}
			start := hf.StartMS / 1000
			duration := hf.DurationMS / 1000
			frames = append(frames, Frame{
				Number:     n,
				FileNumber: hf.Index,
				Start:      start,
				Duration:   duration,
				Stop:       start + duration,
				Source:     acq.Source,
			})
			expected = n
		}
	}
	return t.populate(frames, Seconds, source, true)
}

func acquisitionsSource(acqs []Acquisition) string {
	names := make([]string, 0, len(acqs))
	for _, a := range acqs {
		names = append(names, a.Source)
	}
	if len(names) == 1 {
		return names[0]
	}
	return "[" + strings.Join(names, ", ") + "]"
}
