package frametime

import (
	"math"
)

// validation is the running state of the validator fold.
type validation struct {
	opts     Options
	started  bool
	expected int
	prevStop float64
}

// ValidateRows checks a sequence of raw frame rows against the table
// invariants and returns the first defect found as a *FrameError.
//
// Checks run per row in this order: consecutive numbering, positive number,
// no overlap with the previous frame, well-formed row, aligned times. A row of
// the form [n, NaN, NaN, NaN] is a placeholder for a missing frame: it takes
// part in the numbering checks only. The rows are never modified.
func ValidateRows(rows [][]float64, opts Options) error {
	v := validation{opts: opts.withDefaults()}
	for i, row := range rows {
		if err := v.step(i, row); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFrames validates frames as a strict consecutive sequence.
func ValidateFrames(frames []Frame, opts Options) error {
	return ValidateRows(framesToRows(frames), opts)
}

func (v *validation) step(pos int, row []float64) error {
	if len(row) == 0 || !isInteger(row[ColNumber]) {
		return newFrameError(DefectMalformed, pos, row, "frame number is not an integer")
	}
	n := int(row[ColNumber])

	if v.started && n != v.expected {
		return newFrameError(DefectNonConsecutive, pos, row, "expected frame %d, got %d", v.expected, n)
	}
	if n < 1 {
		return newFrameError(DefectNegativeFrame, pos, row, "got %d", n)
	}

	if isPlaceholder(row) {
		v.started = true
		v.expected = n + 1
		return nil
	}

	if v.started && len(row) > ColStart && !math.IsNaN(row[ColStart]) {
		if err := v.checkOverlap(pos, row); err != nil {
			return err
		}
	}

	if len(row) != NumCols {
		return newFrameError(DefectMalformed, pos, row, "expected %d fields, got %d", NumCols, len(row))
	}
	if !allFinite(row) {
		return newFrameError(DefectMalformed, pos, row, "non-finite value")
	}
	if row[ColStart] < 0 {
		return newFrameError(DefectMalformed, pos, row, "negative start time")
	}
	if row[ColDuration] <= 0 {
		return newFrameError(DefectMalformed, pos, row, "duration must be positive")
	}

	if !aligned(row, v.opts.Epsilon) {
		return newFrameError(DefectUnaligned, pos, row, "duration %g but stop - start = %g",
			row[ColDuration], row[ColStop]-row[ColStart])
	}

	v.started = true
	v.expected = n + 1
	v.prevStop = row[ColStop]
	return nil
}

func (v *validation) checkOverlap(pos int, row []float64) error {
	start := row[ColStart]
	eps := v.opts.Epsilon
	switch v.opts.Overlap {
	case OverlapTolerant:
		if start < v.prevStop-eps {
			return newFrameError(DefectOverlap, pos, row, "starts at %g before previous stop %g", start, v.prevStop)
		}
	case OverlapContiguous:
		if math.Abs(start-v.prevStop) > eps {
			return newFrameError(DefectOverlap, pos, row, "starts at %g, previous stop %g", start, v.prevStop)
		}
	default:
		if start < v.prevStop {
			return newFrameError(DefectOverlap, pos, row, "starts at %g before previous stop %g", start, v.prevStop)
		}
	}
	return nil
}

// CheckFrame reports whether a single row is well formed (finite, integral
// number, non-negative start, positive duration) and its duration matches
// stop - start within eps.
func CheckFrame(row []float64, eps float64) bool {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	if len(row) != NumCols || !allFinite(row) || !isInteger(row[ColNumber]) {
		return false
	}
	if row[ColStart] < 0 || row[ColDuration] <= 0 {
		return false
	}
	return aligned(row, eps)
}

func aligned(row []float64, eps float64) bool {
	return math.Abs(row[ColDuration]-(row[ColStop]-row[ColStart])) <= eps
}

func isPlaceholder(row []float64) bool {
	if len(row) != NumCols {
		return false
	}
	for _, v := range row[ColStart:] {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func isInteger(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v)
}

func framesToRows(frames []Frame) [][]float64 {
	rows := make([][]float64, len(frames))
	for i, f := range frames {
		rows[i] = f.Row()
	}
	return rows
}
