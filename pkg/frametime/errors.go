package frametime

import (
	"errors"
	"fmt"
)

// Sentinel errors. Frame defects are reported as *FrameError values that
// match one of the first five sentinels through errors.Is.
var (
	ErrNonConsecutive = errors.New("non-consecutive frame numbers")
	ErrNegativeFrame  = errors.New("frame number must be positive")
	ErrOverlap        = errors.New("overlapping frames")
	ErrMalformed      = errors.New("malformed frame")
	ErrUnaligned      = errors.New("unaligned frame")

	ErrNoData      = errors.New("frame table is empty")
	ErrUnknownUnit = errors.New("time unit is unknown")
	ErrNoBoundary  = errors.New("time is not a frame boundary")
	ErrIO          = errors.New("i/o failure")
)

// Defect names what is wrong with a frame.
type Defect int

const (
	DefectNonConsecutive Defect = iota + 1
	DefectNegativeFrame
	DefectOverlap
	DefectMalformed
	DefectUnaligned
)

var defectErrors = map[Defect]error{
	DefectNonConsecutive: ErrNonConsecutive,
	DefectNegativeFrame:  ErrNegativeFrame,
	DefectOverlap:        ErrOverlap,
	DefectMalformed:      ErrMalformed,
	DefectUnaligned:      ErrUnaligned,
}

func (d Defect) String() string {
	if err, ok := defectErrors[d]; ok {
		return err.Error()
	}
	return "unknown defect"
}

// FrameError reports a single defective frame found during validation.
type FrameError struct {
	Defect Defect

	// Position is the index of the row in the validated sequence
	Position int

	// Row is a copy of the offending row
	Row []float64

	Detail string
}

func (e *FrameError) Error() string {
	msg := fmt.Sprintf("frame %d %v: %s", e.Position, e.Row, e.Defect)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap exposes the sentinel for the defect kind.
func (e *FrameError) Unwrap() error {
	return defectErrors[e.Defect]
}

func newFrameError(d Defect, pos int, row []float64, format string, args ...interface{}) *FrameError {
	r := make([]float64, len(row))
	copy(r, row)
	return &FrameError{
		Defect:   d,
		Position: pos,
		Row:      r,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// DataError ties a validation failure to the input that produced it.
type DataError struct {
	// Source is a file path, "array", or a list of files
	Source string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid frame data from %s: %v", e.Source, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// IOError reports a file that could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is makes every IOError match ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
