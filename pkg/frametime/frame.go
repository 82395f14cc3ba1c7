// Package frametime manages the frame timing table of a dynamic PET acquisition.
//
// A Table holds one row per acquisition frame (frame number, start time,
// duration, stop time) in a single time unit. Tables are built by one of the
// import constructors (FromArray, FromCSV, FromExcel, FromAcquisitions,
// FromDICOM), are validated on import and afterwards answer the timing queries
// used by kinetic modeling and ROI time-series extraction.
package frametime

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// Column positions of the canonical raw frame row.
const (
	ColNumber = iota
	ColStart
	ColDuration
	ColStop

	// NumCols is the number of fields in a canonical frame row.
	NumCols
)

// DefaultEpsilon is the tolerance used when comparing frame times.
const DefaultEpsilon = 1e-4

// DefaultSecondsThreshold is the last stop time at or above which a table of
// unknown unit is assumed to be in seconds.
const DefaultSecondsThreshold = 1000.0

// Unit is the time unit of a frame table.
type Unit int

const (
	Unknown Unit = iota
	Seconds
	Minutes
)

func (u Unit) String() string {
	switch u {
	case Seconds:
		return "sec"
	case Minutes:
		return "min"
	default:
		return "unknown"
	}
}

// ParseUnit accepts the usual spellings of seconds and minutes.
// An empty string maps to Unknown so that callers can request unit guessing.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unknown, nil
	case "s", "sec", "secs", "second", "seconds":
		return Seconds, nil
	case "m", "min", "mins", "minute", "minutes":
		return Minutes, nil
	}
	return Unknown, fmt.Errorf("unknown time unit %q", s)
}

// factor returns the multiplier converting times from u to target.
func (u Unit) factor(target Unit) (float64, error) {
	if u == Unknown || target == Unknown {
		return 0, ErrUnknownUnit
	}
	switch {
	case u == target:
		return 1, nil
	case u == Minutes && target == Seconds:
		return 60, nil
	default:
		return 1 / 60.0, nil
	}
}

// Frame is one acquisition frame.
type Frame struct {
	// Number is the expected (logical) frame number, starting at 1
	Number int

	// FileNumber is the frame number inside the physical file it was read from
	FileNumber int

	Start    float64
	Duration float64
	Stop     float64

	// Source names the physical file the frame came from, if known
	Source string
}

// Midtime returns the centre of the frame.
func (f Frame) Midtime() float64 {
	return f.Start + f.Duration/2
}

// Row returns the frame in canonical column order.
func (f Frame) Row() []float64 {
	return []float64{float64(f.Number), f.Start, f.Duration, f.Stop}
}

// Midtime pairs a frame number with the centre time of that frame.
type Midtime struct {
	Frame int
	Time  float64
}

// OverlapPolicy decides how a frame start is compared with the previous stop.
type OverlapPolicy int

const (
	// OverlapStrict rejects any start earlier than the previous stop.
	OverlapStrict OverlapPolicy = iota
	// OverlapTolerant allows a start up to epsilon before the previous stop.
	OverlapTolerant
	// OverlapContiguous requires every start to equal the previous stop within epsilon.
	OverlapContiguous
)

var overlapNames = map[OverlapPolicy]string{
	OverlapStrict:     "strict",
	OverlapTolerant:   "tolerant",
	OverlapContiguous: "contiguous",
}

func (p OverlapPolicy) String() string {
	if n, ok := overlapNames[p]; ok {
		return n
	}
	return "unknown"
}

// ParseOverlapPolicy maps a configuration name to an OverlapPolicy.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return OverlapStrict, nil
	}
	for p, n := range overlapNames {
		if n == name {
			return p, nil
		}
	}
	return OverlapStrict, fmt.Errorf("unknown overlap policy %q", s)
}

// GapPolicy decides what happens to missing frame numbers on import.
type GapPolicy int

const (
	// GapsReject fails validation on any gap in frame numbering.
	GapsReject GapPolicy = iota
	// GapsReconcile fills gaps with explicit placeholder rows before validation.
	GapsReconcile
)

func (p GapPolicy) String() string {
	if p == GapsReconcile {
		return "reconcile"
	}
	return "reject"
}

// ParseGapPolicy maps a configuration name to a GapPolicy.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject", "strict":
		return GapsReject, nil
	case "reconcile":
		return GapsReconcile, nil
	}
	return GapsReject, fmt.Errorf("unknown gap policy %q", s)
}

// Options control validation and the normalization heuristics.
// The zero value is usable and selects the defaults.
type Options struct {
	// Epsilon is the tolerance for time comparisons (default DefaultEpsilon)
	Epsilon float64

	Overlap OverlapPolicy
	Gaps    GapPolicy

	// SecondsThreshold drives unit guessing (default DefaultSecondsThreshold)
	SecondsThreshold float64

	// Logger receives notices about heuristic corrections; nil uses log.Default()
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 || math.IsNaN(o.Epsilon) {
		o.Epsilon = DefaultEpsilon
	}
	if o.SecondsThreshold <= 0 || math.IsNaN(o.SecondsThreshold) {
		o.SecondsThreshold = DefaultSecondsThreshold
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}
