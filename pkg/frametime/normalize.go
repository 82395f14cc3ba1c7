package frametime

import (
	"math"
)

// CorrectDataOrder returns a copy of rows with the duration and stop columns
// in canonical order.
//
// Input files sometimes carry the last two columns transposed. For any real
// acquisition the stop time of the last frame is at least as large as its
// duration, so when the last row has stop < duration the two columns are
// swapped for every row. Only the last row is inspected, so a table whose
// rows disagree about the column order is not repaired row by row.
func CorrectDataOrder(rows [][]float64) [][]float64 {
	out := copyRows(rows)
	if !needsReorder(out) {
		return out
	}
	for _, row := range out {
		if len(row) >= NumCols {
			row[ColDuration], row[ColStop] = row[ColStop], row[ColDuration]
		}
	}
	return out
}

// needsReorder reports whether CorrectDataOrder would swap columns.
func needsReorder(rows [][]float64) bool {
	if len(rows) == 0 {
		return false
	}
	last := rows[len(rows)-1]
	return len(last) >= NumCols && last[ColStop] < last[ColDuration]
}

// PruneNonFinite returns the rows that contain only finite values.
// Rows holding NaN or Inf mark frames that are known to be missing.
func PruneNonFinite(rows [][]float64) [][]float64 {
	out := make([][]float64, 0, len(rows))
	for _, row := range rows {
		if allFinite(row) {
			r := make([]float64, len(row))
			copy(r, row)
			out = append(out, r)
		}
	}
	return out
}

// GuessUnits guesses the unit of a table from the stop time of its last row:
// Seconds when it is at or above threshold, Minutes otherwise.
// A non-positive threshold selects DefaultSecondsThreshold.
func GuessUnits(rows [][]float64, threshold float64) Unit {
	if threshold <= 0 {
		threshold = DefaultSecondsThreshold
	}
	if len(rows) == 0 {
		return Unknown
	}
	last := rows[len(rows)-1]
	if len(last) < NumCols || math.IsNaN(last[ColStop]) {
		return Unknown
	}
	if last[ColStop] >= threshold {
		return Seconds
	}
	return Minutes
}

// normalize runs pruning, column correction and unit guessing in that order.
func normalize(rows [][]float64, unit Unit, opts Options) ([][]float64, Unit) {
	pruned := PruneNonFinite(rows)
	if dropped := len(rows) - len(pruned); dropped > 0 {
		opts.Logger.Printf("frametime: dropped %d row(s) with missing values", dropped)
	}
	if needsReorder(pruned) {
		opts.Logger.Printf("frametime: duration and stop columns look swapped, reordering")
		pruned = CorrectDataOrder(pruned)
	}
	if unit == Unknown {
		unit = GuessUnits(pruned, opts.SecondsThreshold)
		if unit != Unknown {
			opts.Logger.Printf("frametime: no unit given, guessed %s", unit)
		}
	}
	return pruned, unit
}

func allFinite(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
