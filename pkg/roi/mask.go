// Package roi applies region-of-interest masks to PET volumes and extracts
// the voxel values and statistics inside them.
//
// Callers pass masks in the keep sense: a voxel whose mask value is at least
// the threshold (1 by default) is kept. Internally masks are held in the
// is-masked sense, where true hides the voxel.
package roi

import (
	"math"
)

// DefaultThreshold is the mask value from which a voxel is kept.
const DefaultThreshold = 1.0

// MaskToIsMasked converts a keep mask into the is-masked sense: a voxel is
// masked when its mask value is below threshold or is NaN.
func MaskToIsMasked(mask []float64, threshold float64) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = math.IsNaN(m) || m < threshold
	}
	return out
}

// ToBoolean converts a numeric mask to booleans: true where the value is
// above threshold.
func ToBoolean(mask []float64, threshold float64) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = m > threshold
	}
	return out
}

// ToBinary converts a boolean mask to 0/1 values.
func ToBinary(mask []bool) []float64 {
	out := make([]float64, len(mask))
	for i, m := range mask {
		if m {
			out[i] = 1
		}
	}
	return out
}

// Invert returns the complement of a boolean mask.
func Invert(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = !m
	}
	return out
}
