package roi

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MaskedArray pairs data with an is-masked flag per value.
type MaskedArray struct {
	Data      []float64
	Masked    []bool
	FillValue float64
}

// Filled returns a copy of Data with masked values replaced by FillValue.
func (a *MaskedArray) Filled() []float64 {
	out := make([]float64, len(a.Data))
	for i, v := range a.Data {
		if a.Masked[i] {
			out[i] = a.FillValue
		} else {
			out[i] = v
		}
	}
	return out
}

// Compressed returns the unmasked values in order.
func (a *MaskedArray) Compressed() []float64 {
	out := make([]float64, 0, a.Count())
	for i, v := range a.Data {
		if !a.Masked[i] {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of unmasked values.
func (a *MaskedArray) Count() int {
	n := 0
	for _, m := range a.Masked {
		if !m {
			n++
		}
	}
	return n
}

// Stats holds the mean and population standard deviation of ROI values.
type Stats struct {
	Mean  float64
	Std   float64
	Count int
}

// MeanStd computes mean and population standard deviation. An empty
// vector gives NaN for both.
func MeanStd(values []float64) Stats {
	if len(values) == 0 {
		return Stats{Mean: math.NaN(), Std: math.NaN()}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return Stats{Mean: mean, Std: std, Count: len(values)}
}
