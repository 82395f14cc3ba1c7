package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Volume represents one 3D image volume, e.g. a single frame of a dynamic
// PET acquisition or an ROI mask.
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	// (x fastest, then y, then z)
	Data []float64

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	// Affine maps voxel indices to physical coordinates (4x4)
	Affine *mat.Dense
}

// NewVolume allocates a zero-filled volume with unit voxels and an
// identity affine.
func NewVolume(width, height, depth int) *Volume {
	v := &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.SetVoxelSize(1, 1, 1)
	return v
}

// SetVoxelSize sets the voxel size and rebuilds the affine from it.
func (v *Volume) SetVoxelSize(x, y, z float64) {
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = x, y, z
	v.Affine = mat.NewDense(4, 4, []float64{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	})
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return v.Width * v.Height * v.Depth
}

// Index returns the position of voxel (x, y, z) in Data.
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the value of voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a value at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[v.Index(x, y, z)] = val
}

// SameShape reports whether two volumes have the same grid dimensions.
func (v *Volume) SameShape(o *Volume) bool {
	return v.Width == o.Width && v.Height == o.Height && v.Depth == o.Depth
}

// Check verifies that Data matches the dimensions.
func (v *Volume) Check() error {
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("invalid volume dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Len() {
		return fmt.Errorf("volume has %d values, expected %d", len(v.Data), v.Len())
	}
	return nil
}

// FromSlices builds a volume from 2D slices given as [z][y][x].
func FromSlices(slices [][][]float64) (*Volume, error) {
	if len(slices) == 0 || len(slices[0]) == 0 || len(slices[0][0]) == 0 {
		return nil, fmt.Errorf("empty volume")
	}
	v := NewVolume(len(slices[0][0]), len(slices[0]), len(slices))
	for z, plane := range slices {
		if len(plane) != v.Height {
			return nil, fmt.Errorf("slice %d has %d rows, expected %d", z, len(plane), v.Height)
		}
		for y, row := range plane {
			if len(row) != v.Width {
				return nil, fmt.Errorf("slice %d row %d has %d values, expected %d", z, y, len(row), v.Width)
			}
			copy(v.Data[v.Index(0, y, z):], row)
		}
	}
	return v, nil
}
