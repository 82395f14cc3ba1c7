package roi

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"nipet/internal/models"
	"nipet/pkg/volume"
)

// ErrNoResampler is returned when data and mask grids differ and the masker
// has no resampler.
var ErrNoResampler = errors.New("mask and data grids differ and no resampler is set")

// Resampler puts a mask onto the grid of a data volume.
type Resampler interface {
	Resample(src, target *models.Volume) (*models.Volume, error)
}

// Masker applies keep masks to volumes.
type Masker struct {
	// Resampler is used when a mask does not share the data grid
	Resampler Resampler

	// FillValue replaces masked voxels in ApplyMask
	FillValue float64

	// Threshold is the mask value from which a voxel is kept;
	// zero or negative means DefaultThreshold. Mask values are compared as
	// stored, so masks loaded with volume.Load (scaled to [0,1]) need a
	// threshold in that range.
	Threshold float64
}

// NewMasker returns a masker with nearest-neighbour resampling, fill value 0
// and the default threshold.
func NewMasker() *Masker {
	return &Masker{
		Resampler: volume.NearestNeighbor{},
		Threshold: DefaultThreshold,
	}
}

func (m *Masker) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

// Align returns mask on the grid of data, resampling when needed.
func (m *Masker) Align(data, mask *models.Volume) (*models.Volume, error) {
	if err := data.Check(); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if err := mask.Check(); err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if data.SameShape(mask) {
		return mask, nil
	}
	if m.Resampler == nil {
		return nil, ErrNoResampler
	}
	out, err := m.Resampler.Resample(mask, data)
	if err != nil {
		return nil, fmt.Errorf("failed to resample mask: %w", err)
	}
	return out, nil
}

// MaskArray returns data with the mask applied. NaN voxels in data are
// always masked.
func (m *Masker) MaskArray(data, mask *models.Volume) (*MaskedArray, error) {
	aligned, err := m.Align(data, mask)
	if err != nil {
		return nil, err
	}
	masked := MaskToIsMasked(aligned.Data, m.threshold())
	for i, v := range data.Data {
		if math.IsNaN(v) {
			masked[i] = true
		}
	}
	return &MaskedArray{Data: data.Data, Masked: masked, FillValue: m.FillValue}, nil
}

// ApplyMask returns a copy of data with masked voxels set to FillValue.
func (m *Masker) ApplyMask(data, mask *models.Volume) (*models.Volume, error) {
	arr, err := m.MaskArray(data, mask)
	if err != nil {
		return nil, err
	}
	out := &models.Volume{
		Data:      arr.Filled(),
		Width:     data.Width,
		Height:    data.Height,
		Depth:     data.Depth,
		VoxelSize: data.VoxelSize,
	}
	if data.Affine != nil {
		out.Affine = mat.DenseCopyOf(data.Affine)
	}
	return out, nil
}

// ExtractValues returns the kept voxel values in storage order.
func (m *Masker) ExtractValues(data, mask *models.Volume) ([]float64, error) {
	arr, err := m.MaskArray(data, mask)
	if err != nil {
		return nil, err
	}
	return arr.Compressed(), nil
}

// Stats returns mean and standard deviation of the kept voxels.
func (m *Masker) Stats(data, mask *models.Volume) (Stats, error) {
	values, err := m.ExtractValues(data, mask)
	if err != nil {
		return Stats{}, err
	}
	return MeanStd(values), nil
}

// FrameData loads a frame and a mask from slice directories and applies the
// mask. Masks are read with volume.LoadMask, so any non-zero gray level
// reaches the default threshold.
func (m *Masker) FrameData(frameDir, maskDir string, voxel volume.VoxelSize) (*models.Volume, error) {
	data, mask, err := loadPair(frameDir, maskDir, voxel)
	if err != nil {
		return nil, err
	}
	return m.ApplyMask(data, mask)
}

// FrameValues loads a frame and a mask and returns the kept values.
func (m *Masker) FrameValues(frameDir, maskDir string, voxel volume.VoxelSize) ([]float64, error) {
	data, mask, err := loadPair(frameDir, maskDir, voxel)
	if err != nil {
		return nil, err
	}
	return m.ExtractValues(data, mask)
}

// FrameStats loads a frame and a mask and returns ROI statistics.
func (m *Masker) FrameStats(frameDir, maskDir string, voxel volume.VoxelSize) (Stats, error) {
	values, err := m.FrameValues(frameDir, maskDir, voxel)
	if err != nil {
		return Stats{}, err
	}
	return MeanStd(values), nil
}

// SeriesStats returns ROI statistics for every frame of a dynamic series.
// The mask is aligned once against the first frame.
func (m *Masker) SeriesStats(frames []*models.Volume, mask *models.Volume) ([]Stats, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	aligned, err := m.Align(frames[0], mask)
	if err != nil {
		return nil, err
	}
	out := make([]Stats, len(frames))
	for i, f := range frames {
		if !f.SameShape(frames[0]) {
			return nil, fmt.Errorf("frame %d is %dx%dx%d, expected %dx%dx%d", i,
				f.Width, f.Height, f.Depth, frames[0].Width, frames[0].Height, frames[0].Depth)
		}
		s, err := m.Stats(f, aligned)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func loadPair(frameDir, maskDir string, voxel volume.VoxelSize) (*models.Volume, *models.Volume, error) {
	data, err := volume.Load(frameDir, voxel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load frame: %w", err)
	}
	mask, err := volume.LoadMask(maskDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load mask: %w", err)
	}
	return data, mask, nil
}
