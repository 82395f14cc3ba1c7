// Package visualization renders volume slices with an ROI overlay, for
// checking that a mask sits where it should on a PET frame.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"nipet/internal/models"
)

// Overlay is the tint blended over kept voxels.
var Overlay = color.RGBA{R: 255, G: 64, B: 0, A: 255}

// Viewer extracts 2D slices from a volume, optionally tinting the voxels
// kept by an ROI mask.
type Viewer struct {
	vol *models.Volume

	// masked is in the is-masked sense; nil draws no overlay
	masked []bool

	// alpha is the overlay opacity in [0,1]
	alpha float64

	// scale maps voxel values to [0,1]
	scale float64
}

// NewViewer creates a viewer for vol. Values are scaled by the volume
// maximum so that activity images of any range are displayed.
func NewViewer(vol *models.Volume) *Viewer {
	v := &Viewer{vol: vol, alpha: 0.4, scale: 1}
	peak := 0.0
	for _, x := range vol.Data {
		if !math.IsNaN(x) && x > peak {
			peak = x
		}
	}
	if peak > 0 {
		v.scale = 1 / peak
	}
	return v
}

// SetMask sets the overlay from an is-masked vector, e.g. MaskedArray.Masked.
func (v *Viewer) SetMask(masked []bool, alpha float64) error {
	if len(masked) != v.vol.Len() {
		return fmt.Errorf("mask has %d voxels, volume has %d", len(masked), v.vol.Len())
	}
	v.masked = masked
	v.alpha = math.Max(0, math.Min(1, alpha))
	return nil
}

// planeSize returns the image size and slice count for an axis.
func (v *Viewer) planeSize(axis string) (w, h, n int, err error) {
	switch axis {
	case "x", "X":
		return v.vol.Depth, v.vol.Height, v.vol.Width, nil
	case "y", "Y":
		return v.vol.Width, v.vol.Depth, v.vol.Height, nil
	case "z", "Z":
		return v.vol.Width, v.vol.Height, v.vol.Depth, nil
	}
	return 0, 0, 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// voxel maps image coordinates (i, j) of slice pos along axis to a data index.
func (v *Viewer) voxel(axis string, pos, i, j int) int {
	switch axis {
	case "x", "X":
		return v.vol.Index(pos, j, i)
	case "y", "Y":
		return v.vol.Index(i, pos, j)
	default:
		return v.vol.Index(i, j, pos)
	}
}

// ExtractSlice renders slice pos along axis.
func (v *Viewer) ExtractSlice(axis string, pos int) (image.Image, error) {
	w, h, n, err := v.planeSize(axis)
	if err != nil {
		return nil, err
	}
	if pos < 0 || pos >= n {
		return nil, fmt.Errorf("position %d outside 0..%d along %s", pos, n-1, axis)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			idx := v.voxel(axis, pos, i, j)
			val := v.vol.Data[idx]
			if math.IsNaN(val) {
				val = 0
			}
			g := math.Max(0, math.Min(1, val*v.scale)) * 255
			c := color.RGBA{R: uint8(g), G: uint8(g), B: uint8(g), A: 255}
			if v.masked != nil && !v.masked[idx] {
				c = blend(c, Overlay, v.alpha)
			}
			img.SetRGBA(i, j, c)
		}
	}
	return img, nil
}

func blend(a, b color.RGBA, alpha float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-alpha) + float64(y)*alpha))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	_, _, n, err := v.planeSize(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
