package volume

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"nipet/internal/models"
)

// NearestNeighbor resamples a volume onto another grid by nearest-neighbour
// lookup: in-plane with x/image/draw, along z by index. It suits binary and
// probabilistic masks, whose values lie in [0,1]; values are quantized to
// 16 bits on the way.
type NearestNeighbor struct{}

// Resample returns src on the grid of target. The result carries the voxel
// size and affine of target.
func (NearestNeighbor) Resample(src, target *models.Volume) (*models.Volume, error) {
	if err := src.Check(); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := target.Check(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	out := models.NewVolume(target.Width, target.Height, target.Depth)
	out.SetVoxelSize(target.VoxelSize.X, target.VoxelSize.Y, target.VoxelSize.Z)

	dst := image.NewGray16(image.Rect(0, 0, target.Width, target.Height))
	for z := 0; z < target.Depth; z++ {
		// nearest source slice for the centre of target slice z
		sz := (2*z + 1) * src.Depth / (2 * target.Depth)
		plane := src.Data[src.Index(0, 0, sz):src.Index(0, 0, sz+1)]
		img := floatToImage(plane, src.Width, src.Height)

		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		copy(out.Data[out.Index(0, 0, z):], imageToFloat(dst))
	}
	return out, nil
}
