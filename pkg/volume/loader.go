// Package volume loads and saves image volumes stored as directories of
// numbered 2D slice images, and resamples volumes onto another grid.
//
// It stands in for a full neuroimaging I/O library: PET frames and ROI masks
// are exchanged as stacks of grayscale TIFF, PNG or JPEG slices.
package volume

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"nipet/internal/models"
)

// VoxelSize is the physical size of a voxel in mm.
type VoxelSize struct {
	X, Y, Z float64
}

var sliceExts = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Load reads every slice image in dir into one volume. Slices are ordered by
// the number embedded in their file name and must all share the same size.
// Gray values are normalized to [0,1].
func Load(dir string, voxel VoxelSize) (*models.Volume, error) {
	return load(dir, voxel, imageToFloat)
}

// LoadMask reads an ROI mask like Load but keeps the gray levels of the
// images' own bit depth (0..255 for 8-bit, 0..65535 for 16-bit slices), so
// that label masks stored as 0/1 or 0/255 keep every labelled voxel at 1 or
// above.
func LoadMask(dir string) (*models.Volume, error) {
	return load(dir, VoxelSize{}, imageToLevels)
}

func load(dir string, voxel VoxelSize, convert func(image.Image) []float64) (*models.Volume, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if sliceExts[strings.ToLower(filepath.Ext(file.Name()))] {
			names = append(names, file.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	SortNumbered(names)

	var vol *models.Volume
	for z, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		b := img.Bounds()
		if vol == nil {
			vol = models.NewVolume(b.Dx(), b.Dy(), len(names))
		} else if b.Dx() != vol.Width || b.Dy() != vol.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d", name, b.Dx(), b.Dy(), vol.Width, vol.Height)
		}
		copy(vol.Data[vol.Index(0, 0, z):], convert(img))
	}

	if voxel.X > 0 && voxel.Y > 0 && voxel.Z > 0 {
		vol.SetVoxelSize(voxel.X, voxel.Y, voxel.Z)
	}
	return vol, nil
}

// LoadSeries loads one volume per directory, e.g. the frames of a dynamic
// acquisition, and checks that they share a grid.
func LoadSeries(dirs []string, voxel VoxelSize) ([]*models.Volume, error) {
	vols := make([]*models.Volume, 0, len(dirs))
	for _, dir := range dirs {
		v, err := Load(dir, voxel)
		if err != nil {
			return nil, err
		}
		if len(vols) > 0 && !v.SameShape(vols[0]) {
			return nil, fmt.Errorf("volume %s is %dx%dx%d, expected %dx%dx%d", dir,
				v.Width, v.Height, v.Depth, vols[0].Width, vols[0].Height, vols[0].Depth)
		}
		vols = append(vols, v)
	}
	return vols, nil
}

// SortNumbered orders paths by the number embedded in their base name rather
// than lexically, so that slice_10 follows slice_2.
func SortNumbered(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return extractNumber(paths[i]) < extractNumber(paths[j])
	})
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage decodes a slice image. TIFF is decoded directly so that 16-bit
// slices keep their precision.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tif" || ext == ".tiff" {
		return tiff.Decode(file)
	}
	img, _, err := image.Decode(file)
	return img, err
}

// imageToFloat converts an image to gray values in [0,1], row by row.
func imageToFloat(img image.Image) []float64 {
	bounds := img.Bounds()
	out := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			out = append(out, float64(g.Y)/65535.0)
		}
	}
	return out
}

// imageToLevels returns raw gray levels, row by row. Colour images are
// reduced to 8-bit gray.
func imageToLevels(img image.Image) []float64 {
	bounds := img.Bounds()
	out := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			switch im := img.(type) {
			case *image.Gray:
				out = append(out, float64(im.GrayAt(x, y).Y))
			case *image.Gray16:
				out = append(out, float64(im.Gray16At(x, y).Y))
			default:
				g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				out = append(out, float64(g.Y))
			}
		}
	}
	return out
}
