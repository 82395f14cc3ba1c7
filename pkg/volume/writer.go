package volume

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"nipet/internal/models"
)

// Save writes every z slice of vol as a 16-bit grayscale TIFF named
// <prefix>_<z>.tif in dir. Values are clamped to [0,1].
func Save(vol *models.Volume, dir, prefix string) error {
	if err := vol.Check(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for z := 0; z < vol.Depth; z++ {
		img := floatToImage(vol.Data[vol.Index(0, 0, z):vol.Index(0, 0, z+1)], vol.Width, vol.Height)
		name := filepath.Join(dir, fmt.Sprintf("%s_%04d.tif", prefix, z+1))
		if err := saveTIFF(img, name); err != nil {
			return fmt.Errorf("failed to save slice %d: %w", z, err)
		}
	}
	return nil
}

func saveTIFF(img image.Image, name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// floatToImage converts row-major values in [0,1] to a 16-bit gray image.
// NaN becomes black.
func floatToImage(data []float64, width, height int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := data[y*width+x]
			if math.IsNaN(v) {
				v = 0
			}
			value := uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}
