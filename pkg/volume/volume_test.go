package volume

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"nipet/internal/models"
)

// createTestVolume creates a volume whose value encodes the voxel position
func createTestVolume(width, height, depth int) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	n := float64(width * height * depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(x, y, z, float64(vol.Index(x, y, z))/n)
			}
		}
	}
	return vol
}

// TestSaveLoadRoundTrip verifies that saved TIFF slices load back unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vol := createTestVolume(6, 4, 3)

	if err := Save(vol, dir, "frame"); err != nil {
		t.Fatalf("Failed to save volume: %v", err)
	}

	loaded, err := Load(dir, VoxelSize{X: 2, Y: 2, Z: 3.5})
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	if !loaded.SameShape(vol) {
		t.Fatalf("Expected %dx%dx%d, got %dx%dx%d", vol.Width, vol.Height, vol.Depth,
			loaded.Width, loaded.Height, loaded.Depth)
	}
	for i := range vol.Data {
		if math.Abs(loaded.Data[i]-vol.Data[i]) > 1.0/65535 {
			t.Fatalf("Voxel %d: expected %f, got %f", i, vol.Data[i], loaded.Data[i])
		}
	}
	if loaded.VoxelSize.Z != 3.5 || loaded.Affine.At(2, 2) != 3.5 {
		t.Errorf("Expected voxel size z 3.5 in affine, got %v", loaded.Affine.At(2, 2))
	}
}

// TestLoadOrdersByNumber verifies numeric rather than lexical slice order
func TestLoadOrdersByNumber(t *testing.T) {
	dir := t.TempDir()
	for _, s := range []struct {
		name  string
		value uint8
	}{{"slice_10.png", 200}, {"slice_2.png", 100}, {"slice_1.png", 0}} {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		for i := range img.Pix {
			img.Pix[i] = s.value
		}
		f, err := os.Create(filepath.Join(dir, s.name))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	vol, err := Load(dir, VoxelSize{})
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	want := []float64{0, 100.0 / 255, 200.0 / 255}
	for z, w := range want {
		if math.Abs(vol.At(0, 0, z)-w) > 1e-3 {
			t.Errorf("Slice %d: expected %f, got %f", z, w, vol.At(0, 0, z))
		}
	}
}

// TestLoadMaskKeepsLevels verifies 8-bit label masks keep their 0/1 values
// instead of being scaled to 1/255
func TestLoadMaskKeepsLevels(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{1, 0, 0, 255})
	f, err := os.Create(filepath.Join(dir, "mask_1.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	mask, err := LoadMask(dir)
	if err != nil {
		t.Fatalf("Failed to load mask: %v", err)
	}
	want := []float64{1, 0, 0, 255}
	for i, w := range want {
		if mask.Data[i] != w {
			t.Errorf("Voxel %d: expected %v, got %v", i, w, mask.Data[i])
		}
	}

	vol, err := Load(dir, VoxelSize{})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(vol.Data[0]-1.0/255) > 1e-6 {
		t.Errorf("Expected Load to normalize to %v, got %v", 1.0/255, vol.Data[0])
	}
}

// TestLoadErrors verifies empty directories and mismatched slices are rejected
func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, VoxelSize{}); err == nil {
		t.Error("Expected error for a directory without slices")
	}

	for i, size := range []int{2, 3} {
		img := image.NewGray16(image.Rect(0, 0, size, size))
		img.SetGray16(0, 0, color.Gray16{Y: 1})
		if err := saveTIFF(img, filepath.Join(dir, []string{"a_1.tif", "a_2.tif"}[i])); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := Load(dir, VoxelSize{}); err == nil {
		t.Error("Expected error for slices of different size")
	}
}

// TestLoadSeries verifies that every frame directory becomes one volume
func TestLoadSeries(t *testing.T) {
	root := t.TempDir()
	var dirs []string
	for _, name := range []string{"f1", "f2"} {
		dir := filepath.Join(root, name)
		if err := Save(createTestVolume(3, 3, 2), dir, "s"); err != nil {
			t.Fatal(err)
		}
		dirs = append(dirs, dir)
	}
	vols, err := LoadSeries(dirs, VoxelSize{})
	if err != nil {
		t.Fatalf("Failed to load series: %v", err)
	}
	if len(vols) != 2 {
		t.Errorf("Expected 2 volumes, got %d", len(vols))
	}
}

// TestNearestNeighborResample verifies upsampling a binary mask
func TestNearestNeighborResample(t *testing.T) {
	mask := models.NewVolume(2, 2, 1)
	mask.Set(0, 0, 0, 1)
	mask.Set(1, 1, 0, 1)

	target := models.NewVolume(4, 4, 2)
	target.SetVoxelSize(0.5, 0.5, 0.5)

	out, err := NearestNeighbor{}.Resample(mask, target)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if !out.SameShape(target) {
		t.Fatalf("Expected target shape, got %dx%dx%d", out.Width, out.Height, out.Depth)
	}
	for z := 0; z < 2; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				want := mask.At(x/2, y/2, 0)
				if got := out.At(x, y, z); got != want {
					t.Errorf("Voxel (%d,%d,%d): expected %v, got %v", x, y, z, want, got)
				}
			}
		}
	}
	if out.VoxelSize.X != 0.5 {
		t.Errorf("Expected target voxel size, got %v", out.VoxelSize.X)
	}
}
