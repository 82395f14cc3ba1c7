package roi

import (
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"nipet/internal/models"
	"nipet/pkg/volume"
)

func mustVolume(t *testing.T, slices [][][]float64) *models.Volume {
	t.Helper()
	v, err := models.FromSlices(slices)
	if err != nil {
		t.Fatalf("Failed to build volume: %v", err)
	}
	return v
}

func sampleData(t *testing.T) *models.Volume {
	return mustVolume(t, [][][]float64{
		{{0, 2, 3}, {4, 5, math.NaN()}},
		{{1, 3, 5}, {2, 4, 7}},
	})
}

func sampleMask(t *testing.T) *models.Volume {
	return mustVolume(t, [][][]float64{
		{{1, 0, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 1, 0}},
	})
}

func TestMaskToIsMasked(t *testing.T) {
	got := MaskToIsMasked([]float64{1, 0, 0.5, math.NaN(), 2}, DefaultThreshold)
	want := []bool{false, true, true, true, false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestBooleanBinaryInvert(t *testing.T) {
	b := ToBoolean([]float64{0, 0.2, 1}, 0)
	if !reflect.DeepEqual(b, []bool{false, true, true}) {
		t.Errorf("Unexpected boolean mask %v", b)
	}
	if got := ToBinary(b); !reflect.DeepEqual(got, []float64{0, 1, 1}) {
		t.Errorf("Unexpected binary mask %v", got)
	}
	if got := Invert(b); !reflect.DeepEqual(got, []bool{true, false, false}) {
		t.Errorf("Unexpected inverted mask %v", got)
	}
}

func TestMaskArray(t *testing.T) {
	data, mask := sampleData(t), sampleMask(t)

	arr, err := NewMasker().MaskArray(data, mask)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{
		false, true, false, true, false, true,
		true, true, true, false, false, true,
	}
	if !reflect.DeepEqual(arr.Masked, want) {
		t.Errorf("Expected mask %v, got %v", want, arr.Masked)
	}
	if arr.FillValue != 0 {
		t.Errorf("Expected fill value 0, got %v", arr.FillValue)
	}
	if arr.Count() != 5 {
		t.Errorf("Expected 5 kept voxels, got %d", arr.Count())
	}
}

func TestApplyMask(t *testing.T) {
	out, err := NewMasker().ApplyMask(sampleData(t), sampleMask(t))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0, 3, 0, 5, 0, 0, 0, 0, 2, 4, 0}
	if !reflect.DeepEqual(out.Data, want) {
		t.Errorf("Expected %v, got %v", want, out.Data)
	}

	m := NewMasker()
	m.FillValue = -1
	out, err = m.ApplyMask(sampleData(t), sampleMask(t))
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[1] != -1 || out.Data[5] != -1 || out.Data[2] != 3 {
		t.Errorf("Fill value not applied: %v", out.Data)
	}
}

func TestExtractValuesAndStats(t *testing.T) {
	m := NewMasker()
	values, err := m.ExtractValues(sampleData(t), sampleMask(t))
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{0, 3, 5, 2, 4}; !reflect.DeepEqual(values, want) {
		t.Errorf("Expected %v, got %v", want, values)
	}

	s, err := m.Stats(sampleData(t), sampleMask(t))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Mean-2.8) > 1e-12 {
		t.Errorf("Expected mean 2.8, got %v", s.Mean)
	}
	// population std of {0,3,5,2,4}
	if math.Abs(s.Std-math.Sqrt(2.96)) > 1e-12 {
		t.Errorf("Expected std %v, got %v", math.Sqrt(2.96), s.Std)
	}
}

func TestMeanStdEmpty(t *testing.T) {
	s := MeanStd(nil)
	if !math.IsNaN(s.Mean) || !math.IsNaN(s.Std) || s.Count != 0 {
		t.Errorf("Expected NaN stats, got %+v", s)
	}
}

func TestMaskResampled(t *testing.T) {
	data := mustVolume(t, [][][]float64{{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}})
	mask := mustVolume(t, [][][]float64{{{1, 0}}})

	values, err := NewMasker().ExtractValues(data, mask)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 2, 5, 6}; !reflect.DeepEqual(values, want) {
		t.Errorf("Expected %v, got %v", want, values)
	}

	m := &Masker{}
	if _, err := m.ExtractValues(data, mask); !errors.Is(err, ErrNoResampler) {
		t.Errorf("Expected ErrNoResampler, got %v", err)
	}
}

func TestFrameFromFiles(t *testing.T) {
	dir := t.TempDir()
	frame := mustVolume(t, [][][]float64{
		{{0.25, 0.5}, {0.75, 1}},
	})
	mask := mustVolume(t, [][][]float64{
		{{1, 0}, {0, 1}},
	})
	frameDir, maskDir := filepath.Join(dir, "frame"), filepath.Join(dir, "mask")
	if err := volume.Save(frame, frameDir, "f"); err != nil {
		t.Fatal(err)
	}
	if err := volume.Save(mask, maskDir, "m"); err != nil {
		t.Fatal(err)
	}

	m := NewMasker()
	filled, err := m.FrameData(frameDir, maskDir, volume.VoxelSize{})
	if err != nil {
		t.Fatal(err)
	}
	if filled.Data[1] != 0 || filled.Data[2] != 0 {
		t.Errorf("Expected masked voxels filled with 0, got %v", filled.Data)
	}

	s, err := m.FrameStats(frameDir, maskDir, volume.VoxelSize{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 2 || math.Abs(s.Mean-0.625) > 1e-4 {
		t.Errorf("Unexpected stats %+v", s)
	}

	if _, err := m.FrameValues(filepath.Join(dir, "none"), maskDir, volume.VoxelSize{}); err == nil {
		t.Error("Expected error for missing frame directory")
	}
}

// An 8-bit label mask stored as 0/1 must keep its labelled voxels.
func TestFrameStatsByteMask(t *testing.T) {
	dir := t.TempDir()
	frame := mustVolume(t, [][][]float64{
		{{0.25, 0.5}, {0.75, 1}},
	})
	frameDir, maskDir := filepath.Join(dir, "frame"), filepath.Join(dir, "mask")
	if err := volume.Save(frame, frameDir, "f"); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(maskDir, 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{1, 0, 0, 1})
	f, err := os.Create(filepath.Join(maskDir, "m_0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := NewMasker().FrameStats(frameDir, maskDir, volume.VoxelSize{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 2 || math.Abs(s.Mean-0.625) > 1e-4 {
		t.Errorf("Expected 2 kept voxels with mean 0.625, got %+v", s)
	}
}

func TestSeriesStats(t *testing.T) {
	mask := sampleMask(t)
	f1 := sampleData(t)
	f2 := mustVolume(t, [][][]float64{
		{{10, 0, 10}, {0, 10, 10}},
		{{0, 0, 0}, {10, 10, 0}},
	})
	stats, err := NewMasker().SeriesStats([]*models.Volume{f1, f2}, mask)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(stats))
	}
	if stats[1].Mean != 10 || stats[1].Std != 0 || stats[1].Count != 6 {
		t.Errorf("Unexpected stats for frame 2: %+v", stats[1])
	}

	bad := models.NewVolume(1, 1, 1)
	if _, err := NewMasker().SeriesStats([]*models.Volume{f1, bad}, mask); err == nil {
		t.Error("Expected error for frames of different shape")
	}
}
