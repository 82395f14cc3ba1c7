package frametime

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func dataset(t *testing.T, values map[tag.Tag][]string) dicom.Dataset {
	t.Helper()
	var ds dicom.Dataset
	for tg, v := range values {
		elem, err := dicom.NewElement(tg, v)
		if err != nil {
			t.Fatalf("Failed to build element %v: %v", tg, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}
	return ds
}

func TestParseDICOMTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"000000", 0},
		{"093000", 34200000},
		{"093000.5", 34200500},
		{"09:30:15", 34215000},
		{"0930", 34200000},
	}
	for _, tt := range tests {
		got, err := parseDICOMTime(tt.in)
		if err != nil {
			t.Fatalf("parseDICOMTime(%q): %v", tt.in, err)
		}
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("parseDICOMTime(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := parseDICOMTime("x"); err == nil {
		t.Error("Expected error for a bad time")
	}
}

func TestHeaderFrameFromAcquisitionTime(t *testing.T) {
	ds := dataset(t, map[tag.Tag][]string{
		tagTemporalPositionIdentifier: {"3"},
		tagActualFrameDuration:        {"30000"},
		tagSeriesTime:                 {"093000"},
		tagAcquisitionTime:            {"093100"},
	})
	hf, err := headerFrame(ds)
	if err != nil {
		t.Fatal(err)
	}
	if hf.Index != 3 || hf.DurationMS != 30000 || hf.StartMS != 60000 {
		t.Errorf("Unexpected header frame %+v", hf)
	}
}

func TestHeaderFrameFromReferenceTime(t *testing.T) {
	ds := dataset(t, map[tag.Tag][]string{
		tagTemporalPositionIdentifier: {"1"},
		tagActualFrameDuration:        {"10000"},
		tagFrameReferenceTime:         {"5000"},
	})
	hf, err := headerFrame(ds)
	if err != nil {
		t.Fatal(err)
	}
	if hf.StartMS != 0 {
		t.Errorf("Expected start 0, got %v", hf.StartMS)
	}

	ds = dataset(t, map[tag.Tag][]string{
		tagActualFrameDuration: {"10000"},
	})
	if _, err := headerFrame(ds); !errors.Is(err, errMissingTag) {
		t.Errorf("Expected missing attribute, got %v", err)
	}
}

func TestFromDICOMMissingFile(t *testing.T) {
	_, err := FromDICOM([]string{filepath.Join(t.TempDir(), "none.dcm")}, quiet())
	if !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}
