package frametime

import (
	"errors"
	"reflect"
	"testing"
)

func TestFromAcquisitionsSingleFile(t *testing.T) {
	acqs := []Acquisition{{
		Source: "fdg_2frames",
		Frames: []HeaderFrame{
			{Index: 1, StartMS: 0, DurationMS: 300000},
			{Index: 2, StartMS: 300000, DurationMS: 300000},
		},
	}}
	tab, err := FromAcquisitions(acqs, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if tab.Units() != Seconds {
		t.Errorf("Expected sec, got %s", tab.Units())
	}
	want := [][]float64{{1, 0, 300, 300}, {2, 300, 300, 600}}
	if got := framesToRows(tab.Frames()); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFromAcquisitionsMultiFile(t *testing.T) {
	first := Acquisition{Source: "part1", Frames: []HeaderFrame{
		{Index: 1, StartMS: 0, DurationMS: 300000},
		{Index: 2, StartMS: 300000, DurationMS: 300000},
		{Index: 3, StartMS: 600000, DurationMS: 300000},
		{Index: 4, StartMS: 900000, DurationMS: 300000},
	}}
	second := Acquisition{Source: "part2", Frames: []HeaderFrame{
		{Index: 2, StartMS: 1500000, DurationMS: 300000},
		{Index: 1, StartMS: 1200000, DurationMS: 300000},
	}}

	tab, err := FromAcquisitions([]Acquisition{first, second}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 6 {
		t.Fatalf("Expected 6 frames, got %d", tab.Len())
	}
	frames := tab.Frames()
	for i, f := range frames {
		if f.Number != i+1 {
			t.Errorf("Frame %d: expected number %d, got %d", i, i+1, f.Number)
		}
	}
	if frames[5].FileNumber != 2 || frames[5].Source != "part2" {
		t.Errorf("Expected last frame from part2 file frame 2, got %+v", frames[5])
	}
	if frames[5].Stop != 1800 {
		t.Errorf("Expected stop 1800, got %g", frames[5].Stop)
	}
	if tab.Source() != "[part1, part2]" {
		t.Errorf("Unexpected source %q", tab.Source())
	}
}

func TestFromAcquisitionsMissingFrame(t *testing.T) {
	acq := Acquisition{Source: "scan", Frames: []HeaderFrame{
		{Index: 1, StartMS: 0, DurationMS: 15000},
		{Index: 2, StartMS: 15000, DurationMS: 15000},
		{Index: 4, StartMS: 45000, DurationMS: 15000},
		{Index: 5, StartMS: 60000, DurationMS: 30000},
	}}
	tab, err := FromAcquisitions([]Acquisition{acq}, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if got := tab.Missing(); !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("Expected missing [3], got %v", got)
	}
	if err := tab.Validate(); err != nil {
		t.Errorf("Reconciled table should validate: %v", err)
	}
}

func TestFromAcquisitionsOverlap(t *testing.T) {
	acqs := []Acquisition{
		{Source: "a", Frames: []HeaderFrame{{Index: 1, StartMS: 0, DurationMS: 60000}}},
		{Source: "b", Frames: []HeaderFrame{{Index: 1, StartMS: 0, DurationMS: 60000}}},
	}
	_, err := FromAcquisitions(acqs, quiet())
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DataError, got %v", err)
	}
	if de.Source != "[a, b]" {
		t.Errorf("Expected provenance of both files, got %q", de.Source)
	}
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected ErrOverlap, got %v", err)
	}
}

func TestFromAcquisitionsDuplicateIndex(t *testing.T) {
	acqs := []Acquisition{{Source: "a", Frames: []HeaderFrame{
		{Index: 1, StartMS: 0, DurationMS: 1000},
		{Index: 1, StartMS: 1000, DurationMS: 1000},
	}}}
	if _, err := FromAcquisitions(acqs, quiet()); !errors.Is(err, ErrNonConsecutive) {
		t.Errorf("Expected ErrNonConsecutive, got %v", err)
	}
}

func TestEmptyProtocol(t *testing.T) {
	p := EmptyProtocol(4)
	if len(p) != 5 || len(p[0]) != 6 {
		t.Fatalf("Expected 5x6 protocol, got %dx%d", len(p), len(p[0]))
	}
	if !reflect.DeepEqual(p[0], reconciledHeader) {
		t.Errorf("Unexpected header %v", p[0])
	}
	if !reflect.DeepEqual(p[2], []string{"2", "2", "", "", "", ""}) {
		t.Errorf("Unexpected row %v", p[2])
	}
	if !reflect.DeepEqual(p[4], []string{"4", "4", "", "", "", ""}) {
		t.Errorf("Unexpected row %v", p[4])
	}
}
