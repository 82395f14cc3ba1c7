package frametime

import (
	"io"
	"log"
	"math"
	"reflect"
	"testing"
)

// quiet returns options whose heuristics log to nowhere
func quiet() Options {
	return Options{Logger: log.New(io.Discard, "", 0)}
}

func TestCorrectDataOrder(t *testing.T) {
	good := [][]float64{
		{1, 0, 15, 15},
		{2, 15, 15, 30},
	}
	bad := [][]float64{
		{1, 0, 15, 15},
		{2, 15, 30, 15},
	}

	if got := CorrectDataOrder(good); !reflect.DeepEqual(got, good) {
		t.Errorf("Expected correct table unchanged, got %v", got)
	}
	if got := CorrectDataOrder(bad); !reflect.DeepEqual(got, good) {
		t.Errorf("Expected %v, got %v", good, got)
	}

	// the input must not be modified
	if bad[1][2] != 30 || bad[1][3] != 15 {
		t.Errorf("CorrectDataOrder modified its input: %v", bad)
	}
}

func TestCorrectDataOrderSwapsEveryRow(t *testing.T) {
	in := [][]float64{
		{1, 0, 10, 10},
		{2, 10, 20, 10},
		{3, 20, 30, 10},
	}
	want := [][]float64{
		{1, 0, 10, 10},
		{2, 10, 10, 20},
		{3, 20, 10, 30},
	}
	if got := CorrectDataOrder(in); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPruneNonFinite(t *testing.T) {
	nan := math.NaN()
	in := [][]float64{
		{1, 0, 15, 15},
		{2, nan, nan, nan},
		{3, 30, 15, math.Inf(1)},
		{4, 45, 15, 60},
	}
	got := PruneNonFinite(in)
	want := [][]float64{
		{1, 0, 15, 15},
		{4, 45, 15, 60},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestGuessUnits(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want Unit
	}{
		{"seconds", [][]float64{{1, 0, 3600, 3600}, {2, 3600, 3600, 7200}}, Seconds},
		{"minutes", [][]float64{{1, 0, 36, 36}, {2, 36, 36, 72}}, Minutes},
		{"threshold is inclusive", [][]float64{{1, 0, 1000, 1000}}, Seconds},
		{"empty", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessUnits(tt.rows, 0); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{
		"sec": Seconds, "Seconds": Seconds, "s": Seconds,
		"min": Minutes, " minutes ": Minutes,
		"": Unknown,
	} {
		got, err := ParseUnit(in)
		if err != nil {
			t.Errorf("ParseUnit(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseUnit(%q): expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseUnit("hours"); err == nil {
		t.Error("Expected error for unsupported unit")
	}
}
