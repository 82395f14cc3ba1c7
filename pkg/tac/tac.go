// Package tac builds time-activity curves: the ROI mean of every frame of a
// dynamic acquisition paired with the frame mid-time.
package tac

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"nipet/internal/models"
	"nipet/pkg/frametime"
	"nipet/pkg/roi"
)

// Point is one sample of a time-activity curve.
type Point struct {
	Frame int
	Mid   float64
	Mean  float64
	Std   float64
	Count int
}

// Extract computes one point per frame. frames must hold one volume per
// table frame, in table order. Times are reported in unit.
func Extract(table *frametime.Table, frames []*models.Volume, mask *models.Volume, masker *roi.Masker, unit frametime.Unit) ([]Point, error) {
	if table == nil || table.IsEmpty() {
		return nil, frametime.ErrNoData
	}
	if len(frames) != table.Len() {
		return nil, fmt.Errorf("got %d volumes for %d frames", len(frames), table.Len())
	}
	if masker == nil {
		masker = roi.NewMasker()
	}

	mids, err := table.Midtimes(unit)
	if err != nil {
		return nil, err
	}
	stats, err := masker.SeriesStats(frames, mask)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(mids))
	for i, m := range mids {
		points[i] = Point{
			Frame: m.Frame,
			Mid:   m.Time,
			Mean:  stats[i].Mean,
			Std:   stats[i].Std,
			Count: stats[i].Count,
		}
	}
	return points, nil
}

var header = []string{"frame", "mid_time", "mean", "std", "voxels"}

// WriteCSV writes points with a header row.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			strconv.Itoa(p.Frame),
			strconv.FormatFloat(p.Mid, 'g', -1, 64),
			strconv.FormatFloat(p.Mean, 'g', -1, 64),
			strconv.FormatFloat(p.Std, 'g', -1, 64),
			strconv.Itoa(p.Count),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
