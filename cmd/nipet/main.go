package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nipet/internal/models"
	"nipet/pkg/config"
	"nipet/pkg/frametime"
	"nipet/pkg/roi"
	"nipet/pkg/tac"
	"nipet/pkg/visualization"
	"nipet/pkg/volume"
)

func main() {
	configPath := flag.String("config", "nipet.yaml", "Configuration file (defaults are used if it does not exist)")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	framesPath := flag.String("frames", "", "Frame timing table (.csv, .txt, .csv.gz or .xlsx)")
	dicomDir := flag.String("dicom", "", "Directory of DICOM PET images to read frame timing from")
	units := flag.String("units", "", "Time unit of the frame table: sec or min (default: guess)")
	reconcile := flag.Bool("reconcile", false, "Fill missing frame numbers with placeholders instead of failing")
	output := flag.String("output", "", "Write the frame table to this file (a timestamp is added to the name)")
	outUnits := flag.String("output-units", "", "Time unit of the written frame table (default: as read)")
	legacy := flag.Bool("legacy", false, "Write the four-column frame layout")
	protocol := flag.Int("protocol", 0, "Write an empty protocol sheet with this many frames to -output and exit")
	series := flag.String("series", "", "Directory holding one sub-directory of slices per frame")
	maskDir := flag.String("mask", "", "Directory holding the ROI mask slices")
	tacPath := flag.String("tac", "", "Write the time-activity curve to this CSV file (default: stdout)")
	previewDir := flag.String("preview", "", "Save z slices of the first frame with the ROI overlaid to this directory")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to create config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *reconcile {
		cfg.Frames.Gaps = frametime.GapsReconcile.String()
	}
	if *legacy {
		cfg.Output.Legacy = true
	}

	if *protocol > 0 {
		if *output == "" {
			log.Fatal("-protocol needs -output")
		}
		name, err := frametime.WriteEmptyProtocol(*output, *protocol, time.Now())
		if err != nil {
			log.Fatalf("Failed to write protocol: %v", err)
		}
		fmt.Printf("Empty protocol with %d frames saved to: %s\n", *protocol, name)
		return
	}

	if *framesPath == "" && *dicomDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	unit, err := frametime.ParseUnit(*units)
	if err != nil {
		log.Fatal(err)
	}
	outUnit, err := frametime.ParseUnit(*outUnits)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("================================")
	fmt.Println("NIPET FRAME TIMING AND ROI EXTRACTION")
	fmt.Println("================================")

	startTime := time.Now()
	table, err := loadTable(*framesPath, *dicomDir, unit, cfg)
	if err != nil {
		log.Fatalf("Failed to read frame timing: %v", err)
	}

	fmt.Printf("Frame table: %s\n", table.Source())
	fmt.Printf("- %d frames, times in %s\n", table.Len(), table.Units())
	if missing := table.Missing(); len(missing) > 0 {
		fmt.Printf("- missing frames: %v\n", missing)
	}
	if cfg.Output.Verbose {
		mids, err := table.Midtimes(table.Units())
		if err == nil {
			for _, m := range mids {
				fmt.Printf("  frame %3d  mid %10.3f %s\n", m.Frame, m.Time, table.Units())
			}
		}
	}

	if *output != "" {
		name, err := writeTable(table, *output, outUnit, cfg)
		if err != nil {
			log.Fatalf("Failed to write frame table: %v", err)
		}
		fmt.Printf("Frame table saved to: %s\n", name)
	}

	if *series != "" {
		if *maskDir == "" {
			log.Fatal("-series needs -mask")
		}
		if err := writeCurve(table, *series, *maskDir, *tacPath, *previewDir, outUnit, cfg); err != nil {
			log.Fatalf("Failed to extract time-activity curve: %v", err)
		}
	}

	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
}

// loadTable reads the frame table from a delimited file, a spreadsheet or a
// directory of DICOM images.
func loadTable(framesPath, dicomDir string, unit frametime.Unit, cfg *config.Config) (*frametime.Table, error) {
	opts := cfg.FrameOptions()
	if dicomDir != "" {
		paths, err := dicomFiles(dicomDir)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Reading %d DICOM files from %s...\n", len(paths), dicomDir)
		return frametime.FromDICOM(paths, opts)
	}

	if strings.EqualFold(filepath.Ext(framesPath), ".xlsx") {
		return frametime.FromExcel(framesPath, unit, opts)
	}
	return frametime.FromCSV(framesPath, unit, opts)
}

func dicomFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files found in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func writeTable(table *frametime.Table, output string, unit frametime.Unit, cfg *config.Config) (string, error) {
	opts := frametime.ExportOptions{
		Unit:            unit,
		Legacy:          cfg.Output.Legacy,
		Timestamp:       time.Now(),
		TimestampLayout: cfg.Frames.TimestampLayout,
	}
	_, ext := frametime.SplitExt(output)
	if strings.EqualFold(ext, ".xlsx") || (ext == "" && cfg.Output.Format == "xlsx") {
		return table.ToExcel(output, opts)
	}
	return table.ToCSV(output, opts)
}

// writeCurve loads one volume per frame plus the mask and writes the ROI
// time-activity curve.
func writeCurve(table *frametime.Table, seriesDir, maskDir, tacPath, previewDir string, unit frametime.Unit, cfg *config.Config) error {
	entries, err := os.ReadDir(seriesDir)
	if err != nil {
		return err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(seriesDir, e.Name()))
		}
	}
	volume.SortNumbered(dirs)

	fmt.Printf("Loading %d frame volumes from %s...\n", len(dirs), seriesDir)
	frames, err := volume.LoadSeries(dirs, cfg.VoxelSize())
	if err != nil {
		return err
	}
	mask, err := volume.LoadMask(maskDir)
	if err != nil {
		return fmt.Errorf("failed to load mask: %w", err)
	}

	masker := cfg.Masker()
	if previewDir != "" && len(frames) > 0 {
		if err := savePreview(frames[0], mask, masker, previewDir); err != nil {
			log.Printf("Warning: Failed to save ROI preview: %v", err)
		} else {
			fmt.Printf("ROI preview saved to: %s\n", previewDir)
		}
	}

	if unit == frametime.Unknown {
		unit = table.Units()
	}
	points, err := tac.Extract(table, frames, mask, masker, unit)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if tacPath != "" {
		f, err := os.Create(tacPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := tac.WriteCSV(w, points); err != nil {
		return err
	}
	if tacPath != "" {
		fmt.Printf("Time-activity curve saved to: %s\n", tacPath)
	}
	return nil
}

// savePreview renders the z slices of frame with the voxels kept by mask tinted.
func savePreview(frame, mask *models.Volume, masker *roi.Masker, dir string) error {
	arr, err := masker.MaskArray(frame, mask)
	if err != nil {
		return err
	}
	viewer := visualization.NewViewer(frame)
	if err := viewer.SetMask(arr.Masked, 0.4); err != nil {
		return err
	}
	return viewer.SaveSliceSequence("z", dir)
}
