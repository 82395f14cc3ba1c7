// Package config provides configuration loading and management for nipet.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nipet/pkg/frametime"
	"nipet/pkg/roi"
	"nipet/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Frame timing parameters
	Frames struct {
		// Epsilon is the tolerance used when comparing frame times
		Epsilon float64 `yaml:"epsilon"`

		// Overlap is the overlap policy: strict, tolerant or contiguous
		Overlap string `yaml:"overlap"`

		// Gaps is the gap policy: reject or reconcile
		Gaps string `yaml:"gaps"`

		// SecondsThreshold is the last stop time from which an unlabelled table is taken to be in seconds
		SecondsThreshold float64 `yaml:"secondsThreshold"`

		// TimestampLayout is the time layout appended to exported file names
		TimestampLayout string `yaml:"timestampLayout"`
	} `yaml:"frames"`

	// ROI masking parameters
	ROI struct {
		// FillValue replaces masked voxels
		FillValue float64 `yaml:"fillValue"`

		// Threshold is the mask value from which a voxel is kept; masks are read
		// at their native gray levels
		Threshold float64 `yaml:"threshold"`
	} `yaml:"roi"`

	// Volume parameters
	Volume struct {
		// VoxelSize is the physical voxel size in mm (x, y, z)
		VoxelSize []float64 `yaml:"voxelSize"`
	} `yaml:"volume"`

	// Output parameters
	Output struct {
		// Format is the frame table output format: csv or xlsx
		Format string `yaml:"format"`

		// Legacy writes the four-column frame layout instead of the reconciled one
		Legacy bool `yaml:"legacy"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Frames.Epsilon = frametime.DefaultEpsilon
	cfg.Frames.Overlap = frametime.OverlapStrict.String()
	cfg.Frames.Gaps = frametime.GapsReject.String()
	cfg.Frames.SecondsThreshold = frametime.DefaultSecondsThreshold
	cfg.Frames.TimestampLayout = frametime.DefaultTimestampLayout

	cfg.ROI.FillValue = 0
	cfg.ROI.Threshold = roi.DefaultThreshold

	cfg.Volume.VoxelSize = []float64{1, 1, 1}

	cfg.Output.Format = "csv"
	cfg.Output.Legacy = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that every enumerated setting names a known value
func (c *Config) Validate() error {
	if _, err := frametime.ParseOverlapPolicy(c.Frames.Overlap); err != nil {
		return err
	}
	if _, err := frametime.ParseGapPolicy(c.Frames.Gaps); err != nil {
		return err
	}
	if c.Frames.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative, got %v", c.Frames.Epsilon)
	}
	if len(c.Volume.VoxelSize) != 0 && len(c.Volume.VoxelSize) != 3 {
		return fmt.Errorf("voxelSize needs 3 values, got %d", len(c.Volume.VoxelSize))
	}
	switch c.Output.Format {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// FrameOptions converts the frame section into table options. Heuristic
// corrections are logged only when output is verbose.
func (c *Config) FrameOptions() frametime.Options {
	overlap, _ := frametime.ParseOverlapPolicy(c.Frames.Overlap)
	gaps, _ := frametime.ParseGapPolicy(c.Frames.Gaps)
	opts := frametime.Options{
		Epsilon:          c.Frames.Epsilon,
		Overlap:          overlap,
		Gaps:             gaps,
		SecondsThreshold: c.Frames.SecondsThreshold,
	}
	if !c.Output.Verbose {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return opts
}

// Masker builds an ROI masker from the roi section.
func (c *Config) Masker() *roi.Masker {
	m := roi.NewMasker()
	m.FillValue = c.ROI.FillValue
	m.Threshold = c.ROI.Threshold
	return m
}

// VoxelSize returns the configured voxel size, or the zero size when unset.
func (c *Config) VoxelSize() volume.VoxelSize {
	if len(c.Volume.VoxelSize) != 3 {
		return volume.VoxelSize{}
	}
	return volume.VoxelSize{X: c.Volume.VoxelSize[0], Y: c.Volume.VoxelSize[1], Z: c.Volume.VoxelSize[2]}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
