// Package config loads the ingester's tuning file.
//
// Every field is optional: the JSON file only needs to name the values it
// overrides, and the Get* accessors supply defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/trips.ingest/internal/features"
	"github.com/banshee-data/trips.ingest/internal/segment"
	"github.com/banshee-data/trips.ingest/internal/validate"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/ingest.defaults.json"

// DefaultInputFolders are scanned when neither the config nor the command
// line names a folder.
var DefaultInputFolders = []string{"data", "datasets", "sample_data", "test_data", "uploads", "."}

// DefaultExtensions are the file types discovery picks up.
var DefaultExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".xls", ".fit"}

// DefaultEncodings are tried in order when decoding text files.
var DefaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}

// Region is the bounding box for generated coordinates.
type Region struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Config is the root of the tuning file.
type Config struct {
	// Discovery and reading
	InputFolders []string `json:"input_folders,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	Encodings    []string `json:"encodings,omitempty"`
	MinColumns   *int     `json:"min_columns,omitempty"`

	// Segmentation
	MinSegmentRows           *int     `json:"min_segment_rows,omitempty"`
	TimestampGap             *string  `json:"timestamp_gap,omitempty"` // duration string like "30m"
	StopSpeedKmph            *float64 `json:"stop_speed_kmph,omitempty"`
	StopMinPoints            *int     `json:"stop_min_points,omitempty"`
	DistanceResetToleranceKm *float64 `json:"distance_reset_tolerance_km,omitempty"`

	// Features
	BrakeDropKmph  *float64 `json:"brake_drop_kmph,omitempty"`
	SampleInterval *string  `json:"sample_interval,omitempty"` // duration string like "1s"
	Region         *Region  `json:"region,omitempty"`
	MaxPathPoints  *int     `json:"max_path_points,omitempty"`

	// Validation
	MinDurationMin *float64 `json:"min_duration_min,omitempty"`
	MaxDurationMin *float64 `json:"max_duration_min,omitempty"`
	MinDistanceKm  *float64 `json:"min_distance_km,omitempty"`
	MaxDistanceKm  *float64 `json:"max_distance_km,omitempty"`
	MaxSpeedKmph   *float64 `json:"max_speed_kmph,omitempty"`

	// Execution
	Workers     *int    `json:"workers,omitempty"`
	FileTimeout *string `json:"file_timeout,omitempty"` // duration string like "2m"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The path must end in .json
// and the file must be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set values are usable.
func (c *Config) Validate() error {
	for name, v := range map[string]*string{
		"timestamp_gap":   c.TimestampGap,
		"sample_interval": c.SampleInterval,
		"file_timeout":    c.FileTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	for name, v := range map[string]*int{
		"min_columns":      c.MinColumns,
		"min_segment_rows": c.MinSegmentRows,
		"stop_min_points":  c.StopMinPoints,
		"max_path_points":  c.MaxPathPoints,
		"workers":          c.Workers,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}

	if c.MinDurationMin != nil && c.MaxDurationMin != nil && *c.MinDurationMin > *c.MaxDurationMin {
		return fmt.Errorf("min_duration_min %.1f exceeds max_duration_min %.1f", *c.MinDurationMin, *c.MaxDurationMin)
	}
	if c.MinDistanceKm != nil && c.MaxDistanceKm != nil && *c.MinDistanceKm > *c.MaxDistanceKm {
		return fmt.Errorf("min_distance_km %.1f exceeds max_distance_km %.1f", *c.MinDistanceKm, *c.MaxDistanceKm)
	}
	if c.MaxSpeedKmph != nil && *c.MaxSpeedKmph <= 0 {
		return fmt.Errorf("max_speed_kmph must be positive, got %f", *c.MaxSpeedKmph)
	}
	if r := c.Region; r != nil {
		if r.MinLat >= r.MaxLat || r.MinLon >= r.MaxLon {
			return fmt.Errorf("region must have min below max, got %+v", *r)
		}
		if r.MinLat < -90 || r.MaxLat > 90 || r.MinLon < -180 || r.MaxLon > 180 {
			return fmt.Errorf("region outside valid coordinates: %+v", *r)
		}
	}
	return nil
}

func duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetInputFolders returns the folders to scan.
func (c *Config) GetInputFolders() []string {
	if len(c.InputFolders) == 0 {
		return DefaultInputFolders
	}
	return c.InputFolders
}

// GetExtensions returns the accepted file extensions.
func (c *Config) GetExtensions() []string {
	if len(c.Extensions) == 0 {
		return DefaultExtensions
	}
	return c.Extensions
}

// GetEncodings returns the text encodings to try, in order.
func (c *Config) GetEncodings() []string {
	if len(c.Encodings) == 0 {
		return DefaultEncodings
	}
	return c.Encodings
}

// GetMinColumns returns the column count below which a file is skipped.
func (c *Config) GetMinColumns() int { return intOr(c.MinColumns, 3) }

// GetMinSegmentRows returns the row count below which a segment is skipped.
func (c *Config) GetMinSegmentRows() int { return intOr(c.MinSegmentRows, 5) }

// GetWorkers returns the number of files processed concurrently.
func (c *Config) GetWorkers() int { return intOr(c.Workers, 1) }

// GetFileTimeout returns the processing deadline for a single file.
func (c *Config) GetFileTimeout() time.Duration { return duration(c.FileTimeout, 2*time.Minute) }

// SegmentConfig returns the trip segmentation thresholds.
func (c *Config) SegmentConfig() segment.Config {
	d := segment.DefaultConfig()
	return segment.Config{
		TimestampGap:           duration(c.TimestampGap, d.TimestampGap),
		StopSpeedKmph:          floatOr(c.StopSpeedKmph, d.StopSpeedKmph),
		StopMinPoints:          intOr(c.StopMinPoints, d.StopMinPoints),
		DistanceResetTolerance: floatOr(c.DistanceResetToleranceKm, d.DistanceResetTolerance),
	}
}

// FeatureConfig returns the feature extractor settings.
func (c *Config) FeatureConfig() features.Config {
	d := features.DefaultConfig()
	cfg := features.Config{
		BrakeDropKmph:  floatOr(c.BrakeDropKmph, d.BrakeDropKmph),
		SampleInterval: duration(c.SampleInterval, d.SampleInterval),
		Region:         d.Region,
		MaxPathPoints:  intOr(c.MaxPathPoints, d.MaxPathPoints),
	}
	if r := c.Region; r != nil {
		cfg.Region = features.BoundingBox{MinLat: r.MinLat, MaxLat: r.MaxLat, MinLon: r.MinLon, MaxLon: r.MaxLon}
	}
	return cfg
}

// ValidationPolicy returns the trip range rules.
func (c *Config) ValidationPolicy() validate.Policy {
	d := validate.DefaultPolicy()
	return validate.Policy{
		MinDurationMin: floatOr(c.MinDurationMin, d.MinDurationMin),
		MaxDurationMin: floatOr(c.MaxDurationMin, d.MaxDurationMin),
		MinDistanceKm:  floatOr(c.MinDistanceKm, d.MinDistanceKm),
		MaxDistanceKm:  floatOr(c.MaxDistanceKm, d.MaxDistanceKm),
		MaxSpeedKmph:   floatOr(c.MaxSpeedKmph, d.MaxSpeedKmph),
	}
}
