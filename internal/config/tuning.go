package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for pipeline tuning
// parameters. The schema matches the /api/params endpoint so the same JSON
// can be used for both startup configuration and runtime updates. All
// fields are optional; omitted fields keep the built-in defaults.
type TuningConfig struct {
	// Detection
	DetectEveryTicks      *int     `json:"detect_every_ticks,omitempty"`
	AllowedMarkerIDs      []int    `json:"allowed_marker_ids,omitempty"`
	MarkerSizeMillimeters *float64 `json:"marker_size_mm,omitempty"`
	DictionaryName        *string  `json:"dictionary,omitempty"`

	// Distance scale
	MinDistanceMillimeters *float64 `json:"min_distance_mm,omitempty"`
	MaxDistanceMillimeters *float64 `json:"max_distance_mm,omitempty"`
	MinAreaRatio           *float64 `json:"min_area_ratio,omitempty"`
	MaxAreaRatio           *float64 `json:"max_area_ratio,omitempty"`
	AreaScaleExponent      *float64 `json:"area_scale_exponent,omitempty"`
	MinVisualScale         *float64 `json:"min_visual_scale,omitempty"`
	MaxVisualScale         *float64 `json:"max_visual_scale,omitempty"`

	// Placement
	MillimetersToScene *float64 `json:"mm_to_scene,omitempty"`
	DepthClampNear     *float64 `json:"depth_clamp_near,omitempty"`
	DepthClampFar      *float64 `json:"depth_clamp_far,omitempty"`
	FallbackDepth      *float64 `json:"fallback_depth,omitempty"`
	FieldOfViewDegrees *float64 `json:"fov_degrees,omitempty"`

	// Footprint fit
	MarkerFitRatio        *float64 `json:"marker_fit_ratio,omitempty"`
	TemplateReferenceUnit *float64 `json:"template_reference_unit,omitempty"`
	MinFootprintScale     *float64 `json:"min_footprint_scale,omitempty"`
	VisibilityMultiplier  *float64 `json:"visibility_multiplier,omitempty"`

	SpinIncrementRadians *float64 `json:"spin_increment_radians,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ParseTuningConfig parses a TuningConfig from raw JSON, validating it the
// same way as LoadTuningConfig. Used by the runtime params endpoint.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set fields hold usable values.
func (c *TuningConfig) Validate() error {
	if c.DetectEveryTicks != nil && *c.DetectEveryTicks < 1 {
		return fmt.Errorf("detect_every_ticks must be >= 1, got %d", *c.DetectEveryTicks)
	}
	if c.MarkerSizeMillimeters != nil && *c.MarkerSizeMillimeters <= 0 {
		return fmt.Errorf("marker_size_mm must be positive, got %f", *c.MarkerSizeMillimeters)
	}
	for _, id := range c.AllowedMarkerIDs {
		if id < 0 {
			return fmt.Errorf("allowed_marker_ids must be non-negative, got %d", id)
		}
	}
	if c.MinDistanceMillimeters != nil && c.MaxDistanceMillimeters != nil &&
		*c.MinDistanceMillimeters >= *c.MaxDistanceMillimeters {
		return fmt.Errorf("min_distance_mm (%f) must be below max_distance_mm (%f)",
			*c.MinDistanceMillimeters, *c.MaxDistanceMillimeters)
	}
	if c.MinAreaRatio != nil && *c.MinAreaRatio <= 0 {
		return fmt.Errorf("min_area_ratio must be positive, got %f", *c.MinAreaRatio)
	}
	if c.MinVisualScale != nil && c.MaxVisualScale != nil &&
		*c.MinVisualScale >= *c.MaxVisualScale {
		return fmt.Errorf("min_visual_scale (%f) must be below max_visual_scale (%f)",
			*c.MinVisualScale, *c.MaxVisualScale)
	}
	if c.FieldOfViewDegrees != nil && (*c.FieldOfViewDegrees <= 0 || *c.FieldOfViewDegrees >= 180) {
		return fmt.Errorf("fov_degrees must be in (0,180), got %f", *c.FieldOfViewDegrees)
	}
	if c.DepthClampNear != nil && c.DepthClampFar != nil &&
		*c.DepthClampFar >= *c.DepthClampNear {
		return fmt.Errorf("depth_clamp_far (%f) must be below depth_clamp_near (%f)",
			*c.DepthClampFar, *c.DepthClampNear)
	}
	return nil
}
