package marker

import "github.com/banshee-data/marker.anchor/internal/config"

// Params holds the tunable constants of the pipeline. Zero values are never
// meaningful; construct via DefaultParams or ParamsFromTuning.
type Params struct {
	DetectEveryTicks int   // run detection every Nth tick
	AllowedMarkerIDs []int // only these ids are anchored; empty allows none

	MarkerSizeMillimeters float64 // assumed physical marker edge length

	// Distance scale (pose-based strategy)
	MinDistanceMillimeters float64
	MaxDistanceMillimeters float64

	// Distance scale (area-based fallback strategy)
	MinAreaRatio      float64
	MaxAreaRatio      float64
	AreaScaleExponent float64

	// Final visual scale bounds
	MinVisualScale float64
	MaxVisualScale float64

	// Placement
	MillimetersToScene float64 // pose translation mm -> scene units
	DepthClampNear     float64 // pose-path Z upper bound (closest to viewer)
	DepthClampFar      float64 // pose-path Z lower bound (furthest)
	FallbackDepth      float64 // fixed Z for the 2D fallback projector
	FieldOfViewDegrees float64 // assumed vertical FOV for the fallback projector

	// Footprint fit
	MarkerFitRatio        float64 // fraction of the marker bounding box to occupy
	TemplateReferenceUnit float64 // object template native size in marker-relative units
	MinFootprintScale     float64
	VisibilityMultiplier  float64

	SpinIncrementRadians float64 // per-update liveliness rotation

	DictionaryName string // marker family the locator is expected to detect
}

// DefaultParams returns the pipeline defaults. These match the fallbacks
// used when a tuning field is absent from the config file.
func DefaultParams() Params {
	return Params{
		DetectEveryTicks:       3,
		AllowedMarkerIDs:       []int{1},
		MarkerSizeMillimeters:  50,
		MinDistanceMillimeters: 50,
		MaxDistanceMillimeters: 500,
		MinAreaRatio:           0.001,
		MaxAreaRatio:           0.1,
		AreaScaleExponent:      0.3,
		MinVisualScale:         0.2,
		MaxVisualScale:         3.0,
		MillimetersToScene:     0.005,
		DepthClampNear:         -0.3,
		DepthClampFar:          -4.0,
		FallbackDepth:          -1.5,
		FieldOfViewDegrees:     45,
		MarkerFitRatio:         0.12,
		TemplateReferenceUnit:  10,
		MinFootprintScale:      0.1,
		VisibilityMultiplier:   1.5,
		SpinIncrementRadians:   0.02,
		DictionaryName:         "DICT_4X4_50",
	}
}

// ParamsFromTuning overlays a loaded TuningConfig onto the defaults. Fields
// omitted from the config keep their default values, so partial configs are
// safe.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return DefaultParams().WithTuning(cfg)
}

// WithTuning returns a copy of p with every field present in cfg replaced.
// The runtime params endpoint uses this to apply partial updates on top of
// the live configuration.
func (p Params) WithTuning(cfg *config.TuningConfig) Params {
	if cfg == nil {
		return p
	}
	if cfg.DetectEveryTicks != nil {
		p.DetectEveryTicks = *cfg.DetectEveryTicks
	}
	if cfg.AllowedMarkerIDs != nil {
		p.AllowedMarkerIDs = append([]int(nil), cfg.AllowedMarkerIDs...)
	}
	if cfg.MarkerSizeMillimeters != nil {
		p.MarkerSizeMillimeters = *cfg.MarkerSizeMillimeters
	}
	if cfg.MinDistanceMillimeters != nil {
		p.MinDistanceMillimeters = *cfg.MinDistanceMillimeters
	}
	if cfg.MaxDistanceMillimeters != nil {
		p.MaxDistanceMillimeters = *cfg.MaxDistanceMillimeters
	}
	if cfg.MinAreaRatio != nil {
		p.MinAreaRatio = *cfg.MinAreaRatio
	}
	if cfg.MaxAreaRatio != nil {
		p.MaxAreaRatio = *cfg.MaxAreaRatio
	}
	if cfg.AreaScaleExponent != nil {
		p.AreaScaleExponent = *cfg.AreaScaleExponent
	}
	if cfg.MinVisualScale != nil {
		p.MinVisualScale = *cfg.MinVisualScale
	}
	if cfg.MaxVisualScale != nil {
		p.MaxVisualScale = *cfg.MaxVisualScale
	}
	if cfg.MillimetersToScene != nil {
		p.MillimetersToScene = *cfg.MillimetersToScene
	}
	if cfg.DepthClampNear != nil {
		p.DepthClampNear = *cfg.DepthClampNear
	}
	if cfg.DepthClampFar != nil {
		p.DepthClampFar = *cfg.DepthClampFar
	}
	if cfg.FallbackDepth != nil {
		p.FallbackDepth = *cfg.FallbackDepth
	}
	if cfg.FieldOfViewDegrees != nil {
		p.FieldOfViewDegrees = *cfg.FieldOfViewDegrees
	}
	if cfg.MarkerFitRatio != nil {
		p.MarkerFitRatio = *cfg.MarkerFitRatio
	}
	if cfg.TemplateReferenceUnit != nil {
		p.TemplateReferenceUnit = *cfg.TemplateReferenceUnit
	}
	if cfg.MinFootprintScale != nil {
		p.MinFootprintScale = *cfg.MinFootprintScale
	}
	if cfg.VisibilityMultiplier != nil {
		p.VisibilityMultiplier = *cfg.VisibilityMultiplier
	}
	if cfg.SpinIncrementRadians != nil {
		p.SpinIncrementRadians = *cfg.SpinIncrementRadians
	}
	if cfg.DictionaryName != nil {
		p.DictionaryName = *cfg.DictionaryName
	}
	return p
}

// Allowed reports whether a marker id passes the anchoring allow-list.
func (p Params) Allowed(id int) bool {
	for _, a := range p.AllowedMarkerIDs {
		if a == id {
			return true
		}
	}
	return false
}
