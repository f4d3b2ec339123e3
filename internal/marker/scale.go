package marker

import "math"

// DistanceScale produces a bounded multiplier that makes an anchored object
// shrink and grow with distance. When a pose is available the pose depth
// drives an inverse-linear scale; otherwise the marker's apparent 2D area
// relative to the frame drives a power-law scale. Either way the result is
// clamped to [MinVisualScale, MaxVisualScale].
func DistanceScale(p Params, m *DetectedMarker, frameWidth, frameHeight int) float64 {
	var scale float64
	if m.Pose != nil {
		distance := clamp(math.Abs(m.Pose.Translation.Z), p.MinDistanceMillimeters, p.MaxDistanceMillimeters)
		scale = p.MaxDistanceMillimeters / distance
	} else {
		scale = areaScale(p, m.Corners, frameWidth, frameHeight)
	}
	return clamp(scale, p.MinVisualScale, p.MaxVisualScale)
}

// areaScale is the pose-free fallback: bounding-box area relative to the
// frame, clamped and compressed by a power law so perceived size changes
// smoothly across a wide range of apparent sizes.
func areaScale(p Params, corners [4]Point2, frameWidth, frameHeight int) float64 {
	frameArea := float64(frameWidth) * float64(frameHeight)
	if frameArea <= 0 {
		return p.MinVisualScale
	}
	w, h := BoundingBox(corners)
	ratio := clamp(w*h/frameArea, p.MinAreaRatio, p.MaxAreaRatio)
	return math.Pow(ratio/p.MinAreaRatio, p.AreaScaleExponent)
}

// FootprintScale computes the constraint-solver scale that fits the object
// template within its marker's bounding box. The result is multiplied by
// the distance scale and the visibility multiplier to produce the final
// applied scale.
func FootprintScale(p Params, corners [4]Point2) float64 {
	w, h := BoundingBox(corners)
	return math.Max(p.MinFootprintScale, math.Min(w, h)*p.MarkerFitRatio/p.TemplateReferenceUnit)
}

// AppliedScale combines the footprint fit, the distance scale and the fixed
// visibility multiplier into the scale handed to the scene engine.
func AppliedScale(p Params, m *DetectedMarker, frameWidth, frameHeight int) float64 {
	return FootprintScale(p, m.Corners) * DistanceScale(p, m, frameWidth, frameHeight) * p.VisibilityMultiplier
}
