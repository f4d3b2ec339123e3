package marker

import "math"

// PoseTransform builds the placement transform for a marker whose pose was
// successfully estimated. The pose translation is scaled from millimeters
// into scene units, the depth is negated into the viewer-facing convention
// and clamped to [DepthClampFar, DepthClampNear], and the pose rotation is
// placed column-major in the upper-left 3x3. The bottom row is always
// [0 0 0 1].
func PoseTransform(p Params, pose *Pose) Transform {
	position := Vec3{
		X: pose.Translation.X * p.MillimetersToScene,
		Y: pose.Translation.Y * p.MillimetersToScene,
		Z: clamp(-math.Abs(pose.Translation.Z)*p.MillimetersToScene, p.DepthClampFar, p.DepthClampNear),
	}
	return composeTransform(pose.Rotation, position)
}

// FallbackTransform derives a placement directly from the marker's 2D
// center when pose estimation failed. Pixel coordinates are normalized to
// [-1,1] (Y flipped out of pixel convention), then projected through the
// assumed field of view at a fixed virtual depth. Rotation is identity.
//
// The fallback depth is a separate constant from the pose-path depth clamp;
// the two paths keep their own conventions.
func FallbackTransform(p Params, center Point2, frameWidth, frameHeight int) Transform {
	nx := center.X/float64(frameWidth)*2 - 1
	ny := -(center.Y/float64(frameHeight)*2 - 1)
	aspect := float64(frameWidth) / float64(frameHeight)

	halfHeight := math.Tan(p.FieldOfViewDegrees*math.Pi/360) * math.Abs(p.FallbackDepth)
	position := Vec3{
		X: halfHeight * aspect * nx,
		Y: halfHeight * ny,
		Z: p.FallbackDepth,
	}
	return composeTransform(IdentityMat3(), position)
}
