package marker

import (
	"math"
	"testing"
)

func TestPoseTransform(t *testing.T) {
	p := DefaultParams()
	pose := &Pose{
		Translation: Vec3{X: 100, Y: -40, Z: 300},
		Rotation:    RotationY(0.5),
	}
	tf := PoseTransform(p, pose)

	pos := tf.Position()
	if math.Abs(pos.X-0.5) > 1e-12 || math.Abs(pos.Y+0.2) > 1e-12 {
		t.Errorf("lateral position (%v, %v), want (0.5, -0.2)", pos.X, pos.Y)
	}
	if math.Abs(pos.Z+1.5) > 1e-12 {
		t.Errorf("depth %v, want -1.5", pos.Z)
	}
	if !IsValidTransform(tf) {
		t.Error("pose transform must validate")
	}
}

func TestPoseTransform_DepthClamped(t *testing.T) {
	p := DefaultParams()

	near := PoseTransform(p, &Pose{Translation: Vec3{Z: 10}, Rotation: IdentityMat3()})
	if got := near.Position().Z; got != p.DepthClampNear {
		t.Errorf("close pose should clamp to near plane %v, got %v", p.DepthClampNear, got)
	}

	far := PoseTransform(p, &Pose{Translation: Vec3{Z: 5000}, Rotation: IdentityMat3()})
	if got := far.Position().Z; got != p.DepthClampFar {
		t.Errorf("distant pose should clamp to far plane %v, got %v", p.DepthClampFar, got)
	}
}

func TestPoseTransform_NegativeDepthInput(t *testing.T) {
	p := DefaultParams()
	a := PoseTransform(p, &Pose{Translation: Vec3{Z: 300}, Rotation: IdentityMat3()})
	b := PoseTransform(p, &Pose{Translation: Vec3{Z: -300}, Rotation: IdentityMat3()})
	if a.Position().Z != b.Position().Z {
		t.Errorf("depth sign must not matter: %v vs %v", a.Position().Z, b.Position().Z)
	}
}

func TestFallbackTransform_CenterOfFrame(t *testing.T) {
	p := DefaultParams()
	tf := FallbackTransform(p, Point2{X: 320, Y: 240}, 640, 480)
	pos := tf.Position()
	if math.Abs(pos.X) > 1e-12 || math.Abs(pos.Y) > 1e-12 {
		t.Errorf("frame center should map to origin, got (%v, %v)", pos.X, pos.Y)
	}
	if pos.Z != p.FallbackDepth {
		t.Errorf("fallback depth %v, want %v", pos.Z, p.FallbackDepth)
	}
	if !IsValidTransform(tf) {
		t.Error("fallback transform must validate")
	}
}

func TestFallbackTransform_CornersAndYFlip(t *testing.T) {
	p := DefaultParams()
	aspect := 640.0 / 480.0
	halfHeight := math.Tan(p.FieldOfViewDegrees*math.Pi/360) * math.Abs(p.FallbackDepth)

	topRight := FallbackTransform(p, Point2{X: 640, Y: 0}, 640, 480).Position()
	if math.Abs(topRight.X-halfHeight*aspect) > 1e-12 {
		t.Errorf("right edge X %v, want %v", topRight.X, halfHeight*aspect)
	}
	if math.Abs(topRight.Y-halfHeight) > 1e-12 {
		t.Errorf("top of frame must map to positive Y, got %v", topRight.Y)
	}

	bottomLeft := FallbackTransform(p, Point2{X: 0, Y: 480}, 640, 480).Position()
	if bottomLeft.X >= 0 || bottomLeft.Y >= 0 {
		t.Errorf("bottom-left must map to negative quadrant, got (%v, %v)", bottomLeft.X, bottomLeft.Y)
	}
}

func TestFallbackTransform_IdentityRotation(t *testing.T) {
	p := DefaultParams()
	tf := FallbackTransform(p, Point2{X: 100, Y: 100}, 640, 480)
	rot := tf.Rotation()
	id := IdentityMat3()
	for i := range id {
		if rot[i] != id[i] {
			t.Fatalf("fallback rotation element %d is %v, want identity", i, rot[i])
		}
	}
}
