package marker

import "math"

// MatrixValidationTolerance is the tolerance for checking rotation matrix
// validity in IsValidTransform.
const MatrixValidationTolerance = 0.01

// Center returns the mean of the four corner points.
func Center(corners [4]Point2) Point2 {
	var sx, sy float64
	for _, c := range corners {
		sx += c.X
		sy += c.Y
	}
	return Point2{X: sx / 4, Y: sy / 4}
}

// BoundingBox returns the width and height of the axis-aligned bounding box
// of the four corners in pixel space.
func BoundingBox(corners [4]Point2) (width, height float64) {
	minX, maxX := corners[0].X, corners[0].X
	minY, maxY := corners[0].Y, corners[0].Y
	for _, c := range corners[1:] {
		minX = math.Min(minX, c.X)
		maxX = math.Max(maxX, c.X)
		minY = math.Min(minY, c.Y)
		maxY = math.Max(maxY, c.Y)
	}
	return maxX - minX, maxY - minY
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IdentityMat3 returns the 3x3 identity matrix.
func IdentityMat3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Mul returns m*n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = m[r*3]*n[c] + m[r*3+1]*n[3+c] + m[r*3+2]*n[6+c]
		}
	}
	return out
}

// RotationY returns the rotation matrix for an angle (radians) about the Y axis.
func RotationY(angle float64) Mat3 {
	s, c := math.Sin(angle), math.Cos(angle)
	return Mat3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// Position extracts the translation column of the transform.
func (t Transform) Position() Vec3 {
	return Vec3{X: t[3], Y: t[7], Z: t[11]}
}

// Rotation extracts the 3x3 rotation stored in the transform, undoing the
// column-major placement used by composeTransform.
func (t Transform) Rotation() Mat3 {
	var r Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] = t[col*4+row]
		}
	}
	return r
}

// composeTransform builds a homogeneous transform from a rotation and a
// position. The rotation is placed column-major into the upper-left 3x3
// (matching the scene engine's matrix convention); the bottom row is
// [0 0 0 1].
func composeTransform(rotation Mat3, position Vec3) Transform {
	var t Transform
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			t[col*4+row] = rotation[row*3+col]
		}
	}
	t[3] = position.X
	t[7] = position.Y
	t[11] = position.Z
	t[12], t[13], t[14], t[15] = 0, 0, 0, 1
	return t
}

// IsValidTransform reports whether the matrix is a proper rigid transform:
// orthonormal rotation block (det ~ 1) and bottom row exactly [0 0 0 1].
func IsValidTransform(t Transform) bool {
	r := t.Rotation()
	det := r[0]*(r[4]*r[8]-r[5]*r[7]) -
		r[1]*(r[3]*r[8]-r[5]*r[6]) +
		r[2]*(r[3]*r[7]-r[4]*r[6])
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}
	return t[12] == 0 && t[13] == 0 && t[14] == 0 && t[15] == 1
}
