package marker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Estimator iteration limits and numerical guards.
const (
	// PositMaxIterations caps the scaled-orthographic refinement loop.
	PositMaxIterations = 100
	// PositConvergenceEpsilon is the per-point correction delta below which
	// the refinement is considered converged.
	PositConvergenceEpsilon = 1e-5
	// positSingularTolerance rejects singular values treated as zero when
	// building the planar model pseudoinverse.
	positSingularTolerance = 1e-9
)

// PoseEstimator recovers a marker's 6DOF pose from its four image corners
// using pose from orthography and scaling with iteration (POSIT) for a
// coplanar square target. Corner inputs must be recentered to an origin at
// the image center with Y up; the output translation is in the same unit as
// the configured marker size (millimeters).
//
// The planar model admits two scaled-orthographic solutions per frame; both
// branches are refined and the one with the lower reprojection error wins.
type PoseEstimator struct {
	focalLength  float64
	markerSize   float64
	modelVectors [3]Vec3 // corner i+1 minus corner 0, model units
	pseudoInv    *mat.Dense
	normal       Vec3 // unit normal of the model plane
}

// NewPoseEstimator builds an estimator for a square marker of the given
// physical size. focalLength follows the session's width-keyed calibration
// (focal length in pixels is assumed equal to the frame width).
func NewPoseEstimator(markerSizeMillimeters, focalLength float64) (*PoseEstimator, error) {
	if markerSizeMillimeters <= 0 {
		return nil, fmt.Errorf("marker size must be positive, got %v", markerSizeMillimeters)
	}
	if focalLength <= 0 {
		return nil, fmt.Errorf("focal length must be positive, got %v", focalLength)
	}

	half := markerSizeMillimeters / 2
	// Square corners ordered to match the locator convention after the
	// pipeline's Y flip: top-left, top-right, bottom-right, bottom-left.
	model := [4]Vec3{
		{X: -half, Y: half},
		{X: half, Y: half},
		{X: half, Y: -half},
		{X: -half, Y: -half},
	}

	e := &PoseEstimator{
		focalLength: focalLength,
		markerSize:  markerSizeMillimeters,
	}
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		e.modelVectors[i] = Vec3{
			X: model[i+1].X - model[0].X,
			Y: model[i+1].Y - model[0].Y,
			Z: model[i+1].Z - model[0].Z,
		}
		m.SetRow(i, []float64{e.modelVectors[i].X, e.modelVectors[i].Y, e.modelVectors[i].Z})
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, fmt.Errorf("model matrix SVD failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	// Moore-Penrose pseudoinverse; the planar model has rank 2, so the
	// smallest singular value is dropped and its right singular vector is
	// the model plane normal.
	sigmaInv := mat.NewDense(3, 3, nil)
	minIdx := 0
	for i, s := range sigma {
		if s > positSingularTolerance {
			sigmaInv.Set(i, i, 1/s)
		}
		if s < sigma[minIdx] {
			minIdx = i
		}
	}
	e.pseudoInv = mat.NewDense(3, 3, nil)
	e.pseudoInv.Product(&v, sigmaInv, u.T())

	e.normal = Vec3{X: v.At(0, minIdx), Y: v.At(1, minIdx), Z: v.At(2, minIdx)}
	n := math.Sqrt(e.normal.X*e.normal.X + e.normal.Y*e.normal.Y + e.normal.Z*e.normal.Z)
	if n == 0 {
		return nil, fmt.Errorf("degenerate model plane")
	}
	e.normal = Vec3{X: e.normal.X / n, Y: e.normal.Y / n, Z: e.normal.Z / n}

	return e, nil
}

// Estimate computes the best pose for the given recentered corners. The
// returned confidence is 1/(1+error) and therefore always in (0,1].
func (e *PoseEstimator) Estimate(corners [4]Point2) (*Pose, error) {
	rot1, trans1, err1 := e.refine(corners, false)
	rot2, trans2, err2 := e.refine(corners, true)

	if err1 != nil && err2 != nil {
		return nil, fmt.Errorf("pose estimation diverged: %w", err1)
	}

	rot, trans := rot1, trans1
	residual := math.Inf(1)
	if err1 == nil {
		residual = e.reprojectionError(corners, rot1, trans1)
	}
	if err2 == nil {
		if alt := e.reprojectionError(corners, rot2, trans2); alt < residual {
			rot, trans, residual = rot2, trans2, alt
		}
	}
	if math.IsInf(residual, 0) || math.IsNaN(residual) {
		return nil, fmt.Errorf("pose estimation produced non-finite residual")
	}

	// The solver references the model origin at corner 0; shift the
	// translation to the marker center for downstream placement.
	half := e.markerSize / 2
	center := Vec3{
		X: trans.X + rot[0]*half + rot[1]*(-half),
		Y: trans.Y + rot[3]*half + rot[4]*(-half),
		Z: trans.Z + rot[6]*half + rot[7]*(-half),
	}

	return &Pose{
		Translation: center,
		Rotation:    rot,
		Error:       residual,
		Confidence:  1 / (1 + residual),
	}, nil
}

// refine runs the POSIT loop for one of the two planar solution branches.
func (e *PoseEstimator) refine(corners [4]Point2, mirror bool) (Mat3, Vec3, error) {
	var eps [4]float64
	var rot Mat3
	var trans Vec3

	for iter := 0; iter < PositMaxIterations; iter++ {
		r, t, err := e.pos(corners, eps, mirror)
		if err != nil {
			return rot, trans, err
		}
		rot, trans = r, t

		if t.Z <= 0 || math.IsNaN(t.Z) || math.IsInf(t.Z, 0) {
			return rot, trans, fmt.Errorf("translation depth diverged: %v", t.Z)
		}

		converged := true
		for i := 1; i < 4; i++ {
			m := e.modelVectors[i-1]
			v := (rot[6]*m.X + rot[7]*m.Y + rot[8]*m.Z) / t.Z
			if math.Abs(v-eps[i]) > PositConvergenceEpsilon {
				converged = false
			}
			eps[i] = v
		}
		if converged {
			break
		}
	}
	return rot, trans, nil
}

// pos solves a single scaled-orthographic step. eps holds the current
// perspective correction terms (eps[0] is fixed at zero: corner 0 is the
// model origin); mirror selects the second planar solution.
func (e *PoseEstimator) pos(corners [4]Point2, eps [4]float64, mirror bool) (Mat3, Vec3, error) {
	xv := mat.NewVecDense(3, nil)
	yv := mat.NewVecDense(3, nil)
	for i := 1; i < 4; i++ {
		xv.SetVec(i-1, corners[i].X*(1+eps[i])-corners[0].X)
		yv.SetVec(i-1, corners[i].Y*(1+eps[i])-corners[0].Y)
	}

	i0 := mat.NewVecDense(3, nil)
	j0 := mat.NewVecDense(3, nil)
	i0.MulVec(e.pseudoInv, xv)
	j0.MulVec(e.pseudoInv, yv)

	ii := mat.Dot(i0, i0)
	jj := mat.Dot(j0, j0)
	ij := mat.Dot(i0, j0)

	// The in-plane solutions I0,J0 leave the normal components free; solve
	// lambda, mu so that |I|=|J| and I.J=0.
	d := jj - ii
	root := (d + math.Sqrt(d*d+4*ij*ij)) / 2
	lambda := math.Sqrt(math.Max(root, 0))
	var mu float64
	if lambda > positSingularTolerance {
		mu = -ij / lambda
	} else {
		mu = math.Sqrt(math.Max(-d, 0))
	}
	if mirror {
		lambda, mu = -lambda, -mu
	}

	iv := Vec3{
		X: i0.AtVec(0) + lambda*e.normal.X,
		Y: i0.AtVec(1) + lambda*e.normal.Y,
		Z: i0.AtVec(2) + lambda*e.normal.Z,
	}
	jv := Vec3{
		X: j0.AtVec(0) + mu*e.normal.X,
		Y: j0.AtVec(1) + mu*e.normal.Y,
		Z: j0.AtVec(2) + mu*e.normal.Z,
	}

	normI := math.Sqrt(iv.X*iv.X + iv.Y*iv.Y + iv.Z*iv.Z)
	normJ := math.Sqrt(jv.X*jv.X + jv.Y*jv.Y + jv.Z*jv.Z)
	if normI < positSingularTolerance || normJ < positSingularTolerance {
		return Mat3{}, Vec3{}, fmt.Errorf("degenerate corner configuration")
	}

	row1 := Vec3{X: iv.X / normI, Y: iv.Y / normI, Z: iv.Z / normI}
	row2 := Vec3{X: jv.X / normJ, Y: jv.Y / normJ, Z: jv.Z / normJ}
	row3 := Vec3{
		X: row1.Y*row2.Z - row1.Z*row2.Y,
		Y: row1.Z*row2.X - row1.X*row2.Z,
		Z: row1.X*row2.Y - row1.Y*row2.X,
	}

	rot := Mat3{
		row1.X, row1.Y, row1.Z,
		row2.X, row2.Y, row2.Z,
		row3.X, row3.Y, row3.Z,
	}

	scale := (normI + normJ) / 2
	trans := Vec3{
		X: corners[0].X / scale,
		Y: corners[0].Y / scale,
		Z: e.focalLength / scale,
	}
	return rot, trans, nil
}

// reprojectionError projects the model corners through the candidate pose
// and returns the mean pixel distance to the observed corners. Both the
// model vectors and the solver translation are referenced at corner 0.
func (e *PoseEstimator) reprojectionError(corners [4]Point2, rot Mat3, trans Vec3) float64 {
	model := [4]Vec3{
		{}, // corner 0 is the model origin
		e.modelVectors[0],
		e.modelVectors[1],
		e.modelVectors[2],
	}

	var sum float64
	for i, m := range model {
		cx := rot[0]*m.X + rot[1]*m.Y + rot[2]*m.Z + trans.X
		cy := rot[3]*m.X + rot[4]*m.Y + rot[5]*m.Z + trans.Y
		cz := rot[6]*m.X + rot[7]*m.Y + rot[8]*m.Z + trans.Z
		if cz <= 0 {
			return math.Inf(1)
		}
		u := e.focalLength * cx / cz
		v := e.focalLength * cy / cz
		du := u - corners[i].X
		dv := v - corners[i].Y
		sum += math.Sqrt(du*du + dv*dv)
	}
	return sum / 4
}
