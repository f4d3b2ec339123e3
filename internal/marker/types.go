package marker

// Point2 is a 2D point in pixel space (origin top-left, Y down).
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a 3D vector in scene units unless noted otherwise.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Mat3 is a 3x3 matrix, row-major (m00,m01,m02, m10,...).
type Mat3 [9]float64

// Transform is a 4x4 homogeneous matrix, row-major
// (m00..m03, m10..m13, m20..m23, m30..m33). The bottom row is always
// [0 0 0 1] for every transform this package produces.
type Transform [16]float64

// RawMarker is the locator's output for a single detected marker: an
// identity plus exactly four corner points, consistently ordered.
type RawMarker struct {
	ID      int       `json:"id"`
	Corners [4]Point2 `json:"corners"`
}

// Pose is a 6DOF marker pose recovered from a single frame. Translation is
// in the same physical unit as the configured marker size (millimeters).
// Confidence is derived from the estimator residual and is always in (0,1].
type Pose struct {
	Translation Vec3    `json:"translation"`
	Rotation    Mat3    `json:"rotation"`
	Error       float64 `json:"error"`
	Confidence  float64 `json:"confidence"`
}

// DetectedMarker is the per-tick record for one sighted marker. It is
// constructed fresh every detection tick and never mutated afterwards.
// Pose and Transform are nil when the corresponding stage failed or was
// skipped; ID, Corners and Center are always valid.
type DetectedMarker struct {
	ID        int        `json:"id"`
	Corners   [4]Point2  `json:"corners"`
	Center    Point2     `json:"center"`
	Pose      *Pose      `json:"pose,omitempty"`
	Transform *Transform `json:"transform,omitempty"`
}

// Frame is a sampled video frame: a tightly packed RGBA pixel buffer plus
// its dimensions.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
}

// FrameSource supplies the current video frame. A source may legitimately
// report a zero-dimension frame while the stream is still warming up; the
// sampler translates that into ErrFrameNotReady.
type FrameSource interface {
	Frame() (pixels []byte, width, height int)
}

// MarkerLocator maps a pixel buffer to raw markers. Implementations are
// opaque; the pipeline re-creates its locator through LocatorFactory
// whenever the observed frame width changes, because locator internals
// (focal-length assumptions) are keyed to frame width.
type MarkerLocator interface {
	Locate(pixels []byte, width, height int) ([]RawMarker, error)
}

// LocatorFactory builds a MarkerLocator calibrated for the given frame
// width. A factory error during pipeline construction is fatal; during a
// mid-session recalibration it degrades the tick to zero markers.
type LocatorFactory func(frameWidth int) (MarkerLocator, error)

// ObjectHandle identifies a scene object owned by the consumer engine. The
// pipeline treats handles as opaque.
type ObjectHandle string

// SceneEngine is the consumer collaborator that owns render objects. The
// lifecycle manager issues create/position/remove commands against it and
// never touches the underlying resources.
type SceneEngine interface {
	InstantiateFromTemplate() (ObjectHandle, error)
	AddToScene(handle ObjectHandle) error
	RemoveFromScene(handle ObjectHandle) error
	SetTransform(handle ObjectHandle, position Vec3, rotation Mat3, scale float64) error
}
