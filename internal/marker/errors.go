package marker

import (
	"errors"
	"fmt"
)

// ErrFrameNotReady indicates the source frame reported zero dimensions or
// is not yet decodable. The tick is skipped and previous anchors persist.
var ErrFrameNotReady = errors.New("frame not ready")

// ErrPipelineClosed indicates Tick was called after Close.
var ErrPipelineClosed = errors.New("pipeline closed")

// InitializationError is fatal to pipeline setup: a missing locator
// capability or an unusable capture surface. It is the only error class
// that crosses the pipeline boundary.
type InitializationError struct {
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("pipeline init (%s): %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// PoseEstimationError is a per-marker numerical failure. It is non-fatal:
// the marker degrades to the 2D fallback projector for this tick.
type PoseEstimationError struct {
	MarkerID int
	Err      error
}

func (e *PoseEstimationError) Error() string {
	return fmt.Sprintf("pose estimation for marker %d: %v", e.MarkerID, e.Err)
}

func (e *PoseEstimationError) Unwrap() error { return e.Err }

// DetectionError is a per-tick locator failure. It is non-fatal: the tick
// yields zero markers.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("marker detection: %v", e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }
