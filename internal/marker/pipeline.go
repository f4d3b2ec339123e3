package marker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/marker.anchor/internal/config"
	"github.com/banshee-data/marker.anchor/internal/monitoring"
)

// Pipeline runs the full detection-to-placement flow for one session. All
// work happens inside Tick, which is driven by an external render loop; the
// mutex serializes Tick against the monitoring accessors and Close.
type Pipeline struct {
	mu     sync.Mutex
	params Params

	sampler   *FrameSampler
	factory   LocatorFactory
	locator   MarkerLocator
	estimator *PoseEstimator
	anchors   *AnchorManager
	stats     *SessionStats

	// Session calibration: locator and estimator internals are keyed to the
	// observed frame width, so both are rebuilt when it changes.
	frameWidth  int
	frameHeight int

	tick       uint64
	lastOutput []DetectedMarker
	closed     bool
}

// NewPipeline validates the external capabilities and builds an idle
// pipeline. The locator itself is instantiated on the first ready frame,
// once the frame width is known.
func NewPipeline(p Params, factory LocatorFactory, scene SceneEngine) (*Pipeline, error) {
	if factory == nil {
		return nil, &InitializationError{Stage: "locator", Err: errors.New("no locator factory provided")}
	}
	if scene == nil {
		return nil, &InitializationError{Stage: "scene", Err: errors.New("no scene engine provided")}
	}
	if p.DetectEveryTicks < 1 {
		p.DetectEveryTicks = 1
	}
	return &Pipeline{
		params:  p,
		sampler: NewFrameSampler(),
		factory: factory,
		anchors: NewAnchorManager(scene),
		stats:   NewSessionStats(),
	}, nil
}

// Tick advances the pipeline by one frame. Detection runs every
// DetectEveryTicks ticks; on skipped ticks and not-ready frames the
// previous tick's output is returned and anchors persist unchanged.
// Per-marker and per-tick failures degrade and are logged; only a failed
// locator (re)instantiation propagates, as an InitializationError.
func (pl *Pipeline) Tick(src FrameSource) ([]DetectedMarker, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.closed {
		return nil, ErrPipelineClosed
	}

	pl.tick++
	if pl.tick%uint64(pl.params.DetectEveryTicks) != 0 {
		pl.stats.RecordSkip()
		return pl.lastOutput, nil
	}

	frame, err := pl.sampler.Sample(src)
	if err != nil {
		pl.stats.RecordSkip()
		return pl.lastOutput, nil
	}

	if frame.Width != pl.frameWidth || frame.Height != pl.frameHeight {
		if err := pl.recalibrate(frame.Width, frame.Height); err != nil {
			return nil, err
		}
	}

	raw, err := pl.locator.Locate(frame.Pixels, frame.Width, frame.Height)
	if err != nil {
		derr := &DetectionError{Err: err}
		monitoring.Logf("%v", derr)
		pl.stats.RecordDetectionFailure()
		raw = nil
	}

	detected := make([]DetectedMarker, 0, len(raw))
	for _, rm := range raw {
		detected = append(detected, pl.process(rm, frame.Width, frame.Height))
	}

	pl.anchors.Apply(pl.tick, pl.params, detected, frame.Width, frame.Height)
	pl.stats.RecordTick(pl.tick, detected, pl.anchors.Count())

	pl.lastOutput = detected
	return detected, nil
}

// process turns one raw marker into the per-tick record: center, pose when
// the estimator converges, and a placement transform either way.
func (pl *Pipeline) process(rm RawMarker, frameWidth, frameHeight int) DetectedMarker {
	m := DetectedMarker{
		ID:      rm.ID,
		Corners: rm.Corners,
		Center:  Center(rm.Corners),
	}

	pose, err := pl.estimator.Estimate(pl.recenter(rm.Corners, frameWidth, frameHeight))
	if err != nil {
		perr := &PoseEstimationError{MarkerID: rm.ID, Err: err}
		monitoring.Logf("%v", perr)
		pl.stats.RecordPoseFailure()
	} else {
		m.Pose = pose
	}

	var t Transform
	if m.Pose != nil {
		t = PoseTransform(pl.params, m.Pose)
	} else {
		t = FallbackTransform(pl.params, m.Center, frameWidth, frameHeight)
	}
	m.Transform = &t
	return m
}

// recenter moves pixel-space corners to an origin at the image center and
// flips the vertical axis into the estimator's right-handed convention.
func (pl *Pipeline) recenter(corners [4]Point2, frameWidth, frameHeight int) [4]Point2 {
	halfW := float64(frameWidth) / 2
	halfH := float64(frameHeight) / 2
	var out [4]Point2
	for i, c := range corners {
		out[i] = Point2{X: c.X - halfW, Y: halfH - c.Y}
	}
	return out
}

// recalibrate rebuilds the width-keyed locator and estimator. The focal
// length assumption follows the frame width.
func (pl *Pipeline) recalibrate(width, height int) error {
	locator, err := pl.factory(width)
	if err != nil {
		ierr := &InitializationError{Stage: "locator", Err: err}
		monitoring.Logf("%v", ierr)
		return ierr
	}
	estimator, err := NewPoseEstimator(pl.params.MarkerSizeMillimeters, float64(width))
	if err != nil {
		ierr := &InitializationError{Stage: "estimator", Err: err}
		monitoring.Logf("%v", ierr)
		return ierr
	}
	pl.locator = locator
	pl.estimator = estimator
	pl.frameWidth = width
	pl.frameHeight = height
	monitoring.Logf("calibrated for %dx%d frames (focal length %d)", width, height, width)
	return nil
}

// Close releases all anchors, the capture surface and the calibration
// state. It is synchronous and idempotent.
func (pl *Pipeline) Close() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.closed {
		return nil
	}
	pl.closed = true

	pl.anchors.ReleaseAll()
	pl.sampler.Release()
	pl.locator = nil
	pl.estimator = nil
	pl.frameWidth = 0
	pl.frameHeight = 0
	pl.lastOutput = nil
	return nil
}

// LatestMarkers returns a copy of the most recent detection tick's output.
func (pl *Pipeline) LatestMarkers() []DetectedMarker {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return append([]DetectedMarker(nil), pl.lastOutput...)
}

// Anchors returns a snapshot of the live anchors.
func (pl *Pipeline) Anchors() []Anchor {
	return pl.anchors.Snapshot()
}

// Stats returns a snapshot of the session statistics.
func (pl *Pipeline) Stats() SessionSummary {
	return pl.stats.Summary()
}

// TickHistory returns the retained per-tick records.
func (pl *Pipeline) TickHistory() []TickRecord {
	return pl.stats.History()
}

// Params returns the current tuning parameters.
func (pl *Pipeline) Params() Params {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	p := pl.params
	p.AllowedMarkerIDs = append([]int(nil), p.AllowedMarkerIDs...)
	return p
}

// ApplyTuning overlays a partial tuning update onto the live parameters.
// A changed marker size or dictionary forces recalibration on the next
// detection tick.
func (pl *Pipeline) ApplyTuning(cfg *config.TuningConfig) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.closed {
		return ErrPipelineClosed
	}
	next := pl.params.WithTuning(cfg)
	if next.DetectEveryTicks < 1 {
		return fmt.Errorf("detect_every_ticks must be >= 1, got %d", next.DetectEveryTicks)
	}
	if next.MarkerSizeMillimeters <= 0 {
		return fmt.Errorf("marker_size_mm must be positive, got %v", next.MarkerSizeMillimeters)
	}
	if _, err := ParseDictionary(next.DictionaryName); err != nil {
		return err
	}
	if next.MarkerSizeMillimeters != pl.params.MarkerSizeMillimeters {
		pl.frameWidth = 0
		pl.frameHeight = 0
	}
	pl.params = next
	return nil
}

// FrameSize returns the calibrated frame dimensions, zero before the first
// ready frame.
func (pl *Pipeline) FrameSize() (width, height int) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.frameWidth, pl.frameHeight
}
