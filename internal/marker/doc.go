// Package marker implements the fiducial-marker detection-to-placement
// pipeline: it samples video frames, locates square markers via an injected
// locator, estimates each marker's 6DOF pose, derives a stable scene
// transform and visual scale, and manages the lifecycle of anchored scene
// objects across ticks.
//
// The pipeline is single-threaded and cooperative: all work happens inside
// Tick, driven by an external render loop. Per-marker and per-tick failures
// degrade (fallback placement, empty tick) rather than stall the loop; only
// construction errors propagate to the caller.
package marker
