package marker

import (
	"sync"

	"github.com/banshee-data/marker.anchor/internal/monitoring"
)

// Anchor binds a scene object to a marker identity for as long as that
// identity stays visible. The scene engine owns the object's resources;
// the anchor only holds the handle.
type Anchor struct {
	MarkerID      int          `json:"marker_id"`
	Handle        ObjectHandle `json:"handle"`
	FirstSeenTick uint64       `json:"first_seen_tick"`
	LastSeenTick  uint64       `json:"last_seen_tick"`

	spinRadians float64
}

// AnchorManager drives the per-identity anchor state machine. It keeps an
// arena of anchors indexed by marker id; each tick marks the anchors seen
// and removes the rest, so removals are deterministic rather than a side
// effect of map iteration order.
//
// Under the single-threaded tick model the mutex is uncontended; it exists
// so a multi-threaded adaptation keeps the single-writer discipline.
type AnchorManager struct {
	mu      sync.Mutex
	scene   SceneEngine
	anchors map[int]*Anchor
}

// NewAnchorManager builds a manager issuing commands against the given
// scene engine.
func NewAnchorManager(scene SceneEngine) *AnchorManager {
	return &AnchorManager{
		scene:   scene,
		anchors: make(map[int]*Anchor),
	}
}

// Apply advances every anchor one tick from the current frame's marker set.
// Only allow-listed ids are materialized; other markers pass through the
// per-tick output untouched. All creations and updates happen before any
// removal, so an id that disappears and reappears across adjacent ticks
// never flickers through a remove/create pair within one tick.
func (am *AnchorManager) Apply(tick uint64, p Params, markers []DetectedMarker, frameWidth, frameHeight int) {
	am.mu.Lock()
	defer am.mu.Unlock()

	for i := range markers {
		m := &markers[i]
		if !p.Allowed(m.ID) {
			continue
		}
		a, ok := am.anchors[m.ID]
		if !ok {
			a = am.create(tick, m.ID)
			if a == nil {
				continue
			}
		}
		if a.LastSeenTick == tick && ok {
			// Duplicate id within one tick; first sighting wins.
			continue
		}
		a.LastSeenTick = tick
		am.update(a, p, m, frameWidth, frameHeight)
	}

	for id, a := range am.anchors {
		if a.LastSeenTick != tick {
			am.remove(a)
			delete(am.anchors, id)
		}
	}
}

// create requests a new object from the consumer template and registers
// the anchor. A consumer failure is logged and yields no anchor; the next
// sighting retries.
func (am *AnchorManager) create(tick uint64, id int) *Anchor {
	handle, err := am.scene.InstantiateFromTemplate()
	if err != nil {
		monitoring.Logf("anchor create for marker %d failed: %v", id, err)
		return nil
	}
	if err := am.scene.AddToScene(handle); err != nil {
		monitoring.Logf("anchor add for marker %d failed: %v", id, err)
		return nil
	}
	a := &Anchor{MarkerID: id, Handle: handle, FirstSeenTick: tick}
	am.anchors[id] = a
	return a
}

// update repositions and rescales the anchored object from this tick's
// detection, plus a small continuous spin for visual liveliness.
func (am *AnchorManager) update(a *Anchor, p Params, m *DetectedMarker, frameWidth, frameHeight int) {
	if m.Transform == nil {
		return
	}
	a.spinRadians += p.SpinIncrementRadians

	rotation := IdentityMat3()
	if m.Pose != nil {
		rotation = m.Pose.Rotation
	}
	rotation = rotation.Mul(RotationY(a.spinRadians))

	scale := AppliedScale(p, m, frameWidth, frameHeight)
	if err := am.scene.SetTransform(a.Handle, m.Transform.Position(), rotation, scale); err != nil {
		monitoring.Logf("anchor transform for marker %d failed: %v", a.MarkerID, err)
	}
}

func (am *AnchorManager) remove(a *Anchor) {
	if err := am.scene.RemoveFromScene(a.Handle); err != nil {
		monitoring.Logf("anchor remove for marker %d failed: %v", a.MarkerID, err)
	}
}

// ReleaseAll removes every live anchor. Called on pipeline disposal;
// repeated calls are no-ops.
func (am *AnchorManager) ReleaseAll() {
	am.mu.Lock()
	defer am.mu.Unlock()
	for id, a := range am.anchors {
		am.remove(a)
		delete(am.anchors, id)
	}
}

// Count returns the number of live anchors.
func (am *AnchorManager) Count() int {
	am.mu.Lock()
	defer am.mu.Unlock()
	return len(am.anchors)
}

// Snapshot returns a copy of the live anchors for monitoring consumers.
func (am *AnchorManager) Snapshot() []Anchor {
	am.mu.Lock()
	defer am.mu.Unlock()
	out := make([]Anchor, 0, len(am.anchors))
	for _, a := range am.anchors {
		out = append(out, *a)
	}
	return out
}
