package marker

import (
	"errors"
	"testing"
)

func sighting(id int, withTransform bool) DetectedMarker {
	m := DetectedMarker{
		ID:      id,
		Corners: [4]Point2{{X: 100, Y: 100}, {X: 140, Y: 100}, {X: 140, Y: 140}, {X: 100, Y: 140}},
		Center:  Point2{X: 120, Y: 120},
	}
	if withTransform {
		tf := FallbackTransform(DefaultParams(), m.Center, 640, 480)
		m.Transform = &tf
	}
	return m
}

func TestAnchorManager_CreateOnFirstSighting(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, true)}, 640, 480)

	if am.Count() != 1 {
		t.Fatalf("expected 1 anchor, got %d", am.Count())
	}
	if scene.CountOp("instantiate") != 1 || scene.CountOp("add") != 1 {
		t.Errorf("expected one instantiate and one add, got %d/%d",
			scene.CountOp("instantiate"), scene.CountOp("add"))
	}
	if scene.CountOp("transform") != 1 {
		t.Errorf("expected one transform, got %d", scene.CountOp("transform"))
	}
}

func TestAnchorManager_DisallowedIDNeverAnchored(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams() // allow-list is {1}

	am.Apply(1, p, []DetectedMarker{sighting(7, true)}, 640, 480)

	if am.Count() != 0 {
		t.Fatalf("disallowed id must not anchor, got %d anchors", am.Count())
	}
	if len(scene.Commands()) != 0 {
		t.Errorf("no scene commands expected, got %v", scene.Commands())
	}
}

func TestAnchorManager_OneInstantiatePerPresenceInterval(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	for tick := uint64(1); tick <= 10; tick++ {
		am.Apply(tick, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	}

	if scene.CountOp("instantiate") != 1 {
		t.Errorf("continuous visibility must instantiate once, got %d", scene.CountOp("instantiate"))
	}
	if scene.CountOp("transform") != 10 {
		t.Errorf("expected a transform per tick, got %d", scene.CountOp("transform"))
	}
	if am.Count() != 1 {
		t.Errorf("expected a single live anchor, got %d", am.Count())
	}
}

func TestAnchorManager_RemoveAfterDisappearance(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	// Marker absent for five consecutive ticks.
	for tick := uint64(2); tick <= 6; tick++ {
		am.Apply(tick, p, nil, 640, 480)
	}

	if am.Count() != 0 {
		t.Fatalf("anchor must be removed once the id disappears, got %d", am.Count())
	}
	if scene.CountOp("remove") != 1 {
		t.Errorf("expected exactly one remove, got %d", scene.CountOp("remove"))
	}
	if scene.LiveCount() != 0 {
		t.Errorf("scene must be empty, %d objects live", scene.LiveCount())
	}
}

func TestAnchorManager_ReappearanceCreatesFreshObject(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	first := am.Snapshot()[0].Handle
	am.Apply(2, p, nil, 640, 480)
	am.Apply(3, p, []DetectedMarker{sighting(1, true)}, 640, 480)

	if am.Count() != 1 {
		t.Fatalf("expected 1 anchor after reappearance, got %d", am.Count())
	}
	if am.Snapshot()[0].Handle == first {
		t.Error("reappearance must be backed by a new scene object")
	}
	if scene.CountOp("instantiate") != 2 || scene.CountOp("remove") != 1 {
		t.Errorf("expected 2 instantiates and 1 remove, got %d/%d",
			scene.CountOp("instantiate"), scene.CountOp("remove"))
	}
}

func TestAnchorManager_RegistrySizeMatchesLiveObjects(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()
	ids := []int{1, 2, 3}
	p.AllowedMarkerIDs = ids

	check := func() {
		t.Helper()
		if am.Count() != scene.LiveCount() {
			t.Fatalf("registry size %d != live objects %d", am.Count(), scene.LiveCount())
		}
	}

	am.Apply(1, p, []DetectedMarker{sighting(1, true), sighting(2, true)}, 640, 480)
	check()
	am.Apply(2, p, []DetectedMarker{sighting(2, true), sighting(3, true)}, 640, 480)
	check()
	am.Apply(3, p, nil, 640, 480)
	check()
	if am.Count() != 0 {
		t.Errorf("expected empty registry, got %d", am.Count())
	}
}

func TestAnchorManager_DuplicateIDInOneTick(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, true), sighting(1, true)}, 640, 480)

	if am.Count() != 1 {
		t.Fatalf("one anchor per id, got %d", am.Count())
	}
	if scene.CountOp("instantiate") != 1 {
		t.Errorf("expected one instantiate for a duplicated id, got %d", scene.CountOp("instantiate"))
	}
	if scene.CountOp("transform") != 1 {
		t.Errorf("first sighting wins; expected one transform, got %d", scene.CountOp("transform"))
	}
}

func TestAnchorManager_InstantiateFailureRetriesNextTick(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	scene.FailInstantiate = errors.New("engine busy")
	am.Apply(1, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	if am.Count() != 0 {
		t.Fatalf("failed instantiate must not register an anchor, got %d", am.Count())
	}

	scene.FailInstantiate = nil
	am.Apply(2, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	if am.Count() != 1 {
		t.Fatalf("next sighting should retry and succeed, got %d", am.Count())
	}
	if got := am.Snapshot()[0].FirstSeenTick; got != 2 {
		t.Errorf("FirstSeenTick should be the successful tick, got %d", got)
	}
}

func TestAnchorManager_SpinAccumulates(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, true)}, 640, 480)
	am.Apply(2, p, []DetectedMarker{sighting(1, true)}, 640, 480)

	var transforms []SceneCommand
	for _, c := range scene.Commands() {
		if c.Op == "transform" {
			transforms = append(transforms, c)
		}
	}
	if len(transforms) != 2 {
		t.Fatalf("expected 2 transforms, got %d", len(transforms))
	}
	if transforms[0].Rotation == transforms[1].Rotation {
		t.Error("spin must advance the rotation between ticks")
	}
}

func TestAnchorManager_NilTransformSkipsUpdate(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()

	am.Apply(1, p, []DetectedMarker{sighting(1, false)}, 640, 480)

	if am.Count() != 1 {
		t.Fatalf("anchor should still exist, got %d", am.Count())
	}
	if scene.CountOp("transform") != 0 {
		t.Errorf("no transform expected without placement data, got %d", scene.CountOp("transform"))
	}
}

func TestAnchorManager_ReleaseAll(t *testing.T) {
	scene := NewRecordingScene()
	am := NewAnchorManager(scene)
	p := DefaultParams()
	p.AllowedMarkerIDs = []int{1, 2}

	am.Apply(1, p, []DetectedMarker{sighting(1, true), sighting(2, true)}, 640, 480)
	am.ReleaseAll()
	am.ReleaseAll()

	if am.Count() != 0 {
		t.Errorf("expected empty registry, got %d", am.Count())
	}
	if scene.LiveCount() != 0 {
		t.Errorf("scene must be empty, %d live", scene.LiveCount())
	}
	if scene.CountOp("remove") != 2 {
		t.Errorf("expected 2 removes, got %d", scene.CountOp("remove"))
	}
}
