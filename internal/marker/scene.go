package marker

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SceneCommand records one command issued against a RecordingScene.
type SceneCommand struct {
	Op       string // "instantiate", "add", "remove", "transform"
	Handle   ObjectHandle
	Position Vec3
	Rotation Mat3
	Scale    float64
}

// RecordingScene is a SceneEngine that records every command it receives.
// Dev mode uses it as a stand-in render engine; tests assert against its
// command log.
type RecordingScene struct {
	mu       sync.Mutex
	live     map[ObjectHandle]bool
	commands []SceneCommand

	// FailInstantiate, when set, makes InstantiateFromTemplate return an
	// error so callers can exercise the consumer-failure path.
	FailInstantiate error
}

// NewRecordingScene returns an empty recording scene.
func NewRecordingScene() *RecordingScene {
	return &RecordingScene{live: make(map[ObjectHandle]bool)}
}

func (s *RecordingScene) InstantiateFromTemplate() (ObjectHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInstantiate != nil {
		return "", s.FailInstantiate
	}
	h := ObjectHandle(uuid.New().String())
	s.commands = append(s.commands, SceneCommand{Op: "instantiate", Handle: h})
	return h, nil
}

func (s *RecordingScene) AddToScene(handle ObjectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[handle] {
		return fmt.Errorf("handle %s already in scene", handle)
	}
	s.live[handle] = true
	s.commands = append(s.commands, SceneCommand{Op: "add", Handle: handle})
	return nil
}

func (s *RecordingScene) RemoveFromScene(handle ObjectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[handle] {
		return fmt.Errorf("handle %s not in scene", handle)
	}
	delete(s.live, handle)
	s.commands = append(s.commands, SceneCommand{Op: "remove", Handle: handle})
	return nil
}

func (s *RecordingScene) SetTransform(handle ObjectHandle, position Vec3, rotation Mat3, scale float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[handle] {
		return fmt.Errorf("handle %s not in scene", handle)
	}
	s.commands = append(s.commands, SceneCommand{
		Op: "transform", Handle: handle, Position: position, Rotation: rotation, Scale: scale,
	})
	return nil
}

// Commands returns a copy of the command log.
func (s *RecordingScene) Commands() []SceneCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SceneCommand(nil), s.commands...)
}

// LiveCount returns how many objects are currently in the scene.
func (s *RecordingScene) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// CountOp returns how many logged commands have the given op.
func (s *RecordingScene) CountOp(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.commands {
		if c.Op == op {
			n++
		}
	}
	return n
}
