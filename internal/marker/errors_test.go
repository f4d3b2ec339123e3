package marker

import (
	"errors"
	"testing"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("root cause")

	var err error = &InitializationError{Stage: "locator", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("InitializationError must unwrap to its cause")
	}

	err = &PoseEstimationError{MarkerID: 3, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("PoseEstimationError must unwrap to its cause")
	}

	err = &DetectionError{Err: cause}
	if !errors.Is(err, cause) {
		t.Error("DetectionError must unwrap to its cause")
	}
}

func TestErrorMessagesCarryContext(t *testing.T) {
	err := &PoseEstimationError{MarkerID: 42, Err: errors.New("diverged")}
	if got := err.Error(); got == "" || got == "diverged" {
		t.Errorf("message should name the marker, got %q", got)
	}
}
