package marker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSessionStats_Counts(t *testing.T) {
	s := NewSessionStats()

	s.RecordSkip()
	s.RecordSkip()
	s.RecordTick(3, []DetectedMarker{{ID: 5, Pose: &Pose{}}, {ID: 2}}, 1)
	s.RecordTick(4, nil, 0)
	s.RecordPoseFailure()
	s.RecordDetectionFailure()

	sum := s.Summary()
	if sum.TotalTicks != 4 {
		t.Errorf("total ticks %d, want 4", sum.TotalTicks)
	}
	if sum.SkippedTicks != 2 || sum.DetectionTicks != 2 {
		t.Errorf("skips/detections %d/%d, want 2/2", sum.SkippedTicks, sum.DetectionTicks)
	}
	if sum.FramesWithMarkers != 1 || sum.TotalMarkers != 2 {
		t.Errorf("frames/markers %d/%d, want 1/2", sum.FramesWithMarkers, sum.TotalMarkers)
	}
	if sum.PoseFailures != 1 || sum.DetectionFailures != 1 {
		t.Errorf("pose/detection failures %d/%d, want 1/1", sum.PoseFailures, sum.DetectionFailures)
	}
}

func TestSessionStats_UniqueIDsSorted(t *testing.T) {
	s := NewSessionStats()
	s.RecordTick(1, []DetectedMarker{{ID: 9}, {ID: 3}}, 0)
	s.RecordTick(2, []DetectedMarker{{ID: 3}, {ID: 1}}, 0)

	got := s.Summary().UniqueMarkerIDs
	if diff := cmp.Diff([]int{1, 3, 9}, got); diff != "" {
		t.Errorf("unique ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionStats_HistoryRecordsPoseCount(t *testing.T) {
	s := NewSessionStats()
	s.RecordTick(7, []DetectedMarker{{ID: 1, Pose: &Pose{}}, {ID: 2}}, 2)

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history length %d, want 1", len(hist))
	}
	want := TickRecord{Tick: 7, MarkerCount: 2, AnchorCount: 2, PoseCount: 1, MarkerIDs: []int{1, 2}}
	if diff := cmp.Diff(want, hist[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionStats_HistoryCapped(t *testing.T) {
	s := NewSessionStats()
	for i := 0; i < MaxTickHistoryLength+50; i++ {
		s.RecordTick(uint64(i+1), nil, 0)
	}

	hist := s.History()
	if len(hist) != MaxTickHistoryLength {
		t.Fatalf("history length %d, want %d", len(hist), MaxTickHistoryLength)
	}
	if hist[0].Tick != 51 {
		t.Errorf("oldest retained tick %d, want 51", hist[0].Tick)
	}
}
