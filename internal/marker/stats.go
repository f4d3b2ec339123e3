package marker

import (
	"sort"
	"sync"
)

// MaxTickHistoryLength caps the per-tick records retained in memory.
const MaxTickHistoryLength = 1000

// TickRecord summarizes one detection tick.
type TickRecord struct {
	Tick        uint64 `json:"tick"`
	MarkerCount int    `json:"marker_count"`
	AnchorCount int    `json:"anchor_count"`
	PoseCount   int    `json:"pose_count"`
	MarkerIDs   []int  `json:"marker_ids,omitempty"`
}

// SessionSummary is a point-in-time snapshot of the session statistics.
type SessionSummary struct {
	TotalTicks        uint64 `json:"total_ticks"`
	DetectionTicks    uint64 `json:"detection_ticks"`
	SkippedTicks      uint64 `json:"skipped_ticks"`
	FramesWithMarkers uint64 `json:"frames_with_markers"`
	TotalMarkers      uint64 `json:"total_markers"`
	PoseFailures      uint64 `json:"pose_failures"`
	DetectionFailures uint64 `json:"detection_failures"`
	UniqueMarkerIDs   []int  `json:"unique_marker_ids"`
}

// SessionStats accumulates detection statistics over the life of a
// pipeline session.
type SessionStats struct {
	mu        sync.Mutex
	summary   SessionSummary
	uniqueIDs map[int]struct{}
	history   []TickRecord
}

// NewSessionStats returns empty statistics.
func NewSessionStats() *SessionStats {
	return &SessionStats{uniqueIDs: make(map[int]struct{})}
}

// RecordSkip notes a tick where detection was throttled or the frame was
// not ready.
func (s *SessionStats) RecordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.TotalTicks++
	s.summary.SkippedTicks++
}

// RecordDetectionFailure notes a tick where the locator errored.
func (s *SessionStats) RecordDetectionFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.DetectionFailures++
}

// RecordPoseFailure notes a marker that degraded to the fallback projector.
func (s *SessionStats) RecordPoseFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.PoseFailures++
}

// RecordTick notes a completed detection tick.
func (s *SessionStats) RecordTick(tick uint64, markers []DetectedMarker, anchorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.TotalTicks++
	s.summary.DetectionTicks++

	rec := TickRecord{Tick: tick, MarkerCount: len(markers), AnchorCount: anchorCount}
	if len(markers) > 0 {
		s.summary.FramesWithMarkers++
		s.summary.TotalMarkers += uint64(len(markers))
		for i := range markers {
			rec.MarkerIDs = append(rec.MarkerIDs, markers[i].ID)
			s.uniqueIDs[markers[i].ID] = struct{}{}
			if markers[i].Pose != nil {
				rec.PoseCount++
			}
		}
	}

	s.history = append(s.history, rec)
	if len(s.history) > MaxTickHistoryLength {
		s.history = s.history[len(s.history)-MaxTickHistoryLength:]
	}
}

// Summary returns a snapshot with the unique id set sorted ascending.
func (s *SessionStats) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.summary
	out.UniqueMarkerIDs = make([]int, 0, len(s.uniqueIDs))
	for id := range s.uniqueIDs {
		out.UniqueMarkerIDs = append(out.UniqueMarkerIDs, id)
	}
	sort.Ints(out.UniqueMarkerIDs)
	return out
}

// History returns a copy of the retained per-tick records.
func (s *SessionStats) History() []TickRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TickRecord(nil), s.history...)
}
